// Copyright 2023 The Firefly Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

package template

import (
	"firefly-os.dev/tools/asmgen/internal/isa"
	"firefly-os.dev/tools/asmgen/internal/x86"
)

// resolveMemory lays out a memory operand
// in the ModR/M byte, any SIB byte, and
// any displacement.
func resolveMemory(b *builder, op *isa.Operand) error {
	switch b.ctx.Mod {
	case Mod0:
		switch b.ctx.RM {
		case RMNormal:
			return addIndirect(b, op)
		case RMSWord:
			if b.ctx.AddressSize != 16 {
				return b.prune("16-bit absolute address under %d-bit addressing", b.ctx.AddressSize)
			}

			if err := b.setCodeSize(16); err != nil {
				return err
			}

			return b.add(Parameter{
				Kind:        KindAddress,
				Designation: op.Designation,
				Place:       PlaceAddress,
				Width:       16,
			})
		case RMSDWord:
			if b.ctx.AddressSize != 32 {
				return b.prune("32-bit absolute address under %d-bit addressing", b.ctx.AddressSize)
			}

			if err := b.setLabel(); err != nil {
				return err
			}

			return b.add(Parameter{
				Kind:        KindAddress,
				Designation: op.Designation,
				Place:       PlaceAddress,
				Width:       32,
			})
		case RMSIB:
			if b.ctx.AddressSize != 32 {
				return b.prune("SIB under %d-bit addressing", b.ctx.AddressSize)
			}

			return addSIB(b, op)
		}

		return b.unreachable("rm case %s under %s", b.ctx.RM, b.ctx.Mod)
	case Mod1, Mod2:
		width := 8
		if b.ctx.Mod == Mod2 {
			switch b.ctx.AddressSize {
			case 16, 32:
				width = b.ctx.AddressSize
			default:
				return b.unreachable("displacement under %d-bit addressing", b.ctx.AddressSize)
			}
		}

		err := b.add(Parameter{
			Kind:        KindDisplacement,
			Designation: op.Designation,
			Place:       PlaceDisplacement,
			Width:       width,
		})
		if err != nil {
			return err
		}

		switch b.ctx.RM {
		case RMNormal:
			return addIndirect(b, op)
		case RMSIB:
			if b.ctx.AddressSize != 32 {
				return b.prune("SIB under %d-bit addressing", b.ctx.AddressSize)
			}

			return addSIB(b, op)
		}

		return b.prune("rm case %s under %s", b.ctx.RM, b.ctx.Mod)
	case Mod3:
		return b.prune("memory operand %s under MOD_3", op.Code)
	}

	return b.unreachable("memory operand %s with mod case %s", op.Code, b.ctx.Mod)
}

// addIndirect adds a register-indirect
// parameter at ModR/M.rm. Under MOD_0,
// the rm values that select an absolute
// address are not registers.
func addIndirect(b *builder, op *isa.Operand) error {
	var file x86.RegisterFile
	var skip *x86.Register
	switch b.ctx.AddressSize {
	case 16:
		file = x86.FileIndirect16
		if b.ctx.Mod == Mod0 {
			skip = x86.BP
		}
	case 32:
		file = x86.FileIndirect32
		if b.ctx.Mod == Mod0 {
			skip = x86.EBP
		}
	default:
		return b.unreachable("register-indirect operand under %d-bit addressing", b.ctx.AddressSize)
	}

	return b.add(Parameter{
		Kind:        KindEnumerable,
		Designation: op.Designation,
		Place:       PlaceModRM,
		Width:       3,
		File:        file,
		Values:      registerValues(file, skip),
	})
}

// addSIB adds the parameters of a SIB
// byte. The caller has checked the
// address size.
func addSIB(b *builder, op *isa.Operand) error {
	if b.ctx.AddressSize != 32 {
		return b.unreachable("SIB under %d-bit addressing", b.ctx.AddressSize)
	}

	if err := b.setSIB(); err != nil {
		return err
	}

	switch b.ctx.SIBBase {
	case SIBBaseGeneral:
		var skip *x86.Register
		switch b.ctx.Mod {
		case Mod0:
			// Base ebp under MOD_0 selects
			// a 32-bit absolute address.
			skip = x86.EBP
		case Mod1, Mod2:
		default:
			return b.unreachable("SIB base under %s", b.ctx.Mod)
		}

		err := b.add(Parameter{
			Kind:        KindEnumerable,
			Designation: op.Designation,
			Place:       PlaceSIBBase,
			Width:       3,
			File:        x86.FileBase32,
			Values:      registerValues(x86.FileBase32, skip),
		})
		if err != nil {
			return err
		}
	case SIBBaseSpecial:
		if b.ctx.Mod != Mod0 {
			return b.unreachable("special SIB base under %s", b.ctx.Mod)
		}

		if err := b.setLabel(); err != nil {
			return err
		}

		err := b.add(Parameter{
			Kind:        KindAddress,
			Designation: op.Designation,
			Place:       PlaceAddress,
			Width:       32,
		})
		if err != nil {
			return err
		}
	default:
		return b.unreachable("SIB base case %s", b.ctx.SIBBase)
	}

	switch b.ctx.SIBIndex {
	case SIBIndexGeneral:
		err := b.add(Parameter{
			Kind:        KindEnumerable,
			Designation: op.Designation,
			Place:       PlaceSIBIndex,
			Width:       3,
			File:        x86.FileIndex32,
			Values:      registerValues(x86.FileIndex32),
		})
		if err != nil {
			return err
		}
	case SIBIndexNone:
		return b.prune("SIB without an index register")
	default:
		return b.unreachable("SIB index case %s", b.ctx.SIBIndex)
	}

	return b.add(Parameter{
		Kind:        KindEnumerable,
		Designation: op.Designation,
		Place:       PlaceSIBScale,
		Width:       2,
		Values:      scaleValues(),
	})
}
