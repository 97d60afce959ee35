// Copyright 2023 The Firefly Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

package encoder

import (
	"fmt"

	"firefly-os.dev/tools/asmgen/internal/isa"
	"firefly-os.dev/tools/asmgen/internal/template"
	"firefly-os.dev/tools/asmgen/internal/x86"
)

// Encode builds the machine code for t in
// the given CPU mode, using one argument
// per template parameter.
func Encode(t *template.Template, mode x86.Mode, args []Argument) (*x86.Code, error) {
	params := t.Parameters()
	if len(args) != len(params) {
		return nil, fmt.Errorf("%s: got %d arguments, want %d", t.Name(), len(args), len(params))
	}

	desc := t.Description()
	ctx := t.Context()
	code := new(x86.Code)

	// Legacy prefixes.
	if ctx.AddressSize == mode.AlternateSize() {
		code.Prefixes = append(code.Prefixes, x86.PrefixAddressSize)
	}
	if t.SelectsOperandSize() && ctx.OperandSize == mode.AlternateSize() {
		code.Prefixes = append(code.Prefixes, x86.PrefixOperandSize)
	}
	if desc.Prefix != 0 {
		code.Prefixes = append(code.Prefixes, desc.Prefix)
	}

	code.Opcode = append(code.Opcode, desc.Opcode()...)

	// ModR/M and SIB.
	if ctx.Mod != template.ModUnused {
		modrm := code.UseModRM()
		modrm.Mod = ctx.Mod.Bits()
		switch ctx.RM {
		case template.RMSWord:
			modrm.RM = x86.RMDisplacement16
		case template.RMSDWord:
			modrm.RM = x86.RMDisplacement32
		case template.RMSIB:
			modrm.RM = x86.RMSIB
			sib := code.UseSIB()
			if ctx.SIBBase == template.SIBBaseSpecial {
				sib.Base = x86.SIBBaseNone
			}
		}
	}
	if desc.Group != isa.NoGroup {
		code.UseModRM().Reg = byte(desc.Group)
	}

	var immediates [3][]byte
	for i := range params {
		param := &params[i]
		arg := args[i]
		if err := check(param, arg); err != nil {
			return nil, fmt.Errorf("%s: argument %d: %w", t.Name(), i, err)
		}

		v := uint64(arg.Value)
		size := param.Width / 8
		switch param.Place {
		case template.PlaceModReg:
			code.UseModRM().Reg = byte(v)
		case template.PlaceModRM:
			code.UseModRM().RM = byte(v)
		case template.PlaceSIBBase:
			code.UseSIB().Base = byte(v)
		case template.PlaceSIBIndex:
			code.UseSIB().Index = byte(v)
		case template.PlaceSIBScale:
			code.UseSIB().Scale = byte(v)
		case template.PlaceOpcode1:
			code.Opcode[0] += byte(v)
		case template.PlaceOpcode2:
			if len(code.Opcode) < 2 {
				return nil, fmt.Errorf("%s: argument %d: no second opcode byte", t.Name(), i)
			}

			code.Opcode[1] += byte(v)
		case template.PlaceDisplacement, template.PlaceAddress:
			code.Displacement = x86.LittleEndian(v, size)
		case template.PlaceOffset:
			code.Offset = x86.LittleEndian(v, size)
		case template.PlaceImmediate:
			immediates[0] = x86.LittleEndian(v, size)
		case template.PlaceImmediate2:
			immediates[1] = x86.LittleEndian(v, size)
		case template.PlaceAppend:
			immediates[2] = x86.LittleEndian(v, size)
		default:
			return nil, fmt.Errorf("%s: argument %d: unsupported place %s", t.Name(), i, param.Place)
		}
	}

	for _, imm := range immediates {
		code.Immediate = append(code.Immediate, imm...)
	}

	// A far pointer is followed by its
	// segment selector.
	for _, op := range desc.Operands {
		if op.Code == isa.Ap && !op.IsImplicit() {
			code.Immediate = append(code.Immediate, 0, 0)
		}
	}

	return code, nil
}

// Assemble returns the machine code for t
// in the given CPU mode.
func Assemble(t *template.Template, mode x86.Mode, args []Argument) ([]byte, error) {
	code, err := Encode(t, mode, args)
	if err != nil {
		return nil, err
	}

	return code.Bytes(), nil
}

// check ensures that the argument is a
// legal value for the parameter.
func check(param *template.Parameter, arg Argument) error {
	if param.Kind == template.KindEnumerable {
		v, ok := lookup(param, arg.Name)
		if !ok || int64(v.Code) != arg.Value {
			return fmt.Errorf("invalid %s value %s", param, arg)
		}

		return nil
	}

	if param.Range != nil && !param.Range.Contains(arg.Value) {
		return fmt.Errorf("%s value %d outside range [%d, %d]", param.Kind, arg.Value, param.Range.Min, param.Range.Max)
	}

	lo, hi := signedBounds(param.Width)
	switch param.Kind {
	case template.KindImmediate:
		// Immediates may be given signed
		// or unsigned.
		hi = hi*2 + 1
	case template.KindAddress:
		lo, hi = 0, hi*2+1
	}

	if arg.Value < lo || hi < arg.Value {
		return fmt.Errorf("%s value %d does not fit in %d bits", param.Kind, arg.Value, param.Width)
	}

	return nil
}
