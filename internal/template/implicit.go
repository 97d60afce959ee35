// Copyright 2023 The Firefly Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

package template

import (
	"firefly-os.dev/tools/asmgen/internal/isa"
	"firefly-os.dev/tools/asmgen/internal/x86"
)

// resolveImplicit resolves an operand
// that is encoded in the opcode itself.
func resolveImplicit(b *builder, op *isa.Operand) error {
	implicit := ImplicitOperand{
		Designation: op.Designation,
		Presence:    op.Presence,
	}

	switch op.Implicit {
	case isa.ImplicitRegisterCode:
		var file x86.RegisterFile
		switch b.ctx.OperandSize {
		case 16:
			file = x86.FileGeneral16
		case 32:
			file = x86.FileGeneral32
		default:
			return b.unreachable("implicit register %s at operand size %d", op.RegisterCode, b.ctx.OperandSize)
		}

		regs := file.Registers()
		if int(op.RegisterCode) >= len(regs) {
			return b.unreachable("implicit register %s", op.RegisterCode)
		}

		implicit.Register = regs[op.RegisterCode]
	case isa.ImplicitRegister:
		implicit.Register = op.Register
	case isa.ImplicitImmediate:
		implicit.Immediate = op.Immediate
	default:
		return b.unreachable("implicit operand kind %d", op.Implicit)
	}

	b.implicit = append(b.implicit, implicit)

	return nil
}
