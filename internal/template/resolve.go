// Copyright 2023 The Firefly Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

package template

import (
	"errors"

	"firefly-os.dev/tools/asmgen/internal/isa"
	"firefly-os.dev/tools/asmgen/internal/x86"
)

// Outcome is the result of resolving an
// instruction in one context.
type Outcome uint8

const (
	Resolved Outcome = iota // A template was produced.
	Pruned                  // The context does not apply.
	Fatal                   // The description or the resolver is inconsistent.
)

func (o Outcome) String() string {
	switch o {
	case Resolved:
		return "resolved"
	case Pruned:
		return "pruned"
	default:
		return "fatal"
	}
}

// Result is the outcome of resolving an
// instruction in one context. Template
// is set when the outcome is Resolved,
// and Err otherwise.
type Result struct {
	Outcome  Outcome
	Template *Template
	Err      error
}

// Resolve resolves every operand of desc
// under ctx, in declaration order.
//
// The returned template has no serial
// number; Generate assigns serials.
func Resolve(desc *isa.Description, ctx Context) Result {
	b := newBuilder(desc, ctx)
	for _, op := range desc.Operands {
		var err error
		if op.IsImplicit() {
			err = resolveImplicit(b, op)
		} else {
			err = resolveOperand(b, op)
		}

		if err != nil {
			return failed(err)
		}
	}

	t, err := b.build()
	if err != nil {
		return failed(err)
	}

	return Result{Outcome: Resolved, Template: t}
}

func failed(err error) Result {
	if errors.Is(err, ErrPruned) {
		return Result{Outcome: Pruned, Err: err}
	}

	return Result{Outcome: Fatal, Err: err}
}

// resolveOperand dispatches one explicit
// operand through its rule.
func resolveOperand(b *builder, op *isa.Operand) error {
	r, ok := rules[op.Code]
	if !ok {
		return &UnreachableError{
			Instruction: b.desc.UID,
			Context:     b.ctx,
			Branch:      op.Code.String(),
			Err:         ErrUnknownOperand,
		}
	}

	if b.ctx.OperandSize < r.minOperandSize {
		return b.prune("%s needs operand size %d", op.Code, r.minOperandSize)
	}

	if r.untestable {
		b.notTestable()
	}

	switch r.form {
	case formIgnored:
		return nil
	case formRegister:
		file, err := r.registerFile(b, op.Code)
		if err != nil {
			return err
		}

		return b.addRegister(op, r.place, file)
	case formDirect:
		if b.ctx.Mod != Mod3 {
			return b.prune("%s needs MOD_3", op.Code)
		}

		return resolveDirect(b, op, r)
	case formOpcodeRegister:
		file, err := r.registerFile(b, op.Code)
		if err != nil {
			return err
		}

		place := r.place
		if r.opcode2 && b.desc.HasOpcode2 {
			place = PlaceOpcode2
		}

		if place == PlaceOpcode2 && !b.desc.HasOpcode2 {
			return b.unreachable("%s in a missing second opcode byte", op.Code)
		}

		return b.addRegister(op, place, file)
	case formE:
		if b.ctx.Mod == Mod3 {
			return resolveDirect(b, op, r)
		}

		return resolveMemory(b, op)
	case formM:
		return resolveMemory(b, op)
	case formImmediate:
		return resolveImmediate(b, op, r)
	case formComparison:
		return b.add(Parameter{
			Kind:        KindEnumerable,
			Designation: op.Designation,
			Place:       r.place,
			Width:       8,
			Values:      comparisonValues(),
			Exclude:     op.Exclude,
		})
	case formOffset:
		return resolveOffset(b, op, r)
	case formAddress:
		return resolveAddress(b, op)
	case formString:
		b.stringOperand(op.Code.TypeCode())
		return nil
	}

	return b.unreachable("operand code %s has no resolution path", op.Code)
}

// addRegister adds an enumerable register
// parameter.
func (b *builder) addRegister(op *isa.Operand, place Place, file x86.RegisterFile) error {
	return b.add(Parameter{
		Kind:        KindEnumerable,
		Designation: op.Designation,
		Place:       place,
		Width:       3,
		File:        file,
		Values:      registerValues(file),
		Exclude:     op.Exclude,
	})
}

// resolveDirect resolves a register in
// ModR/M.rm under MOD_3.
func resolveDirect(b *builder, op *isa.Operand, r rule) error {
	if b.ctx.RM != RMNormal {
		return b.prune("%s under MOD_3 with rm %s", op.Code, b.ctx.RM)
	}

	file, err := r.registerFile(b, op.Code)
	if err != nil {
		return err
	}

	return b.addRegister(op, PlaceModRM, file)
}

func resolveImmediate(b *builder, op *isa.Operand, r rule) error {
	width := r.width
	if r.sized {
		switch b.ctx.OperandSize {
		case 16, 32:
			width = b.ctx.OperandSize
		default:
			return b.unreachable("operand code %s at operand size %d", op.Code, b.ctx.OperandSize)
		}
	}

	if r.suffix {
		if err := b.setSuffix(op.Code.TypeCode()); err != nil {
			return err
		}
	}

	if r.operandCodeSize {
		if err := b.setCodeSize(b.ctx.OperandSize); err != nil {
			return err
		}
	}

	return b.add(Parameter{
		Kind:        KindImmediate,
		Designation: op.Designation,
		Place:       b.immediatePlace(),
		Width:       width,
		Range:       op.Range,
		Exclude:     op.Exclude,
	})
}

func resolveOffset(b *builder, op *isa.Operand, r rule) error {
	width := r.width
	if r.sized {
		switch b.ctx.OperandSize {
		case 16:
			width = 16
			if err := b.setCodeSize(16); err != nil {
				return err
			}
		case 32:
			width = 32
		default:
			return b.unreachable("operand code %s at operand size %d", op.Code, b.ctx.OperandSize)
		}
	}

	if r.addressCodeSize {
		if err := b.setCodeSize(b.ctx.AddressSize); err != nil {
			return err
		}
	}

	if err := b.setLabel(); err != nil {
		return err
	}

	return b.add(Parameter{
		Kind:        KindOffset,
		Designation: op.Designation,
		Place:       PlaceOffset,
		Width:       width,
		Range:       op.Range,
		Exclude:     op.Exclude,
	})
}

// resolveAddress resolves an absolute
// address that follows the opcode.
func resolveAddress(b *builder, op *isa.Operand) error {
	switch b.ctx.AddressSize {
	case 16:
		if err := b.setCodeSize(16); err != nil {
			return err
		}
	case 32:
		if err := b.setLabel(); err != nil {
			return err
		}
	default:
		return b.unreachable("operand code %s at address size %d", op.Code, b.ctx.AddressSize)
	}

	return b.add(Parameter{
		Kind:        KindAddress,
		Designation: op.Designation,
		Place:       PlaceAddress,
		Width:       b.ctx.AddressSize,
		Range:       op.Range,
		Exclude:     op.Exclude,
	})
}
