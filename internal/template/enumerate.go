// Copyright 2023 The Firefly Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

package template

import (
	"firefly-os.dev/tools/asmgen/internal/isa"
	"firefly-os.dev/tools/asmgen/internal/x86"
)

// dependencies summarises which context
// dimensions an instruction's resolution
// can vary with.
type dependencies struct {
	modRM       bool
	addressSize bool
	operandSize bool

	// addressOperand is set when an operand
	// outside ModR/M.rm depends on the
	// address size, like Jb or Xb.
	addressOperand bool

	// selectsOperandSize is set when an
	// operand's width follows the operand
	// size, rather than only having a
	// minimum operand size.
	selectsOperandSize bool
}

func dependenciesOf(desc *isa.Description) dependencies {
	var deps dependencies
	for _, op := range desc.Operands {
		if op.IsImplicit() {
			if op.Implicit == isa.ImplicitRegisterCode {
				deps.operandSize = true
				deps.selectsOperandSize = true
			}

			continue
		}

		r, ok := rules[op.Code]
		if !ok {
			// Resolution reports the unknown
			// operand code.
			continue
		}

		deps.modRM = deps.modRM || r.usesModRMrm()
		deps.addressSize = deps.addressSize || r.dependsOnAddressSize()
		if !r.usesModRMrm() && r.dependsOnAddressSize() {
			deps.addressOperand = true
		}
		deps.operandSize = deps.operandSize || r.dependsOnOperandSize()
		deps.selectsOperandSize = deps.selectsOperandSize || r.sized || r.operandCodeSize
	}

	return deps
}

// Contexts returns the encoding contexts
// under which desc is resolved in the
// given CPU mode, in enumeration order.
//
// The order is lexicographic over the
// address size, operand size, mod case,
// rm case, SIB base case, and SIB index
// case, with each dimension ascending.
// Dimensions that cannot affect desc are
// fixed: the sizes at the mode's default,
// or the description's fixed operand
// size, and the ModR/M cases unused.
func Contexts(desc *isa.Description, mode x86.Mode) []Context {
	deps := dependenciesOf(desc)
	addressSizes := []int{int(mode.Int)}
	if deps.addressSize {
		addressSizes = []int{16, 32}
	}

	operandSizes := []int{int(mode.Int)}
	switch {
	case desc.OperandSize != 0:
		operandSizes = []int{desc.OperandSize}
	case deps.operandSize:
		operandSizes = []int{16, 32}
	}

	var contexts []Context
	for _, addressSize := range addressSizes {
		for _, operandSize := range operandSizes {
			ctx := Context{AddressSize: addressSize, OperandSize: operandSize}
			if !deps.modRM {
				contexts = append(contexts, ctx)
				continue
			}

			for _, mod := range []ModCase{Mod0, Mod1, Mod2, Mod3} {
				// Register operands do not depend
				// on the address size, so MOD_3 is
				// only repeated at the other size
				// when another operand depends on it.
				if mod == Mod3 && addressSize != int(mode.Int) && !deps.addressOperand {
					continue
				}

				ctx.Mod = mod
				for _, rm := range rmCasesFor(mod) {
					ctx.RM = rm
					if rm != RMSIB {
						ctx.SIBBase, ctx.SIBIndex = SIBBaseUnused, SIBIndexUnused
						contexts = append(contexts, ctx)
						continue
					}

					for _, base := range sibBaseCasesFor(mod) {
						for _, index := range []SIBIndexCase{SIBIndexGeneral, SIBIndexNone} {
							ctx.SIBBase, ctx.SIBIndex = base, index
							contexts = append(contexts, ctx)
						}
					}
				}
			}
		}
	}

	return contexts
}

func rmCasesFor(mod ModCase) []RMCase {
	switch mod {
	case Mod0:
		return []RMCase{RMNormal, RMSWord, RMSDWord, RMSIB}
	case Mod1, Mod2:
		return []RMCase{RMNormal, RMSIB}
	default:
		return []RMCase{RMNormal}
	}
}

func sibBaseCasesFor(mod ModCase) []SIBBaseCase {
	if mod == Mod0 {
		return []SIBBaseCase{SIBBaseGeneral, SIBBaseSpecial}
	}

	return []SIBBaseCase{SIBBaseGeneral}
}
