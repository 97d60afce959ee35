// Copyright 2023 The Firefly Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

package template

import (
	"firefly-os.dev/tools/asmgen/internal/isa"
	"firefly-os.dev/tools/asmgen/internal/x86"
)

// form is the resolution path for an
// operand code.
type form uint8

const (
	_                  form = iota
	formIgnored             // Nothing to encode.
	formRegister            // A register at a fixed ModR/M place.
	formDirect              // A register in ModR/M.rm, only under MOD_3.
	formOpcodeRegister      // A register added to an opcode byte.
	formE                   // A register or memory operand.
	formM                   // A memory operand.
	formImmediate
	formComparison // An SSE comparison predicate byte.
	formOffset     // A relative branch target.
	formAddress    // An absolute address.
	formString     // A string instruction operand, addressed by (e)si or (e)di.
)

// rule describes how an operand code is
// resolved.
type rule struct {
	form  form
	file  x86.RegisterFile // Fixed register file.
	sized bool             // The register or value width follows the operand size.
	place Place
	width int // Fixed value width in bits.

	minOperandSize  int  // Smaller operand sizes are pruned.
	opcode2         bool // Embed the register in the second opcode byte, if there is one.
	suffix          bool // Record the operand type code as the method suffix.
	operandCodeSize bool // Record the operand size as the external code size.
	addressCodeSize bool // Record the address size as the external code size.
	untestable      bool // External assemblers cannot check the encoding.
}

var rules = map[isa.OperandCode]rule{
	isa.Ap: {form: formAddress, untestable: true},
	isa.Cd: {form: formRegister, file: x86.FileControl, place: PlaceModReg},
	isa.Dd: {form: formRegister, file: x86.FileDebug, place: PlaceModReg},
	isa.Eb: {form: formE, file: x86.FileGeneral8},
	isa.Ed: {form: formE, file: x86.FileGeneral32},
	isa.Ev: {form: formE, sized: true},
	isa.Ew: {form: formE, file: x86.FileGeneral16},
	isa.Fv: {form: formIgnored},
	isa.Gb: {form: formRegister, file: x86.FileGeneral8, place: PlaceModReg},
	isa.Gd: {form: formRegister, file: x86.FileGeneral32, place: PlaceModReg},
	isa.Gv: {form: formRegister, sized: true, place: PlaceModReg},
	isa.Gw: {form: formRegister, file: x86.FileGeneral16, place: PlaceModReg},

	isa.Ib:  {form: formImmediate, width: 8},
	isa.ICb: {form: formComparison, place: PlaceAppend},
	isa.Iv:  {form: formImmediate, sized: true, suffix: true},
	isa.Iw:  {form: formImmediate, width: 16, operandCodeSize: true},
	isa.Jb:  {form: formOffset, width: 8, addressCodeSize: true},
	isa.Jv:  {form: formOffset, sized: true},

	isa.Ma:   {form: formM},
	isa.Md_q: {form: formM, minOperandSize: 32},
	isa.Mdq:  {form: formM},
	isa.Mp:   {form: formM},
	isa.Mq:   {form: formM},
	isa.Ms:   {form: formM},
	isa.Mv:   {form: formM},
	isa.Mw:   {form: formM},

	isa.Nb: {form: formOpcodeRegister, file: x86.FileGeneral8, place: PlaceOpcode1},
	isa.Nd: {form: formOpcodeRegister, file: x86.FileGeneral32, place: PlaceOpcode2},
	isa.Nv: {form: formOpcodeRegister, sized: true, place: PlaceOpcode1, opcode2: true},
	isa.Ob: {form: formAddress},
	isa.Ov: {form: formAddress},

	isa.Pd:  {form: formRegister, file: x86.FileMMX, place: PlaceModReg},
	isa.Pq:  {form: formRegister, file: x86.FileMMX, place: PlaceModReg},
	isa.PRq: {form: formDirect, file: x86.FileMMX},
	isa.Qd:  {form: formE, file: x86.FileMMX},
	isa.Qq:  {form: formE, file: x86.FileMMX},
	isa.Rd:  {form: formDirect, file: x86.FileGeneral32},
	isa.Rv:  {form: formDirect, sized: true},
	isa.Sw:  {form: formRegister, file: x86.FileSegment, place: PlaceModReg},

	isa.Vdq:  {form: formRegister, file: x86.FileXMM, place: PlaceModReg},
	isa.Vpd:  {form: formRegister, file: x86.FileXMM, place: PlaceModReg},
	isa.Vps:  {form: formRegister, file: x86.FileXMM, place: PlaceModReg},
	isa.Vq:   {form: formRegister, file: x86.FileXMM, place: PlaceModReg},
	isa.Vsd:  {form: formRegister, file: x86.FileXMM, place: PlaceModReg},
	isa.Vss:  {form: formRegister, file: x86.FileXMM, place: PlaceModReg},
	isa.VRdq: {form: formDirect, file: x86.FileXMM},
	isa.VRpd: {form: formDirect, file: x86.FileXMM},
	isa.VRps: {form: formDirect, file: x86.FileXMM},
	isa.VRq:  {form: formDirect, file: x86.FileXMM},
	isa.Wdq:  {form: formE, file: x86.FileXMM, minOperandSize: 32},
	isa.Wpd:  {form: formE, file: x86.FileXMM, minOperandSize: 32},
	isa.Wps:  {form: formE, file: x86.FileXMM, minOperandSize: 32},
	isa.Wq:   {form: formE, file: x86.FileXMM, minOperandSize: 32},
	isa.Wsd:  {form: formE, file: x86.FileXMM, minOperandSize: 32},
	isa.Wss:  {form: formE, file: x86.FileXMM, minOperandSize: 32},

	isa.Xb: {form: formString},
	isa.Xv: {form: formString, sized: true},
	isa.Yb: {form: formString},
	isa.Yv: {form: formString, sized: true},
}

// usesModRMrm reports whether the
// operand is encoded in ModR/M.rm.
func (r rule) usesModRMrm() bool {
	switch r.form {
	case formDirect, formE, formM:
		return true
	}

	return false
}

// dependsOnAddressSize reports whether
// resolution varies with the address-size
// attribute.
func (r rule) dependsOnAddressSize() bool {
	switch r.form {
	case formE, formM, formAddress, formString:
		return true
	}

	return r.addressCodeSize
}

// dependsOnOperandSize reports whether
// resolution varies with the operand-size
// attribute.
func (r rule) dependsOnOperandSize() bool {
	return r.sized || r.minOperandSize > 0 || r.operandCodeSize
}

// registerFile returns the register file
// for a register operand in the builder's
// context.
func (r rule) registerFile(b *builder, code isa.OperandCode) (x86.RegisterFile, error) {
	if !r.sized {
		return r.file, nil
	}

	switch b.ctx.OperandSize {
	case 16:
		return x86.FileGeneral16, nil
	case 32:
		return x86.FileGeneral32, nil
	default:
		return 0, b.unreachable("operand code %s at operand size %d", code, b.ctx.OperandSize)
	}
}
