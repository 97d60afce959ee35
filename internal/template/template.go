// Copyright 2023 The Firefly Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

// Package template resolves IA-32 instruction descriptions
// into assembler templates.
//
// An instruction description names its operands with
// Intel-manual operand codes, like Eb or Iv. Most codes
// stand for several distinct encodings, depending on the
// address size, the operand size, and the shape of the
// ModR/M and SIB bytes. Generate enumerates the encoding
// contexts relevant to each description, resolves the
// description under each one, and returns a template for
// every context that yields a valid encoding.
//
// Each template has a fixed list of parameters, which
// describe the arguments of an assembler method and where
// each argument is encoded.
package template

import (
	"fmt"
	"strings"

	"firefly-os.dev/tools/asmgen/internal/isa"
)

// Template is one fully resolved encoding
// shape of an instruction. Templates are
// immutable.
type Template struct {
	serial     int
	desc       *isa.Description
	ctx        Context
	params     []Parameter
	implicit   []ImplicitOperand
	labelIndex int // -1 when unset.
	codeSize   int // 0 when unset.
	suffix     isa.OperandTypeCode
	testable   bool
	sib        bool
}

// Serial returns the template's position
// in the generated sequence.
func (t *Template) Serial() int { return t.serial }

// Description returns the instruction
// description the template was resolved
// from.
func (t *Template) Description() *isa.Description { return t.desc }

// Context returns the encoding context
// the template was resolved under.
func (t *Template) Context() Context { return t.ctx }

// Parameters returns the template's
// parameters, in operand order. The
// result must not be modified.
func (t *Template) Parameters() []Parameter { return t.params }

// ImplicitOperands returns the operands
// that are fixed by the opcode.
func (t *Template) ImplicitOperands() []ImplicitOperand { return t.implicit }

// LabelParameterIndex returns the index
// of the parameter that may be given as
// a label, if any.
func (t *Template) LabelParameterIndex() (int, bool) {
	return t.labelIndex, t.labelIndex >= 0
}

// ExternalCodeSize returns the attribute
// size an external assembler must be
// told to use, if it was recorded.
func (t *Template) ExternalCodeSize() (int, bool) {
	return t.codeSize, t.codeSize != 0
}

// OperandTypeSuffix returns the operand
// type code that disambiguates the
// assembler method name, if any.
func (t *Template) OperandTypeSuffix() (isa.OperandTypeCode, bool) {
	return t.suffix, t.suffix != ""
}

// ExternallyTestable reports whether an
// external assembler can check the
// template.
func (t *Template) ExternallyTestable() bool { return t.testable }

// SelectsOperandSize reports whether the
// template's operand size is chosen with
// the operand-size prefix. Instructions
// whose operands only have a minimum
// operand size, like most SSE forms, use
// 0x66 as part of the opcode instead.
func (t *Template) SelectsOperandSize() bool {
	return t.desc.OperandSize == 0 && dependenciesOf(t.desc).selectsOperandSize
}

// HasSIB reports whether the template
// encodes a SIB byte.
func (t *Template) HasSIB() bool { return t.sib }

// Name returns the assembler method name
// for the template, like "add" or "movs_b".
func (t *Template) Name() string {
	if t.suffix != "" {
		return t.desc.Mnemonic + "_" + string(t.suffix)
	}

	return t.desc.Mnemonic
}

func (t *Template) String() string {
	var s strings.Builder
	fmt.Fprintf(&s, "#%d %s [%s]", t.serial, t.desc.Syntax(), t.ctx)
	if len(t.params) > 0 {
		s.WriteString(" (")
		for i := range t.params {
			if i > 0 {
				s.WriteString(", ")
			}

			s.WriteString(t.params[i].String())
		}
		s.WriteByte(')')
	}

	return s.String()
}

// Record is the serialised form of a
// template.
type Record struct {
	Serial     int               `json:"serial"`
	UID        string            `json:"uid"`
	Name       string            `json:"name"`
	Syntax     string            `json:"syntax"`
	Opcode     string            `json:"opcode"`
	Context    Context           `json:"context"`
	Parameters []Parameter       `json:"parameters"`
	Implicit   []ImplicitOperand `json:"implicit,omitempty"`
	LabelIndex *int              `json:"labelIndex,omitempty"`
	CodeSize   int               `json:"codeSize,omitempty"`
	Suffix     string            `json:"suffix,omitempty"`
	Testable   bool              `json:"externallyTestable"`
	SIB        bool              `json:"sib,omitempty"`
}

// Record returns the template's serialised
// form.
func (t *Template) Record() *Record {
	r := &Record{
		Serial:     t.serial,
		UID:        t.desc.UID,
		Name:       t.Name(),
		Syntax:     t.desc.Syntax(),
		Opcode:     fmt.Sprintf("% x", t.desc.Opcode()),
		Context:    t.ctx,
		Parameters: t.params,
		Implicit:   t.implicit,
		CodeSize:   t.codeSize,
		Suffix:     string(t.suffix),
		Testable:   t.testable,
		SIB:        t.sib,
	}

	if r.Parameters == nil {
		r.Parameters = []Parameter{}
	}

	if i, ok := t.LabelParameterIndex(); ok {
		r.LabelIndex = &i
	}

	return r
}
