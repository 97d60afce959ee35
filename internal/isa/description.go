// Copyright 2023 The Firefly Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

// Package isa contains the IA-32 instruction descriptions
// from which assembler templates are generated.
//
// Descriptions are read from an embedded TOML database,
// which lists each instruction form's mnemonic, opcode
// bytes, opcode extension, and Intel-manual-style operand
// codes.
package isa

import (
	"fmt"
	"strings"

	"firefly-os.dev/tools/asmgen/internal/x86"
)

// NoGroup is the Group value of a description
// whose ModR/M.reg field is not an opcode
// extension.
const NoGroup = -1

// Description is the immutable description
// of one IA-32 instruction form.
type Description struct {
	UID         string
	Mnemonic    string
	Opcode1     byte
	Opcode2     byte
	HasOpcode2  bool
	Group       int        // ModR/M.reg opcode extension, or NoGroup.
	Prefix      x86.Prefix // Mandatory prefix, or zero.
	OperandSize int        // Fixed operand size, or zero.
	Modes       []x86.Mode // CPU modes in which the form is valid.
	Testable    bool       // Whether external assemblers can check the form.
	Operands    []*Operand
}

// Supports reports whether the instruction
// form is valid in the given CPU mode.
func (d *Description) Supports(mode x86.Mode) bool {
	for _, m := range d.Modes {
		if m == mode {
			return true
		}
	}

	return false
}

// Opcode returns the opcode bytes.
func (d *Description) Opcode() []byte {
	if d.HasOpcode2 {
		return []byte{d.Opcode1, d.Opcode2}
	}

	return []byte{d.Opcode1}
}

// Syntax returns the instruction form
// in Intel-manual notation, such as
// "add Eb, Gb".
func (d *Description) Syntax() string {
	if len(d.Operands) == 0 {
		return d.Mnemonic
	}

	operands := make([]string, len(d.Operands))
	for i, op := range d.Operands {
		operands[i] = op.String()
	}

	return d.Mnemonic + " " + strings.Join(operands, ", ")
}

func (d *Description) String() string {
	return d.UID
}

// uid returns the unique identifier
// for the instruction form.
func (d *Description) uid() string {
	var s strings.Builder
	s.WriteString(strings.ToUpper(d.Mnemonic))
	fmt.Fprintf(&s, "_%02X", d.Opcode1)
	if d.HasOpcode2 {
		fmt.Fprintf(&s, "%02X", d.Opcode2)
	}
	if d.Group != NoGroup {
		fmt.Fprintf(&s, "_%d", d.Group)
	}
	for _, op := range d.Operands {
		s.WriteByte('_')
		name := op.String()
		name = strings.TrimPrefix(name, "~")
		s.WriteString(name)
	}

	return s.String()
}
