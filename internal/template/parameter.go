// Copyright 2023 The Firefly Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

package template

import (
	"fmt"

	"firefly-os.dev/tools/asmgen/internal/isa"
	"firefly-os.dev/tools/asmgen/internal/x86"
)

// Kind classifies a parameter.
type Kind uint8

const (
	KindEnumerable   Kind = iota // One of a finite set of named values.
	KindAddress                  // An absolute address.
	KindDisplacement             // A signed memory displacement.
	KindImmediate                // An immediate value.
	KindOffset                   // A signed relative code offset.
)

var kinds = []string{
	KindEnumerable:   "enumerable",
	KindAddress:      "address",
	KindDisplacement: "displacement",
	KindImmediate:    "immediate",
	KindOffset:       "offset",
}

func (k Kind) String() string {
	if int(k) < len(kinds) {
		return kinds[k]
	}

	return fmt.Sprintf("Kind(%d)", uint8(k))
}

func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *Kind) UnmarshalText(text []byte) error {
	return unmarshalCase(text, kinds, (*uint8)(k), "parameter kind")
}

// Value is one legal value of an
// enumerable parameter.
type Value struct {
	Name string `json:"name"`
	Code byte   `json:"code"`
}

// Parameter describes one argument of
// the assembler method generated for a
// template.
type Parameter struct {
	Kind        Kind             `json:"kind"`
	Designation isa.Designation  `json:"designation"`
	Place       Place            `json:"place"`
	Width       int              `json:"width"`          // Width of the encoded field in bits.
	File        x86.RegisterFile `json:"file,omitempty"` // For register parameters.
	Values      []Value          `json:"values,omitempty"`
	Range       *isa.Range       `json:"range,omitempty"`
	Exclude     []string         `json:"exclude,omitempty"`
}

// Excludes reports whether the named
// value must not be used as a test
// argument.
func (p *Parameter) Excludes(name string) bool {
	for _, ex := range p.Exclude {
		if ex == name {
			return true
		}
	}

	return false
}

// TestValues returns the legal values
// of an enumerable parameter that may
// be used as test arguments.
func (p *Parameter) TestValues() []Value {
	values := make([]Value, 0, len(p.Values))
	for _, v := range p.Values {
		if !p.Excludes(v.Name) {
			values = append(values, v)
		}
	}

	return values
}

// Signed reports whether the parameter
// holds a signed quantity.
func (p *Parameter) Signed() bool {
	return p.Kind == KindDisplacement || p.Kind == KindOffset
}

func (p *Parameter) String() string {
	if p.Kind == KindEnumerable {
		if p.File != 0 {
			return fmt.Sprintf("%s %s@%s", p.Designation, p.File, p.Place)
		}

		return fmt.Sprintf("%s enum%d@%s", p.Designation, p.Width, p.Place)
	}

	return fmt.Sprintf("%s %s%d@%s", p.Designation, p.Kind, p.Width, p.Place)
}

// registerValues returns the members of
// the register file, minus any in skip,
// as enumerable values.
func registerValues(file x86.RegisterFile, skip ...*x86.Register) []Value {
	var values []Value
outer:
	for _, reg := range file.Registers() {
		for _, s := range skip {
			if reg == s {
				continue outer
			}
		}

		values = append(values, Value{Name: reg.Name, Code: file.Encode(reg)})
	}

	return values
}

func scaleValues() []Value {
	values := make([]Value, len(x86.Scales))
	for i, scale := range x86.Scales {
		values[i] = Value{Name: scale.String(), Code: scale.Code()}
	}

	return values
}

func comparisonValues() []Value {
	values := make([]Value, len(x86.Comparisons))
	for i, c := range x86.Comparisons {
		values[i] = Value{Name: c.String(), Code: byte(c)}
	}

	return values
}

// ImplicitOperand is an operand that is
// fully determined by the opcode.
type ImplicitOperand struct {
	Designation isa.Designation      `json:"designation"`
	Presence    isa.ExternalPresence `json:"presence"`
	Register    *x86.Register        `json:"register,omitempty"`
	Immediate   int64                `json:"immediate,omitempty"`
}

func (op *ImplicitOperand) String() string {
	s := fmt.Sprint(op.Immediate)
	if op.Register != nil {
		s = op.Register.Name
	}
	if op.Presence == isa.Omitted {
		s = "~" + s
	}

	return s
}
