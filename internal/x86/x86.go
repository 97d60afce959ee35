// Copyright 2023 The Firefly Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

// Package x86 contains structured information on the
// IA-32 instruction encoding: CPU modes, legacy prefixes,
// the ModR/M and SIB bytes, register files, and a helper
// for writing machine code.
package x86

import (
	"fmt"
	"strings"
)

// Mode represents an x86
// CPU mode, as a number
// of bits.
type Mode struct {
	Int    uint8
	String string
}

var (
	Mode16 = Mode{16, "16"}
	Mode32 = Mode{32, "32"}
	Modes  = []Mode{Mode16, Mode32}
)

// ModeFromInt returns the mode with
// the given size in bits.
func ModeFromInt(bits int) (Mode, error) {
	for _, mode := range Modes {
		if int(mode.Int) == bits {
			return mode, nil
		}
	}

	return Mode{}, fmt.Errorf("unsupported CPU mode %d", bits)
}

// AlternateSize returns the attribute
// size selected by an operand-size or
// address-size prefix in this mode.
func (m Mode) AlternateSize() int {
	if m.Int == 16 {
		return 32
	}

	return 16
}

// Code is the machine code for a single
// instruction, held as its separate fields.
// Fields are emitted in the order they
// appear here.
type Code struct {
	Prefixes     []Prefix
	Opcode       []byte
	ModRM        *ModRM // Nil if absent.
	SIB          *SIB   // Nil if absent.
	Displacement []byte // Memory displacement or absolute address.
	Offset       []byte // Relative code offset.
	Immediate    []byte // Immediate literals, in encoding order.
}

// UseModRM returns the ModR/M byte,
// adding a zero byte if c has none.
func (c *Code) UseModRM() *ModRM {
	if c.ModRM == nil {
		c.ModRM = new(ModRM)
	}

	return c.ModRM
}

// UseSIB returns the SIB byte, adding
// a zero byte if c has none.
func (c *Code) UseSIB() *SIB {
	if c.SIB == nil {
		c.SIB = new(SIB)
	}

	return c.SIB
}

// Bytes returns the encoded instruction.
func (c *Code) Bytes() []byte {
	out := make([]byte, 0, 16)
	for _, field := range c.fields() {
		out = append(out, field.data...)
	}

	return out
}

// Len returns the length of the encoded
// instruction.
func (c *Code) Len() int {
	var n int
	for _, field := range c.fields() {
		n += len(field.data)
	}

	return n
}

type codeField struct {
	name string
	data []byte
}

func (c *Code) fields() []codeField {
	fields := make([]codeField, 0, 7)
	add := func(name string, data []byte) {
		if len(data) > 0 {
			fields = append(fields, codeField{name, data})
		}
	}

	prefixes := make([]byte, len(c.Prefixes))
	for i, p := range c.Prefixes {
		prefixes[i] = byte(p)
	}

	add("prefixes", prefixes)
	add("opcode", c.Opcode)
	if c.ModRM != nil {
		add("modrm", []byte{c.ModRM.Byte()})
	}
	if c.SIB != nil {
		add("sib", []byte{c.SIB.Byte()})
	}
	add("displacement", c.Displacement)
	add("offset", c.Offset)
	add("immediate", c.Immediate)

	return fields
}

// String lists the non-empty fields,
// such as "opcode=eb offset=fe".
func (c *Code) String() string {
	fields := c.fields()
	parts := make([]string, len(fields))
	for i, field := range fields {
		parts[i] = fmt.Sprintf("%s=% x", field.name, field.data)
	}

	return strings.Join(parts, " ")
}

// LittleEndian returns the low size
// bytes of v, least significant first.
func LittleEndian(v uint64, size int) []byte {
	out := make([]byte, size)
	for i := range out {
		out[i] = byte(v >> (8 * i))
	}

	return out
}

// Prefix is a legacy prefix byte.
type Prefix byte

const (
	PrefixOperandSize Prefix = 0x66
	PrefixAddressSize Prefix = 0x67
	PrefixRepeatNot   Prefix = 0xf2
	PrefixRepeat      Prefix = 0xf3
)

var prefixNames = map[Prefix]string{
	PrefixOperandSize: "opsize",
	PrefixAddressSize: "addrsize",
	PrefixRepeatNot:   "repne",
	PrefixRepeat:      "rep",
}

func (p Prefix) String() string {
	if name, ok := prefixNames[p]; ok {
		return name
	}

	return fmt.Sprintf("Prefix(%#02x)", byte(p))
}

// Special values of the ModR/M r/m field
// when Mod is not 0b11.
const (
	RMSIB            = 0b100 // A SIB byte follows.
	RMDisplacement32 = 0b101 // 32-bit addressing, Mod 0b00.
	RMDisplacement16 = 0b110 // 16-bit addressing, Mod 0b00.
)

// SIBBaseNone is the SIB base field that
// selects a displacement with no base
// register when Mod is 0b00.
const SIBBaseNone = 0b101

// ModRM is a decoded ModR/M byte.
type ModRM struct {
	Mod byte // 2 bits.
	Reg byte // 3 bits. Also the opcode group digit.
	RM  byte // 3 bits.
}

// Byte packs m into a ModR/M byte.
func (m ModRM) Byte() byte {
	return (m.Mod&3)<<6 | (m.Reg&7)<<3 | m.RM&7
}

func (m ModRM) String() string {
	return fmt.Sprintf("mod=%02b reg=%03b rm=%03b", m.Mod&3, m.Reg&7, m.RM&7)
}

// SIB is a decoded scale-index-base byte.
type SIB struct {
	Scale byte // Encoded scale, 2 bits.
	Index byte // 3 bits.
	Base  byte // 3 bits.
}

// Byte packs s into a SIB byte.
func (s SIB) Byte() byte {
	return (s.Scale&3)<<6 | (s.Index&7)<<3 | s.Base&7
}

func (s SIB) String() string {
	return fmt.Sprintf("scale=%02b index=%03b base=%03b", s.Scale&3, s.Index&7, s.Base&7)
}

// Comparison is an SSE comparison
// predicate, as used by CMPPS and
// CMPSS.
type Comparison byte

const (
	CompareEqual Comparison = iota
	CompareLess
	CompareLessEqual
	CompareUnordered
	CompareNotEqual
	CompareNotLess
	CompareNotLessEqual
	CompareOrdered
)

// Comparisons lists the predicates in
// order of their encoding.
var Comparisons = []Comparison{
	CompareEqual, CompareLess, CompareLessEqual, CompareUnordered,
	CompareNotEqual, CompareNotLess, CompareNotLessEqual, CompareOrdered,
}

var comparisonNames = [...]string{"eq", "lt", "le", "unord", "neq", "nlt", "nle", "ord"}

func (c Comparison) String() string {
	if int(c) < len(comparisonNames) {
		return comparisonNames[c]
	}

	return fmt.Sprintf("Comparison(%d)", byte(c))
}
