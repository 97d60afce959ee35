// Copyright 2023 The Firefly Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

package template

import (
	"fmt"
	"strings"

	"firefly-os.dev/tools/asmgen/internal/x86"
)

// ModCase is the value of the ModR/M.mod
// field under consideration.
type ModCase uint8

const (
	ModUnused ModCase = iota
	Mod0
	Mod1
	Mod2
	Mod3
)

var modCases = []string{
	ModUnused: "-",
	Mod0:      "MOD_0",
	Mod1:      "MOD_1",
	Mod2:      "MOD_2",
	Mod3:      "MOD_3",
}

// Bits returns the 2-bit encoding of
// the mod field.
func (m ModCase) Bits() byte {
	if m == ModUnused {
		return 0
	}

	return byte(m - Mod0)
}

func (m ModCase) String() string {
	if int(m) < len(modCases) {
		return modCases[m]
	}

	return fmt.Sprintf("ModCase(%d)", uint8(m))
}

func (m ModCase) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m *ModCase) UnmarshalText(text []byte) error {
	return unmarshalCase(text, modCases, (*uint8)(m), "mod case")
}

// RMCase is the shape of the ModR/M.rm
// field under consideration.
type RMCase uint8

const (
	RMUnused RMCase = iota
	RMNormal        // A register, or a register-indirect address.
	RMSWord         // A 16-bit absolute address.
	RMSDWord        // A 32-bit absolute address.
	RMSIB           // A SIB byte follows.
)

var rmCases = []string{
	RMUnused: "-",
	RMNormal: "NORMAL",
	RMSWord:  "SWORD",
	RMSDWord: "SDWORD",
	RMSIB:    "SIB",
}

func (r RMCase) String() string {
	if int(r) < len(rmCases) {
		return rmCases[r]
	}

	return fmt.Sprintf("RMCase(%d)", uint8(r))
}

func (r RMCase) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

func (r *RMCase) UnmarshalText(text []byte) error {
	return unmarshalCase(text, rmCases, (*uint8)(r), "rm case")
}

// SIBBaseCase is the shape of the SIB.base
// field under consideration.
type SIBBaseCase uint8

const (
	SIBBaseUnused SIBBaseCase = iota
	SIBBaseGeneral
	SIBBaseSpecial // No base register; a 32-bit address follows.
)

var sibBaseCases = []string{
	SIBBaseUnused:  "-",
	SIBBaseGeneral: "GENERAL_REGISTER",
	SIBBaseSpecial: "SPECIAL",
}

func (s SIBBaseCase) String() string {
	if int(s) < len(sibBaseCases) {
		return sibBaseCases[s]
	}

	return fmt.Sprintf("SIBBaseCase(%d)", uint8(s))
}

func (s SIBBaseCase) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *SIBBaseCase) UnmarshalText(text []byte) error {
	return unmarshalCase(text, sibBaseCases, (*uint8)(s), "SIB base case")
}

// SIBIndexCase is the shape of the SIB.index
// field under consideration.
type SIBIndexCase uint8

const (
	SIBIndexUnused SIBIndexCase = iota
	SIBIndexGeneral
	SIBIndexNone
)

var sibIndexCases = []string{
	SIBIndexUnused:  "-",
	SIBIndexGeneral: "GENERAL_REGISTER",
	SIBIndexNone:    "NONE",
}

func (s SIBIndexCase) String() string {
	if int(s) < len(sibIndexCases) {
		return sibIndexCases[s]
	}

	return fmt.Sprintf("SIBIndexCase(%d)", uint8(s))
}

func (s SIBIndexCase) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *SIBIndexCase) UnmarshalText(text []byte) error {
	return unmarshalCase(text, sibIndexCases, (*uint8)(s), "SIB index case")
}

func unmarshalCase(text []byte, names []string, v *uint8, what string) error {
	for i, name := range names {
		if name == string(text) {
			*v = uint8(i)
			return nil
		}
	}

	return fmt.Errorf("invalid %s %q", what, text)
}

// Context is one concrete combination of
// encoding parameters under which an
// instruction description is resolved.
//
// The Mod, RM, SIBBase, and SIBIndex
// fields are unused (zero) when the
// instruction has no ModR/M byte, or
// when the context selects no SIB byte.
type Context struct {
	AddressSize int          `json:"addressSize"`
	OperandSize int          `json:"operandSize"`
	Mod         ModCase      `json:"mod"`
	RM          RMCase       `json:"rm"`
	SIBBase     SIBBaseCase  `json:"sibBase"`
	SIBIndex    SIBIndexCase `json:"sibIndex"`
}

func (c Context) String() string {
	var s strings.Builder
	fmt.Fprintf(&s, "addr%d op%d", c.AddressSize, c.OperandSize)
	if c.Mod != ModUnused {
		fmt.Fprintf(&s, " %s %s", c.Mod, c.RM)
	}
	if c.SIBBase != SIBBaseUnused || c.SIBIndex != SIBIndexUnused {
		fmt.Fprintf(&s, " base=%s index=%s", c.SIBBase, c.SIBIndex)
	}

	return s.String()
}

// Example returns a memory reference
// with the shape c selects, or false if
// c does not address memory.
func (c Context) Example() (*x86.Memory, bool) {
	if c.Mod == ModUnused || c.Mod == Mod3 {
		return nil, false
	}

	var mem x86.Memory
	switch c.Mod {
	case Mod1:
		mem.Displacement = 0x10
	case Mod2:
		mem.Displacement = 0x1000
	}

	switch c.RM {
	case RMSWord:
		mem.Displacement = 0x1234
		mem.Absolute = true
	case RMSDWord:
		mem.Displacement = 0x12345678
		mem.Absolute = true
	case RMNormal:
		if c.AddressSize == 16 {
			mem.Base = x86.BX_SI
		} else {
			mem.Base = x86.EAX
		}
	case RMSIB:
		if c.SIBBase == SIBBaseSpecial {
			mem.Displacement = 0x12345678
		} else {
			mem.Base = x86.EAX
		}
		if c.SIBIndex == SIBIndexGeneral {
			mem.Index = x86.ECX
			mem.Scale = 4
		}
	default:
		return nil, false
	}

	return &mem, true
}
