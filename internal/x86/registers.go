// Copyright 2023 The Firefly Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

package x86

import (
	"encoding/json"
	"fmt"
)

// Register contains information about
// an IA-32 register, including its size
// in bits (for fixed-size register
// groups) and its encodings.
type Register struct {
	Name    string       `json:"name"`
	Type    RegisterType `json:"-"`
	Bits    int          `json:"-"`
	Reg     byte         `json:"-"` // The 3-bit encoding of the register for ModR/M.reg, ModR/M.rm (mod 11) and opcodes.
	Addr    byte         `json:"-"` // The 3-bit encoding of the register in address form.
	Aliases []string     `json:"-"`
}

func (r *Register) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Name)
}

func (r *Register) UnmarshalJSON(data []byte) error {
	var s string
	err := json.Unmarshal(data, &s)
	if err != nil {
		return err
	}

	got, ok := RegistersByName[s]
	if !ok {
		return fmt.Errorf("invalid register %q", s)
	}

	*r = *got

	return nil
}

func (r *Register) String() string { return r.Name }

var (
	// 8-bit registers.
	AL = &Register{Name: "al", Type: TypeGeneralPurpose, Reg: 0x0, Addr: 0x0, Bits: 8}
	CL = &Register{Name: "cl", Type: TypeGeneralPurpose, Reg: 0x1, Addr: 0x1, Bits: 8}
	DL = &Register{Name: "dl", Type: TypeGeneralPurpose, Reg: 0x2, Addr: 0x2, Bits: 8}
	BL = &Register{Name: "bl", Type: TypeGeneralPurpose, Reg: 0x3, Addr: 0x3, Bits: 8}
	AH = &Register{Name: "ah", Type: TypeGeneralPurpose, Reg: 0x4, Addr: 0x4, Bits: 8}
	CH = &Register{Name: "ch", Type: TypeGeneralPurpose, Reg: 0x5, Addr: 0x5, Bits: 8}
	DH = &Register{Name: "dh", Type: TypeGeneralPurpose, Reg: 0x6, Addr: 0x6, Bits: 8}
	BH = &Register{Name: "bh", Type: TypeGeneralPurpose, Reg: 0x7, Addr: 0x7, Bits: 8}

	// 16-bit registers. The address
	// form is the ModR/M.rm value in
	// 16-bit addressing.
	AX = &Register{Name: "ax", Type: TypeGeneralPurpose, Reg: 0x0, Addr: 0x0, Bits: 16}
	CX = &Register{Name: "cx", Type: TypeGeneralPurpose, Reg: 0x1, Addr: 0x1, Bits: 16}
	DX = &Register{Name: "dx", Type: TypeGeneralPurpose, Reg: 0x2, Addr: 0x2, Bits: 16}
	BX = &Register{Name: "bx", Type: TypeGeneralPurpose, Reg: 0x3, Addr: 0x7, Bits: 16}
	SP = &Register{Name: "sp", Type: TypeGeneralPurpose, Reg: 0x4, Addr: 0x4, Bits: 16}
	BP = &Register{Name: "bp", Type: TypeGeneralPurpose, Reg: 0x5, Addr: 0x6, Bits: 16}
	SI = &Register{Name: "si", Type: TypeGeneralPurpose, Reg: 0x6, Addr: 0x4, Bits: 16}
	DI = &Register{Name: "di", Type: TypeGeneralPurpose, Reg: 0x7, Addr: 0x5, Bits: 16}

	// 32-bit registers.
	EAX = &Register{Name: "eax", Type: TypeGeneralPurpose, Reg: 0x0, Addr: 0x0, Bits: 32}
	ECX = &Register{Name: "ecx", Type: TypeGeneralPurpose, Reg: 0x1, Addr: 0x1, Bits: 32}
	EDX = &Register{Name: "edx", Type: TypeGeneralPurpose, Reg: 0x2, Addr: 0x2, Bits: 32}
	EBX = &Register{Name: "ebx", Type: TypeGeneralPurpose, Reg: 0x3, Addr: 0x3, Bits: 32}
	ESP = &Register{Name: "esp", Type: TypeGeneralPurpose, Reg: 0x4, Addr: 0x4, Bits: 32}
	EBP = &Register{Name: "ebp", Type: TypeGeneralPurpose, Reg: 0x5, Addr: 0x5, Bits: 32}
	ESI = &Register{Name: "esi", Type: TypeGeneralPurpose, Reg: 0x6, Addr: 0x6, Bits: 32}
	EDI = &Register{Name: "edi", Type: TypeGeneralPurpose, Reg: 0x7, Addr: 0x7, Bits: 32}

	// 16-bit register pairs.
	BX_SI = &Register{Name: "bx_si", Type: TypePair, Addr: 0x0, Bits: 16, Aliases: []string{"bx+si"}}
	BX_DI = &Register{Name: "bx_di", Type: TypePair, Addr: 0x1, Bits: 16, Aliases: []string{"bx+di"}}
	BP_SI = &Register{Name: "bp_si", Type: TypePair, Addr: 0x2, Bits: 16, Aliases: []string{"bp+si"}}
	BP_DI = &Register{Name: "bp_di", Type: TypePair, Addr: 0x3, Bits: 16, Aliases: []string{"bp+di"}}

	// Segment registers.
	ES = &Register{Name: "es", Type: TypeSegment, Reg: 0x0, Addr: 0x0, Bits: 16}
	CS = &Register{Name: "cs", Type: TypeSegment, Reg: 0x1, Addr: 0x1, Bits: 16}
	SS = &Register{Name: "ss", Type: TypeSegment, Reg: 0x2, Addr: 0x2, Bits: 16}
	DS = &Register{Name: "ds", Type: TypeSegment, Reg: 0x3, Addr: 0x3, Bits: 16}
	FS = &Register{Name: "fs", Type: TypeSegment, Reg: 0x4, Addr: 0x4, Bits: 16}
	GS = &Register{Name: "gs", Type: TypeSegment, Reg: 0x5, Addr: 0x5, Bits: 16}

	// Control registers.
	CR0 = &Register{Name: "cr0", Type: TypeControl, Reg: 0, Bits: 32}
	CR1 = &Register{Name: "cr1", Type: TypeControl, Reg: 1, Bits: 32}
	CR2 = &Register{Name: "cr2", Type: TypeControl, Reg: 2, Bits: 32}
	CR3 = &Register{Name: "cr3", Type: TypeControl, Reg: 3, Bits: 32}
	CR4 = &Register{Name: "cr4", Type: TypeControl, Reg: 4, Bits: 32}
	CR5 = &Register{Name: "cr5", Type: TypeControl, Reg: 5, Bits: 32}
	CR6 = &Register{Name: "cr6", Type: TypeControl, Reg: 6, Bits: 32}
	CR7 = &Register{Name: "cr7", Type: TypeControl, Reg: 7, Bits: 32}

	// Debug registers.
	DR0 = &Register{Name: "dr0", Type: TypeDebug, Reg: 0, Bits: 32}
	DR1 = &Register{Name: "dr1", Type: TypeDebug, Reg: 1, Bits: 32}
	DR2 = &Register{Name: "dr2", Type: TypeDebug, Reg: 2, Bits: 32}
	DR3 = &Register{Name: "dr3", Type: TypeDebug, Reg: 3, Bits: 32}
	DR4 = &Register{Name: "dr4", Type: TypeDebug, Reg: 4, Bits: 32}
	DR5 = &Register{Name: "dr5", Type: TypeDebug, Reg: 5, Bits: 32}
	DR6 = &Register{Name: "dr6", Type: TypeDebug, Reg: 6, Bits: 32}
	DR7 = &Register{Name: "dr7", Type: TypeDebug, Reg: 7, Bits: 32}

	// MMX registers.
	MM0 = &Register{Name: "mm0", Type: TypeMMX, Reg: 0, Addr: 0, Bits: 64, Aliases: []string{"mmx0"}}
	MM1 = &Register{Name: "mm1", Type: TypeMMX, Reg: 1, Addr: 1, Bits: 64, Aliases: []string{"mmx1"}}
	MM2 = &Register{Name: "mm2", Type: TypeMMX, Reg: 2, Addr: 2, Bits: 64, Aliases: []string{"mmx2"}}
	MM3 = &Register{Name: "mm3", Type: TypeMMX, Reg: 3, Addr: 3, Bits: 64, Aliases: []string{"mmx3"}}
	MM4 = &Register{Name: "mm4", Type: TypeMMX, Reg: 4, Addr: 4, Bits: 64, Aliases: []string{"mmx4"}}
	MM5 = &Register{Name: "mm5", Type: TypeMMX, Reg: 5, Addr: 5, Bits: 64, Aliases: []string{"mmx5"}}
	MM6 = &Register{Name: "mm6", Type: TypeMMX, Reg: 6, Addr: 6, Bits: 64, Aliases: []string{"mmx6"}}
	MM7 = &Register{Name: "mm7", Type: TypeMMX, Reg: 7, Addr: 7, Bits: 64, Aliases: []string{"mmx7"}}

	// XMM registers.
	XMM0 = &Register{Name: "xmm0", Type: TypeXMM, Reg: 0, Addr: 0, Bits: 128}
	XMM1 = &Register{Name: "xmm1", Type: TypeXMM, Reg: 1, Addr: 1, Bits: 128}
	XMM2 = &Register{Name: "xmm2", Type: TypeXMM, Reg: 2, Addr: 2, Bits: 128}
	XMM3 = &Register{Name: "xmm3", Type: TypeXMM, Reg: 3, Addr: 3, Bits: 128}
	XMM4 = &Register{Name: "xmm4", Type: TypeXMM, Reg: 4, Addr: 4, Bits: 128}
	XMM5 = &Register{Name: "xmm5", Type: TypeXMM, Reg: 5, Addr: 5, Bits: 128}
	XMM6 = &Register{Name: "xmm6", Type: TypeXMM, Reg: 6, Addr: 6, Bits: 128}
	XMM7 = &Register{Name: "xmm7", Type: TypeXMM, Reg: 7, Addr: 7, Bits: 128}
)

var Registers = []*Register{
	AL, CL, DL, BL, AH, CH, DH, BH,
	AX, CX, DX, BX, SP, BP, SI, DI,
	EAX, ECX, EDX, EBX, ESP, EBP, ESI, EDI,
	BX_SI, BX_DI, BP_SI, BP_DI,
	ES, CS, SS, DS, FS, GS,
	CR0, CR1, CR2, CR3, CR4, CR5, CR6, CR7,
	DR0, DR1, DR2, DR3, DR4, DR5, DR6, DR7,
	MM0, MM1, MM2, MM3, MM4, MM5, MM6, MM7,
	XMM0, XMM1, XMM2, XMM3, XMM4, XMM5, XMM6, XMM7,
}

// RegistersByName maps register names
// and aliases (lower case) to the
// register.
var RegistersByName = make(map[string]*Register)

func init() {
	for _, reg := range Registers {
		RegistersByName[reg.Name] = reg
		for _, alias := range reg.Aliases {
			RegistersByName[alias] = reg
		}
	}
}

// RegisterType categorises an x86
// register.
type RegisterType uint8

const (
	_ RegisterType = iota
	TypeGeneralPurpose
	TypePair // Pseudo-registers representing a register pair (like bx+si).
	TypeSegment
	TypeControl
	TypeDebug
	TypeMMX
	TypeXMM
)

func (t RegisterType) String() string {
	switch t {
	case TypeGeneralPurpose:
		return "general purpose register"
	case TypePair:
		return "register pair"
	case TypeSegment:
		return "segment register"
	case TypeControl:
		return "control register"
	case TypeDebug:
		return "debug register"
	case TypeMMX:
		return "MMX register"
	case TypeXMM:
		return "XMM register"
	default:
		return fmt.Sprintf("RegisterType(%d)", t)
	}
}

// RegisterFile selects the set of
// registers an operand may name and
// the way a member is encoded.
type RegisterFile uint8

const (
	_ RegisterFile = iota
	FileGeneral8
	FileGeneral16
	FileGeneral32
	FileIndirect16 // 16-bit register-indirect addressing ([bx+si], [bx], ...).
	FileIndirect32 // 32-bit register-indirect addressing without SIB.
	FileBase32     // SIB base registers.
	FileIndex32    // SIB index registers.
	FileMMX
	FileXMM
	FileSegment
	FileControl
	FileDebug
)

// RegisterFiles lists every register
// file.
var RegisterFiles = []RegisterFile{
	FileGeneral8, FileGeneral16, FileGeneral32,
	FileIndirect16, FileIndirect32, FileBase32, FileIndex32,
	FileMMX, FileXMM,
	FileSegment, FileControl, FileDebug,
}

// GeneralFile returns the general
// purpose register file of the given
// width.
func GeneralFile(bits int) (RegisterFile, bool) {
	switch bits {
	case 8:
		return FileGeneral8, true
	case 16:
		return FileGeneral16, true
	case 32:
		return FileGeneral32, true
	default:
		return 0, false
	}
}

// Registers returns the members of
// the register file in encoding order.
func (f RegisterFile) Registers() []*Register {
	switch f {
	case FileGeneral8:
		return []*Register{AL, CL, DL, BL, AH, CH, DH, BH}
	case FileGeneral16:
		return []*Register{AX, CX, DX, BX, SP, BP, SI, DI}
	case FileGeneral32:
		return []*Register{EAX, ECX, EDX, EBX, ESP, EBP, ESI, EDI}
	case FileIndirect16:
		return []*Register{BX_SI, BX_DI, BP_SI, BP_DI, SI, DI, BP, BX}
	case FileIndirect32:
		// esp in ModR/M.rm selects a SIB byte.
		return []*Register{EAX, ECX, EDX, EBX, EBP, ESI, EDI}
	case FileBase32:
		return []*Register{EAX, ECX, EDX, EBX, ESP, EBP, ESI, EDI}
	case FileIndex32:
		// esp in SIB.index means no index.
		return []*Register{EAX, ECX, EDX, EBX, EBP, ESI, EDI}
	case FileMMX:
		return []*Register{MM0, MM1, MM2, MM3, MM4, MM5, MM6, MM7}
	case FileXMM:
		return []*Register{XMM0, XMM1, XMM2, XMM3, XMM4, XMM5, XMM6, XMM7}
	case FileSegment:
		return []*Register{ES, CS, SS, DS, FS, GS}
	case FileControl:
		return []*Register{CR0, CR2, CR3, CR4}
	case FileDebug:
		return []*Register{DR0, DR1, DR2, DR3, DR4, DR5, DR6, DR7}
	default:
		return nil
	}
}

// Addressing reports whether the file's
// members are encoded in address form.
func (f RegisterFile) Addressing() bool {
	switch f {
	case FileIndirect16, FileIndirect32, FileBase32, FileIndex32:
		return true
	default:
		return false
	}
}

// Encode returns the 3-bit encoding of
// r as a member of the register file.
func (f RegisterFile) Encode(r *Register) byte {
	if f == FileIndirect16 {
		return r.Addr & 7
	}

	return r.Reg & 7
}

func (f RegisterFile) String() string {
	switch f {
	case FileGeneral8:
		return "general8"
	case FileGeneral16:
		return "general16"
	case FileGeneral32:
		return "general32"
	case FileIndirect16:
		return "indirect16"
	case FileIndirect32:
		return "indirect32"
	case FileBase32:
		return "base32"
	case FileIndex32:
		return "index32"
	case FileMMX:
		return "mmx"
	case FileXMM:
		return "xmm"
	case FileSegment:
		return "segment"
	case FileControl:
		return "control"
	case FileDebug:
		return "debug"
	default:
		return fmt.Sprintf("RegisterFile(%d)", uint8(f))
	}
}

func (f RegisterFile) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

func (f *RegisterFile) UnmarshalText(text []byte) error {
	for _, file := range RegisterFiles {
		if file.String() == string(text) {
			*f = file
			return nil
		}
	}

	return fmt.Errorf("invalid register file %q", text)
}
