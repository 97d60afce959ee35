// Copyright 2023 The Firefly Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

package x86

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestCodeBytes(t *testing.T) {
	tests := []struct {
		Name   string
		Code   *Code
		Want   []byte
		String string
	}{
		{
			Name:   "opcode only",
			Code:   &Code{Opcode: []byte{0x90}},
			Want:   []byte{0x90},
			String: "opcode=90",
		},
		{
			// add [eax], al
			Name:   "zero ModR/M",
			Code:   &Code{Opcode: []byte{0x00}, ModRM: &ModRM{}},
			Want:   []byte{0x00, 0x00},
			String: "opcode=00 modrm=00",
		},
		{
			// add [eax+eax], al
			Name:   "zero SIB",
			Code:   &Code{Opcode: []byte{0x00}, ModRM: &ModRM{RM: RMSIB}, SIB: &SIB{}},
			Want:   []byte{0x00, 0x04, 0x00},
			String: "opcode=00 modrm=04 sib=00",
		},
		{
			// addr16 data16 add word [bx+si+0x1234], 0x5678
			Name: "prefixes and trailing fields",
			Code: &Code{
				Prefixes:     []Prefix{PrefixOperandSize, PrefixAddressSize},
				Opcode:       []byte{0x81},
				ModRM:        &ModRM{Mod: 0b10},
				Displacement: LittleEndian(0x1234, 2),
				Immediate:    LittleEndian(0x5678, 2),
			},
			Want:   []byte{0x66, 0x67, 0x81, 0x80, 0x34, 0x12, 0x78, 0x56},
			String: "prefixes=66 67 opcode=81 modrm=80 displacement=34 12 immediate=78 56",
		},
		{
			Name: "code offset",
			Code: &Code{
				Opcode: []byte{0xe9},
				Offset: LittleEndian(0xfffffffe, 4),
			},
			Want:   []byte{0xe9, 0xfe, 0xff, 0xff, 0xff},
			String: "opcode=e9 offset=fe ff ff ff",
		},
	}

	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			code := test.Code
			if diff := cmp.Diff(test.Want, code.Bytes()); diff != "" {
				t.Fatalf("%s.Bytes(): (-want, +got)\n%s", code, diff)
			}

			if code.Len() != len(test.Want) {
				t.Fatalf("%s.Len(): got %d, want %d", code, code.Len(), len(test.Want))
			}

			if got := code.String(); got != test.String {
				t.Fatalf("String(): got %q, want %q", got, test.String)
			}
		})
	}
}

func TestUseModRMAndSIB(t *testing.T) {
	var code Code
	code.UseModRM().Mod = 0b01
	code.UseModRM().Reg = 0b101
	code.UseModRM().RM = RMSIB
	code.UseSIB().Scale = Scale(8).Code()
	code.UseSIB().Index = ESI.Reg
	code.UseSIB().Base = EBX.Reg

	if got := code.ModRM.Byte(); got != 0b01_101_100 {
		t.Fatalf("ModR/M: got %08b, want %08b", got, 0b01_101_100)
	}

	if got := code.SIB.Byte(); got != 0b11_110_011 {
		t.Fatalf("SIB: got %08b, want %08b", got, 0b11_110_011)
	}

	if got := (ModRM{Mod: 0b11, Reg: 0b010, RM: 0b001}).String(); got != "mod=11 reg=010 rm=001" {
		t.Fatalf("ModRM.String(): got %q", got)
	}
}

func TestEnumerations(t *testing.T) {
	for _, mode := range Modes {
		got, err := ModeFromInt(int(mode.Int))
		if err != nil || got != mode {
			t.Fatalf("ModeFromInt(%d): got %v, %v", mode.Int, got, err)
		}
	}

	if _, err := ModeFromInt(64); err == nil {
		t.Fatal("ModeFromInt(64): unexpected success")
	}

	if Mode16.AlternateSize() != 32 || Mode32.AlternateSize() != 16 {
		t.Fatal("AlternateSize: wrong sizes")
	}

	var names []string
	for _, scale := range Scales {
		names = append(names, fmt.Sprintf("%s:%d", scale, scale.Code()))
	}
	for _, c := range Comparisons {
		names = append(names, fmt.Sprintf("%s:%d", c, byte(c)))
	}

	want := []string{
		"1:0", "2:1", "4:2", "8:3",
		"eq:0", "lt:1", "le:2", "unord:3", "neq:4", "nlt:5", "nle:6", "ord:7",
	}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Fatalf("Scales and Comparisons: (-want, +got)\n%s", diff)
	}

	if got := PrefixAddressSize.String(); got != "addrsize" {
		t.Fatalf("PrefixAddressSize.String(): got %q", got)
	}
}

func TestRegisterFiles(t *testing.T) {
	tests := []struct {
		File RegisterFile
		Want []byte
	}{
		{FileGeneral8, []byte{0, 1, 2, 3, 4, 5, 6, 7}},
		{FileIndirect16, []byte{0, 1, 2, 3, 4, 5, 6, 7}},
		{FileIndirect32, []byte{0, 1, 2, 3, 5, 6, 7}},
		{FileIndex32, []byte{0, 1, 2, 3, 5, 6, 7}},
		{FileSegment, []byte{0, 1, 2, 3, 4, 5}},
	}

	for _, test := range tests {
		t.Run(test.File.String(), func(t *testing.T) {
			var got []byte
			for _, reg := range test.File.Registers() {
				got = append(got, test.File.Encode(reg))
			}

			if diff := cmp.Diff(test.Want, got); diff != "" {
				t.Fatalf("%s encodings: (-want, +got)\n%s", test.File, diff)
			}

			text, err := test.File.MarshalText()
			if err != nil {
				t.Fatal(err)
			}

			var file RegisterFile
			if err := file.UnmarshalText(text); err != nil || file != test.File {
				t.Fatalf("UnmarshalText(%q): got %s, %v", text, file, err)
			}
		})
	}
}

func TestMemoryString(t *testing.T) {
	tests := []struct {
		Memory Memory
		Want   string
	}{
		{Memory{Base: EAX}, "[eax]"},
		{Memory{Base: BX_SI, Displacement: 0x10}, "[bx+si+0x10]"},
		{Memory{Base: EBX, Index: ESI, Scale: 4, Displacement: -8}, "[ebx+esi*4-0x8]"},
		{Memory{Index: ECX, Scale: 1}, "[ecx]"},
		{Memory{Displacement: 0x1234, Absolute: true}, "[0x1234]"},
	}

	for _, test := range tests {
		if got := test.Memory.String(); got != test.Want {
			t.Errorf("Memory.String(): got %q, want %q", got, test.Want)
		}
	}
}
