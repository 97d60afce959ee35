// Copyright 2023 The Firefly Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

package isa

import (
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"

	"firefly-os.dev/tools/asmgen/internal/x86"
)

//go:embed instructions.toml
var instructionsTOML string

var (
	instructionsOnce sync.Once
	instructions     []*Description
	instructionsErr  error
)

// Instructions returns the embedded
// instruction database, in file order.
//
// The returned descriptions are shared
// and must not be modified.
func Instructions() ([]*Description, error) {
	instructionsOnce.Do(func() {
		instructions, instructionsErr = Parse("instructions.toml", instructionsTOML)
	})

	return instructions, instructionsErr
}

type database struct {
	Instruction []instruction `toml:"instruction"`
}

type instruction struct {
	Mnemonic    string     `toml:"mnemonic"`
	Opcode      []int      `toml:"opcode"`
	Group       *int       `toml:"group"`
	Prefix      int        `toml:"prefix"`
	OperandSize int        `toml:"operand_size"`
	Modes       []int      `toml:"modes"`
	Testable    *bool      `toml:"testable"`
	Operands    []string   `toml:"operands"`
	Argument    []argument `toml:"argument"`
}

type argument struct {
	Operand int      `toml:"operand"`
	Range   []int64  `toml:"range"`
	Exclude []string `toml:"exclude"`
}

// Parse decodes an instruction database in
// TOML form. Each description is checked for
// consistency and given a unique identifier.
func Parse(name, data string) ([]*Description, error) {
	var db database
	md, err := toml.Decode(data, &db)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %v", name, err)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, key := range undecoded {
			keys[i] = key.String()
		}

		return nil, fmt.Errorf("failed to parse %s: unrecognised fields: %s", name, strings.Join(keys, ", "))
	}

	descs := make([]*Description, 0, len(db.Instruction))
	uids := make(map[string]int)
	for i, inst := range db.Instruction {
		desc, err := inst.description()
		if err != nil {
			return nil, fmt.Errorf("%s: instruction %d (%s): %v", name, i+1, inst.Mnemonic, err)
		}

		if err := CheckDescription(desc); err != nil {
			return nil, fmt.Errorf("%s: instruction %d (%s): %v", name, i+1, desc.Syntax(), err)
		}

		desc.UID = desc.uid()
		if prev, ok := uids[desc.UID]; ok {
			return nil, fmt.Errorf("%s: instruction %d has the same UID %s as instruction %d", name, i+1, desc.UID, prev)
		}

		uids[desc.UID] = i + 1
		descs = append(descs, desc)
	}

	return descs, nil
}

func (inst *instruction) description() (*Description, error) {
	desc := &Description{
		Mnemonic:    inst.Mnemonic,
		Group:       NoGroup,
		Prefix:      x86.Prefix(inst.Prefix),
		OperandSize: inst.OperandSize,
		Testable:    true,
	}

	switch len(inst.Opcode) {
	case 2:
		if inst.Opcode[1] < 0 || inst.Opcode[1] > 0xff {
			return nil, fmt.Errorf("invalid opcode byte %#x", inst.Opcode[1])
		}

		desc.Opcode2 = byte(inst.Opcode[1])
		desc.HasOpcode2 = true
		fallthrough
	case 1:
		if inst.Opcode[0] < 0 || inst.Opcode[0] > 0xff {
			return nil, fmt.Errorf("invalid opcode byte %#x", inst.Opcode[0])
		}

		desc.Opcode1 = byte(inst.Opcode[0])
	default:
		return nil, fmt.Errorf("found %d opcode bytes, want 1 or 2", len(inst.Opcode))
	}

	if inst.Group != nil {
		desc.Group = *inst.Group
	}
	if inst.Testable != nil {
		desc.Testable = *inst.Testable
	}

	if len(inst.Modes) == 0 {
		desc.Modes = x86.Modes
	}
	for _, bits := range inst.Modes {
		mode, err := x86.ModeFromInt(bits)
		if err != nil {
			return nil, err
		}

		desc.Modes = append(desc.Modes, mode)
	}

	desc.Operands = make([]*Operand, len(inst.Operands))
	for i, s := range inst.Operands {
		op, err := parseOperand(s)
		if err != nil {
			return nil, err
		}

		switch {
		case len(inst.Operands) == 1:
			op.Designation = Other
		case i == 0:
			op.Designation = Destination
		default:
			op.Designation = Source
		}

		desc.Operands[i] = op
	}

	for _, arg := range inst.Argument {
		if arg.Operand < 0 || arg.Operand >= len(desc.Operands) {
			return nil, fmt.Errorf("argument refers to operand %d of %d", arg.Operand, len(desc.Operands))
		}

		op := desc.Operands[arg.Operand]
		if op.IsImplicit() {
			return nil, fmt.Errorf("argument refers to implicit operand %s", op)
		}

		if arg.Range != nil {
			if len(arg.Range) != 2 || arg.Range[0] > arg.Range[1] {
				return nil, fmt.Errorf("invalid range %v for operand %s", arg.Range, op)
			}

			op.Range = &Range{Min: arg.Range[0], Max: arg.Range[1]}
		}

		op.Exclude = append(op.Exclude, arg.Exclude...)
	}

	return desc, nil
}

// CheckDescription performs various sanity
// checks on the description to identify
// logical errors.
func CheckDescription(desc *Description) error {
	if desc.Mnemonic == "" {
		return errors.New("missing mnemonic")
	}

	if desc.Mnemonic != strings.ToLower(desc.Mnemonic) {
		return fmt.Errorf("mnemonic %q is not lower case", desc.Mnemonic)
	}

	switch desc.Prefix {
	case 0, x86.PrefixOperandSize, x86.PrefixRepeatNot, x86.PrefixRepeat:
	default:
		return fmt.Errorf("invalid mandatory prefix %s", desc.Prefix)
	}

	switch desc.OperandSize {
	case 0, 16, 32:
	default:
		return fmt.Errorf("invalid operand size %d", desc.OperandSize)
	}

	if len(desc.Modes) == 0 {
		return errors.New("no CPU modes")
	}

	var memory, registerModifier string
	for _, op := range desc.Operands {
		if op.IsImplicit() {
			continue
		}

		if op.Code.UsesModRMrm() {
			if memory != "" {
				return fmt.Errorf("found operands %s and %s encoded in ModR/M.rm", memory, op.Code)
			}

			memory = op.Code.String()
		}

		switch op.Code {
		case Nb, Nd, Nv:
			if registerModifier != "" {
				return fmt.Errorf("found register modifiers %s and %s encoded in the opcode", registerModifier, op.Code)
			}

			registerModifier = op.Code.String()
		}
	}

	if desc.Group != NoGroup {
		if desc.Group < 0 || desc.Group > 7 {
			return fmt.Errorf("invalid opcode extension /%d", desc.Group)
		}

		if memory == "" {
			return fmt.Errorf("opcode extension /%d without a ModR/M operand", desc.Group)
		}
	}

	return nil
}

// UsesModRMrm reports whether the operand
// code's addressing method encodes the
// operand in ModR/M.rm.
func (c OperandCode) UsesModRMrm() bool {
	name := c.String()
	switch {
	case strings.HasPrefix(name, "PR"), strings.HasPrefix(name, "VR"):
		return true
	case name == "":
		return false
	}

	switch name[0] {
	case 'E', 'M', 'Q', 'R', 'W':
		return true
	}

	return false
}

// Mnemonics returns the sorted set of
// mnemonics in descs.
func Mnemonics(descs []*Description) []string {
	seen := make(map[string]bool)
	var mnemonics []string
	for _, desc := range descs {
		if !seen[desc.Mnemonic] {
			seen[desc.Mnemonic] = true
			mnemonics = append(mnemonics, desc.Mnemonic)
		}
	}

	sort.Strings(mnemonics)

	return mnemonics
}

// Select returns the descriptions with any
// of the given mnemonics or UIDs, in their
// original order. With no names, Select
// returns descs.
func Select(descs []*Description, names ...string) []*Description {
	if len(names) == 0 {
		return descs
	}

	want := make(map[string]bool)
	for _, name := range names {
		want[name] = true
	}

	var out []*Description
	for _, desc := range descs {
		if want[desc.Mnemonic] || want[desc.UID] {
			out = append(out, desc)
		}
	}

	return out
}
