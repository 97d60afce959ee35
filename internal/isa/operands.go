// Copyright 2023 The Firefly Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

package isa

import (
	"fmt"
	"strings"

	"firefly-os.dev/tools/asmgen/internal/x86"
)

// OperandCode is an Intel-manual-style
// symbolic operand tag, such as Eb or
// Gv. The first letters give the
// addressing method and the remainder
// the operand type code.
type OperandCode uint8

const (
	_ OperandCode = iota
	Ap
	Cd
	Dd
	Eb
	Ed
	Ev
	Ew
	Fv
	Gb
	Gd
	Gv
	Gw
	Ib
	ICb
	Iv
	Iw
	Jb
	Jv
	Ma
	Md_q
	Mdq
	Mp
	Mq
	Ms
	Mv
	Mw
	Nb
	Nd
	Nv
	Ob
	Ov
	Pd
	Pq
	PRq
	Qd
	Qq
	Rd
	Rv
	Sw
	Vdq
	Vpd
	Vps
	Vq
	Vsd
	Vss
	VRdq
	VRpd
	VRps
	VRq
	Wdq
	Wpd
	Wps
	Wq
	Wsd
	Wss
	Xb
	Xv
	Yb
	Yv
)

// operandCodes maps each operand code to its
// name and operand type code.
var operandCodes = map[OperandCode]struct {
	name string
	typ  OperandTypeCode
}{
	Ap:   {"Ap", TypeP},
	Cd:   {"Cd", TypeD},
	Dd:   {"Dd", TypeD},
	Eb:   {"Eb", TypeB},
	Ed:   {"Ed", TypeD},
	Ev:   {"Ev", TypeV},
	Ew:   {"Ew", TypeW},
	Fv:   {"Fv", TypeV},
	Gb:   {"Gb", TypeB},
	Gd:   {"Gd", TypeD},
	Gv:   {"Gv", TypeV},
	Gw:   {"Gw", TypeW},
	Ib:   {"Ib", TypeB},
	ICb:  {"ICb", TypeB},
	Iv:   {"Iv", TypeV},
	Iw:   {"Iw", TypeW},
	Jb:   {"Jb", TypeB},
	Jv:   {"Jv", TypeV},
	Ma:   {"Ma", TypeA},
	Md_q: {"Md_q", TypeD_Q},
	Mdq:  {"Mdq", TypeDQ},
	Mp:   {"Mp", TypeP},
	Mq:   {"Mq", TypeQ},
	Ms:   {"Ms", TypeS},
	Mv:   {"Mv", TypeV},
	Mw:   {"Mw", TypeW},
	Nb:   {"Nb", TypeB},
	Nd:   {"Nd", TypeD},
	Nv:   {"Nv", TypeV},
	Ob:   {"Ob", TypeB},
	Ov:   {"Ov", TypeV},
	Pd:   {"Pd", TypeD},
	Pq:   {"Pq", TypeQ},
	PRq:  {"PRq", TypeQ},
	Qd:   {"Qd", TypeD},
	Qq:   {"Qq", TypeQ},
	Rd:   {"Rd", TypeD},
	Rv:   {"Rv", TypeV},
	Sw:   {"Sw", TypeW},
	Vdq:  {"Vdq", TypeDQ},
	Vpd:  {"Vpd", TypePD},
	Vps:  {"Vps", TypePS},
	Vq:   {"Vq", TypeQ},
	Vsd:  {"Vsd", TypeSD},
	Vss:  {"Vss", TypeSS},
	VRdq: {"VRdq", TypeDQ},
	VRpd: {"VRpd", TypePD},
	VRps: {"VRps", TypePS},
	VRq:  {"VRq", TypeQ},
	Wdq:  {"Wdq", TypeDQ},
	Wpd:  {"Wpd", TypePD},
	Wps:  {"Wps", TypePS},
	Wq:   {"Wq", TypeQ},
	Wsd:  {"Wsd", TypeSD},
	Wss:  {"Wss", TypeSS},
	Xb:   {"Xb", TypeB},
	Xv:   {"Xv", TypeV},
	Yb:   {"Yb", TypeB},
	Yv:   {"Yv", TypeV},
}

var operandCodesByName = make(map[string]OperandCode)

func init() {
	for code, info := range operandCodes {
		operandCodesByName[info.name] = code
	}
}

// OperandCodes returns every known
// operand code in declaration order.
func OperandCodes() []OperandCode {
	codes := make([]OperandCode, 0, len(operandCodes))
	for code := Ap; code <= Yv; code++ {
		codes = append(codes, code)
	}

	return codes
}

// ParseOperandCode returns the operand
// code with the given name.
func ParseOperandCode(name string) (OperandCode, bool) {
	code, ok := operandCodesByName[name]
	return code, ok
}

func (c OperandCode) String() string {
	if info, ok := operandCodes[c]; ok {
		return info.name
	}

	return fmt.Sprintf("OperandCode(%d)", uint8(c))
}

// TypeCode returns the operand's size
// class.
func (c OperandCode) TypeCode() OperandTypeCode {
	return operandCodes[c].typ
}

func (c OperandCode) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *OperandCode) UnmarshalText(text []byte) error {
	code, ok := ParseOperandCode(string(text))
	if !ok {
		return fmt.Errorf("invalid operand code %q", text)
	}

	*c = code

	return nil
}

// OperandTypeCode is the size class of
// an operand code, such as b (byte) or
// v (word or doubleword, by operand
// size).
type OperandTypeCode string

const (
	TypeA   OperandTypeCode = "a"
	TypeB   OperandTypeCode = "b"
	TypeD   OperandTypeCode = "d"
	TypeD_Q OperandTypeCode = "d_q"
	TypeDQ  OperandTypeCode = "dq"
	TypeP   OperandTypeCode = "p"
	TypePD  OperandTypeCode = "pd"
	TypePS  OperandTypeCode = "ps"
	TypeQ   OperandTypeCode = "q"
	TypeS   OperandTypeCode = "s"
	TypeSD  OperandTypeCode = "sd"
	TypeSS  OperandTypeCode = "ss"
	TypeV   OperandTypeCode = "v"
	TypeW   OperandTypeCode = "w"
)

// Designation is an operand's syntactic
// role.
type Designation uint8

const (
	Other Designation = iota
	Destination
	Source
)

var designations = []string{
	Other:       "other",
	Destination: "destination",
	Source:      "source",
}

func (d Designation) String() string {
	if int(d) < len(designations) {
		return designations[d]
	}

	return fmt.Sprintf("Designation(%d)", uint8(d))
}

func (d Designation) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Designation) UnmarshalText(text []byte) error {
	for i, name := range designations {
		if name == string(text) {
			*d = Designation(i)
			return nil
		}
	}

	return fmt.Errorf("invalid designation %q", text)
}

// ExternalPresence records whether an
// implicit operand is written out in
// assembly text.
type ExternalPresence uint8

const (
	Explicit ExternalPresence = iota
	Omitted
)

func (p ExternalPresence) String() string {
	if p == Omitted {
		return "omitted"
	}

	return "explicit"
}

func (p ExternalPresence) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// ImplicitKind distinguishes the kinds
// of operand that are encoded in the
// opcode itself.
type ImplicitKind uint8

const (
	NotImplicit          ImplicitKind = iota
	ImplicitRegisterCode              // eAX..eDI, sized by operand size.
	ImplicitRegister                  // A fixed register, such as al or dx.
	ImplicitImmediate                 // A fixed value, such as the 1 in shl Eb, 1.
)

// RegisterCode is a general purpose
// register number whose width follows
// the operand-size attribute.
type RegisterCode uint8

const (
	EAX RegisterCode = iota
	ECX
	EDX
	EBX
	ESP
	EBP
	ESI
	EDI
)

var registerCodeNames = []string{"eAX", "eCX", "eDX", "eBX", "eSP", "eBP", "eSI", "eDI"}

func (r RegisterCode) String() string {
	if int(r) < len(registerCodeNames) {
		return registerCodeNames[r]
	}

	return fmt.Sprintf("RegisterCode(%d)", uint8(r))
}

// Range bounds the legal argument values
// of an immediate or offset operand.
type Range struct {
	Min int64 `json:"min"`
	Max int64 `json:"max"`
}

// Contains reports whether v lies
// within the range.
func (r *Range) Contains(v int64) bool {
	return r.Min <= v && v <= r.Max
}

// Operand is one operand of an
// instruction description, either an
// explicit operand code or an implicit
// operand.
type Operand struct {
	Code        OperandCode
	Designation Designation
	Range       *Range   // Optional argument range.
	Exclude     []string // Argument values not to use in tests.

	Implicit     ImplicitKind
	RegisterCode RegisterCode     // For ImplicitRegisterCode.
	Register     *x86.Register    // For ImplicitRegister.
	Immediate    int64            // For ImplicitImmediate.
	Presence     ExternalPresence // For implicit operands.
}

// IsImplicit reports whether the operand
// is encoded in the opcode.
func (op *Operand) IsImplicit() bool {
	return op.Implicit != NotImplicit
}

func (op *Operand) String() string {
	var s string
	switch op.Implicit {
	case NotImplicit:
		s = op.Code.String()
	case ImplicitRegisterCode:
		s = op.RegisterCode.String()
	case ImplicitRegister:
		s = op.Register.Name
	case ImplicitImmediate:
		s = fmt.Sprint(op.Immediate)
	}

	if op.Presence == Omitted {
		s = "~" + s
	}

	return s
}

// parseOperand parses the textual form
// of an operand used in the instruction
// database.
func parseOperand(s string) (*Operand, error) {
	op := new(Operand)
	if strings.HasPrefix(s, "~") {
		op.Presence = Omitted
		s = s[1:]
	}

	for i, name := range registerCodeNames {
		if s == name {
			op.Implicit = ImplicitRegisterCode
			op.RegisterCode = RegisterCode(i)
			return op, nil
		}
	}

	if code, ok := ParseOperandCode(s); ok {
		if op.Presence == Omitted {
			return nil, fmt.Errorf("operand code %s cannot be omitted", s)
		}

		op.Code = code
		return op, nil
	}

	if reg, ok := x86.RegistersByName[s]; ok {
		op.Implicit = ImplicitRegister
		op.Register = reg
		return op, nil
	}

	var v int64
	if _, err := fmt.Sscanf(s, "%d", &v); err == nil && fmt.Sprint(v) == s {
		op.Implicit = ImplicitImmediate
		op.Immediate = v
		return op, nil
	}

	return nil, fmt.Errorf("unknown operand %q", s)
}
