// Copyright 2023 The Firefly Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

package template

import (
	"fmt"
	"strconv"

	"firefly-os.dev/tools/asmgen/internal/isa"
)

// builder accumulates the parameters and
// properties of one template. Each of the
// single-assignment properties may be set
// at most once, and each place may be
// claimed by at most one parameter.
type builder struct {
	desc *isa.Description
	ctx  Context

	params   []Parameter
	implicit []ImplicitOperand
	claimed  map[Place]int

	labelIndex  int
	codeSize    int
	suffix      isa.OperandTypeCode
	stringTypes []isa.OperandTypeCode
	testable    bool
	sib         bool
	built       bool
}

func newBuilder(desc *isa.Description, ctx Context) *builder {
	return &builder{
		desc:       desc,
		ctx:        ctx,
		claimed:    make(map[Place]int),
		labelIndex: -1,
		testable:   desc.Testable,
	}
}

func (b *builder) prune(format string, v ...any) error {
	return &PruneError{
		Instruction: b.desc.UID,
		Context:     b.ctx,
		Reason:      fmt.Sprintf(format, v...),
	}
}

func (b *builder) unreachable(format string, v ...any) error {
	return &UnreachableError{
		Instruction: b.desc.UID,
		Context:     b.ctx,
		Branch:      fmt.Sprintf(format, v...),
		Err:         ErrUnreachable,
	}
}

func (b *builder) conflict(property, previous, next string) error {
	return &ConflictError{
		Instruction: b.desc.UID,
		Context:     b.ctx,
		Property:    property,
		Previous:    previous,
		Next:        next,
	}
}

// add appends a parameter, claiming its
// place.
func (b *builder) add(p Parameter) error {
	if prev, ok := b.claimed[p.Place]; ok {
		return b.conflict("place "+p.Place.String(), b.params[prev].String(), p.String())
	}

	b.claimed[p.Place] = len(b.params)
	b.params = append(b.params, p)

	return nil
}

// immediatePlace returns the first free
// immediate place.
func (b *builder) immediatePlace() Place {
	if _, ok := b.claimed[PlaceImmediate]; ok {
		return PlaceImmediate2
	}

	return PlaceImmediate
}

// setLabel marks the next parameter to be
// added as the label parameter.
func (b *builder) setLabel() error {
	next := len(b.params)
	if b.labelIndex >= 0 {
		return b.conflict("label parameter index", strconv.Itoa(b.labelIndex), strconv.Itoa(next))
	}

	b.labelIndex = next

	return nil
}

func (b *builder) setCodeSize(bits int) error {
	if b.codeSize != 0 {
		return b.conflict("external code size", strconv.Itoa(b.codeSize), strconv.Itoa(bits))
	}

	b.codeSize = bits

	return nil
}

func (b *builder) setSuffix(code isa.OperandTypeCode) error {
	if b.suffix != "" {
		return b.conflict("operand type suffix", string(b.suffix), string(code))
	}

	b.suffix = code

	return nil
}

// stringOperand records the operand type
// of a string instruction operand. The
// suffix is set once all operands are
// known.
func (b *builder) stringOperand(code isa.OperandTypeCode) {
	b.stringTypes = append(b.stringTypes, code)
}

func (b *builder) setSIB() error {
	if b.sib {
		return b.conflict("SIB byte", "true", "true")
	}

	b.sib = true

	return nil
}

func (b *builder) notTestable() {
	b.testable = false
}

// build finishes the template. A builder
// can only be built once.
func (b *builder) build() (*Template, error) {
	if b.built {
		return nil, b.unreachable("template built twice")
	}

	b.built = true
	if len(b.stringTypes) > 0 {
		code := b.stringTypes[0]
		for _, other := range b.stringTypes[1:] {
			if other != code {
				return nil, b.conflict("string operand type", string(code), string(other))
			}
		}

		if err := b.setSuffix(code); err != nil {
			return nil, err
		}
	}

	if b.labelIndex >= len(b.params) {
		return nil, b.unreachable("label parameter %d of %d", b.labelIndex, len(b.params))
	}

	t := &Template{
		serial:     -1,
		desc:       b.desc,
		ctx:        b.ctx,
		params:     b.params,
		implicit:   b.implicit,
		labelIndex: b.labelIndex,
		codeSize:   b.codeSize,
		suffix:     b.suffix,
		testable:   b.testable,
		sib:        b.sib,
	}

	return t, nil
}
