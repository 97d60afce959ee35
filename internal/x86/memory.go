// Copyright 2023 The Firefly Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

package x86

import (
	"fmt"
	"strconv"
	"strings"
)

// Scale is the multiplier applied to
// a SIB index register.
type Scale uint8

// Scales lists the scales in order of
// their encoding.
var Scales = []Scale{1, 2, 4, 8}

// Code returns the SIB scale field
// for s.
func (s Scale) Code() byte {
	switch s {
	case 2:
		return 1
	case 4:
		return 2
	case 8:
		return 3
	default:
		return 0
	}
}

func (s Scale) String() string { return strconv.Itoa(int(s)) }

// Memory represents an x86 memory
// reference.
type Memory struct {
	Base         *Register // May be a 16-bit register pair.
	Index        *Register
	Scale        Scale
	Displacement int64
	Absolute     bool // A displacement-only address.
}

// String returns the reference in
// Intel syntax.
func (m *Memory) String() string {
	var s strings.Builder
	s.WriteByte('[')
	term := func(format string, v ...any) {
		if s.Len() > 1 {
			s.WriteByte('+')
		}

		fmt.Fprintf(&s, format, v...)
	}

	if m.Base != nil {
		if m.Base.Type == TypePair {
			term("%s", m.Base.Aliases[0])
		} else {
			term("%s", m.Base)
		}
	}
	if m.Index != nil {
		if m.Scale > 1 {
			term("%s*%d", m.Index, m.Scale)
		} else {
			term("%s", m.Index)
		}
	}
	switch {
	case m.Absolute || s.Len() == 1:
		term("%#x", uint64(m.Displacement))
	case m.Displacement < 0:
		fmt.Fprintf(&s, "-%#x", uint64(-m.Displacement))
	case m.Displacement > 0:
		term("%#x", m.Displacement)
	}
	s.WriteByte(']')

	return s.String()
}
