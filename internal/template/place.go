// Copyright 2023 The Firefly Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

package template

import (
	"fmt"
)

// Place is the location in the machine
// code where an assembler argument is
// encoded.
type Place uint8

const (
	_                 Place = iota
	PlaceModReg             // ModR/M.reg.
	PlaceModRM              // ModR/M.rm.
	PlaceSIBBase            // SIB.base.
	PlaceSIBIndex           // SIB.index.
	PlaceSIBScale           // SIB.scale.
	PlaceOpcode1            // Added to the first opcode byte.
	PlaceOpcode2            // Added to the second opcode byte.
	PlaceAppend             // A byte appended after the immediates.
	PlaceDisplacement       // The memory displacement.
	PlaceAddress            // An absolute memory address.
	PlaceImmediate          // The first immediate.
	PlaceImmediate2         // The second immediate.
	PlaceOffset             // A relative code offset.
)

var places = []string{
	PlaceModReg:       "MOD_REG",
	PlaceModRM:        "MOD_RM",
	PlaceSIBBase:      "SIB_BASE",
	PlaceSIBIndex:     "SIB_INDEX",
	PlaceSIBScale:     "SIB_SCALE",
	PlaceOpcode1:      "OPCODE1",
	PlaceOpcode2:      "OPCODE2",
	PlaceAppend:       "APPEND",
	PlaceDisplacement: "DISPLACEMENT",
	PlaceAddress:      "ADDRESS",
	PlaceImmediate:    "IMMEDIATE",
	PlaceImmediate2:   "IMMEDIATE2",
	PlaceOffset:       "OFFSET",
}

func (p Place) String() string {
	if int(p) < len(places) && places[p] != "" {
		return places[p]
	}

	return fmt.Sprintf("Place(%d)", uint8(p))
}

func (p Place) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *Place) UnmarshalText(text []byte) error {
	return unmarshalCase(text, places, (*uint8)(p), "place")
}
