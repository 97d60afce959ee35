// Copyright 2023 The Firefly Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

package template

import (
	"bytes"
	"fmt"
	"strconv"
	"time"
)

var ignoredStats Stats

// Stats records the outcome of a call
// to Generate.
type Stats struct {
	t0 time.Time

	Instructions []InstructionStats
	Contexts     int
	Templates    int
	Pruned       int
	Failed       int
	Unsupported  int
}

// InstructionStats records the outcome
// of resolving one description.
type InstructionStats struct {
	UID       string `json:"uid"`
	Mnemonic  string `json:"mnemonic"`
	Contexts  int    `json:"contexts"`
	Templates int    `json:"templates"`
	Pruned    int    `json:"pruned"`
	Err       error  `json:"-"`
}

func (s *Stats) notnil() *Stats {
	if s != nil {
		return s
	}

	return &ignoredStats
}

// Start records the start time.
func (s *Stats) Start() { s.notnil().t0 = time.Now() }

func (s *Stats) record(res *instructionResult) {
	if s == nil {
		return
	}

	s.Instructions = append(s.Instructions, InstructionStats{
		UID:       res.desc.UID,
		Mnemonic:  res.desc.Mnemonic,
		Contexts:  res.contexts,
		Templates: len(res.templates),
		Pruned:    res.pruned,
		Err:       res.err,
	})

	s.Contexts += res.contexts
	s.Pruned += res.pruned
	switch {
	case res.err != nil:
		s.Failed++
	case res.contexts == 0:
		s.Unsupported++
	default:
		s.Templates += len(res.templates)
	}
}

func (s *Stats) String() string {
	var b bytes.Buffer
	fmt.Fprintf(&b, "Resolved %s instructions in %s contexts.\n", humaniseNumber(len(s.Instructions)), humaniseNumber(s.Contexts))
	fmt.Fprintf(&b, "Generated %s templates.\n", humaniseNumber(s.Templates))
	fmt.Fprintf(&b, "Pruned %s contexts.\n", humaniseNumber(s.Pruned))
	if s.Unsupported > 0 {
		fmt.Fprintf(&b, "Skipped %s instructions not valid in this mode.\n", humaniseNumber(s.Unsupported))
	}
	if s.Failed > 0 {
		fmt.Fprintf(&b, "Failed to resolve %s instructions.\n", humaniseNumber(s.Failed))
	}
	if !s.t0.IsZero() {
		fmt.Fprintf(&b, "Runtime: %s.\n", time.Since(s.t0).Round(time.Millisecond))
	}

	return b.String()
}

func humaniseNumber(v int) string {
	prefix, suffix := strconv.Itoa(v), ""
	for len(prefix) > 3 {
		suffix = "," + prefix[len(prefix)-3:] + suffix
		prefix = prefix[:len(prefix)-3]
	}

	return prefix + suffix
}
