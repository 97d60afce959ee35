// Copyright 2023 The Firefly Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

package template

import (
	"errors"
	"fmt"
)

var (
	// ErrPruned indicates that a context does
	// not produce a template for an instruction.
	// Pruning is not a failure.
	ErrPruned = errors.New("context pruned")

	// ErrUnreachable indicates that resolution
	// reached a branch that a well-formed
	// description cannot reach.
	ErrUnreachable = errors.New("unreachable branch")

	// ErrConflict indicates that two operands
	// of an instruction claimed the same
	// single-assignment template property.
	ErrConflict = errors.New("conflicting template properties")

	// ErrUnknownOperand indicates an operand
	// code with no resolution rule.
	ErrUnknownOperand = errors.New("unknown operand code")
)

// PruneError records why a context was
// pruned.
type PruneError struct {
	Instruction string
	Context     Context
	Reason      string
}

func (e *PruneError) Error() string {
	return fmt.Sprintf("%s [%s]: pruned: %s", e.Instruction, e.Context, e.Reason)
}

func (e *PruneError) Unwrap() error { return ErrPruned }

// UnreachableError describes a fatal
// internal inconsistency found while
// resolving an instruction.
type UnreachableError struct {
	Instruction string
	Context     Context
	Branch      string
	Err         error // ErrUnreachable or ErrUnknownOperand.
}

func (e *UnreachableError) Error() string {
	return fmt.Sprintf("%s [%s]: %v: %s", e.Instruction, e.Context, e.Err, e.Branch)
}

func (e *UnreachableError) Unwrap() error { return e.Err }

// ConflictError describes a template
// property that was set twice.
type ConflictError struct {
	Instruction string
	Context     Context
	Property    string
	Previous    string
	Next        string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s [%s]: %v: %s set to %s, then %s", e.Instruction, e.Context, ErrConflict, e.Property, e.Previous, e.Next)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }
