// Copyright 2023 The Firefly Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

// Package encoder assembles machine code for resolved templates and checks
// the result against an independent disassembler.
//
// The assembler knows only what a template tells it: where each parameter
// is placed and which context the template was resolved in.
package encoder

import (
	"fmt"
	"strconv"

	"firefly-os.dev/tools/asmgen/internal/template"
)

// Argument is a concrete value for one
// template parameter.
//
// For enumerable parameters, Name is the
// value's name and Value is its code. For
// numeric parameters, Name is the value
// in decimal.
type Argument struct {
	Name  string `json:"name"`
	Value int64  `json:"value"`
}

func (a Argument) String() string { return a.Name }

func numeric(v int64) Argument {
	return Argument{Name: strconv.FormatInt(v, 10), Value: v}
}

// Options returns the representative test
// arguments for the parameter: every legal
// enumerable value, or the boundary values
// of a numeric parameter. Excluded values
// are omitted.
func Options(param *template.Parameter) []Argument {
	var candidates []Argument
	switch param.Kind {
	case template.KindEnumerable:
		for _, v := range param.TestValues() {
			candidates = append(candidates, Argument{Name: v.Name, Value: int64(v.Code)})
		}

		return candidates
	case template.KindImmediate:
		if param.Range != nil {
			candidates = append(candidates, numeric(param.Range.Min), numeric(param.Range.Max))
			break
		}

		candidates = append(candidates, numeric(0), numeric(1), numeric(1<<(param.Width-1)-1))
	case template.KindDisplacement, template.KindOffset:
		lo, hi := signedBounds(param.Width)
		candidates = append(candidates, numeric(lo), numeric(0), numeric(hi))
	case template.KindAddress:
		candidates = append(candidates, numeric(0), numeric(int64(1)<<param.Width-1))
	}

	options := make([]Argument, 0, len(candidates))
	seen := make(map[int64]bool)
	for _, arg := range candidates {
		if seen[arg.Value] || param.Excludes(arg.Name) {
			continue
		}

		if param.Range != nil && !param.Range.Contains(arg.Value) {
			continue
		}

		seen[arg.Value] = true
		options = append(options, arg)
	}

	return options
}

// Arguments returns up to limit argument
// lists for t, covering the combinations
// of each parameter's options. A limit of
// zero or less means no limit.
//
// A template with no parameters has the
// single, empty, argument list.
func Arguments(t *template.Template, limit int) [][]Argument {
	params := t.Parameters()
	if len(params) == 0 {
		return [][]Argument{{}}
	}

	optionSets := make([][]Argument, len(params))
	numOptions := 1
	for i := range params {
		optionSets[i] = Options(&params[i])
		numOptions *= len(optionSets[i])
	}

	if limit > 0 && numOptions > limit {
		numOptions = limit
	}

	if numOptions == 0 {
		return nil
	}

	combinations := make([][]Argument, numOptions)
	for i := range combinations {
		combinations[i] = make([]Argument, len(params))
	}

	// Walk the option sets like an odometer,
	// starting with the first of each. After
	// each combination, step the last index,
	// carrying into the one before whenever
	// a set is exhausted.
	indices := make([]int, len(optionSets))
	for i := range combinations {
		for j, k := range indices {
			combinations[i][j] = optionSets[j][k]
		}

		for n := len(indices) - 1; n >= 0; n-- {
			indices[n]++
			if indices[n] < len(optionSets[n]) {
				break
			}

			indices[n] = 0
		}
	}

	return combinations
}

// ParseArguments parses one textual
// argument per parameter of t. Enumerable
// arguments are value names. Numeric
// arguments use Go integer syntax.
func ParseArguments(t *template.Template, texts []string) ([]Argument, error) {
	params := t.Parameters()
	if len(texts) != len(params) {
		return nil, fmt.Errorf("%s: got %d arguments, want %d", t.Name(), len(texts), len(params))
	}

	args := make([]Argument, len(texts))
	for i, text := range texts {
		param := &params[i]
		if param.Kind == template.KindEnumerable {
			v, ok := lookup(param, text)
			if !ok {
				return nil, fmt.Errorf("%s: argument %d: invalid %s value %q", t.Name(), i, param, text)
			}

			args[i] = Argument{Name: v.Name, Value: int64(v.Code)}
			continue
		}

		v, err := strconv.ParseInt(text, 0, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: argument %d: invalid %s: %v", t.Name(), i, param.Kind, err)
		}

		args[i] = numeric(v)
	}

	return args, nil
}

func lookup(param *template.Parameter, name string) (template.Value, bool) {
	for _, v := range param.Values {
		if v.Name == name {
			return v, true
		}
	}

	return template.Value{}, false
}

func signedBounds(width int) (lo, hi int64) {
	return -(int64(1) << (width - 1)), int64(1)<<(width-1) - 1
}
