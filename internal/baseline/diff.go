// Copyright 2023 The Firefly Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

package baseline

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/nsf/jsondiff"
	"github.com/yudai/gojsondiff"
	"github.com/yudai/gojsondiff/formatter"
	"golang.org/x/exp/slices"

	"firefly-os.dev/tools/asmgen/internal/template"
)

// Change is a template present in both
// sets whose record differs.
type Change struct {
	OldSerial int
	NewSerial int
	UID       string
	Delta     string // ASCII rendering of the JSON delta.
}

// Diff describes how a template set differs
// from the baseline. Templates are matched
// by instruction and context, so inserting
// an instruction does not change the
// records after it.
type Diff struct {
	Baseline   Fingerprint
	Current    Fingerprint
	Added      []int // New serials.
	Removed    []int // Baseline serials.
	Changed    []Change
	Renumbered int // Templates with only a new serial.
}

// Empty reports whether the sets match.
func (d *Diff) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Changed) == 0
}

func (d *Diff) String() string {
	var b bytes.Buffer
	if d.Baseline == d.Current {
		fmt.Fprintf(&b, "Templates match baseline %s.\n", d.Baseline)
		return b.String()
	}

	fmt.Fprintf(&b, "Baseline %s, current %s.\n", d.Baseline, d.Current)
	fmt.Fprintf(&b, "%d added, %d removed, %d changed, %d renumbered.\n", len(d.Added), len(d.Removed), len(d.Changed), d.Renumbered)
	for _, c := range d.Changed {
		fmt.Fprintf(&b, "\n%s (#%d -> #%d):\n%s", c.UID, c.OldSerial, c.NewSerial, c.Delta)
	}

	return b.String()
}

// identity is the part of a record that
// identifies its template.
type identity struct {
	UID     string          `json:"uid"`
	Context json.RawMessage `json:"context"`
}

type entry struct {
	serial int
	uid    string
	data   []byte // Record without its serial.
}

func index(records [][]byte) (map[string]entry, error) {
	out := make(map[string]entry, len(records))
	for serial, data := range records {
		var id identity
		if err := json.Unmarshal(data, &id); err != nil {
			return nil, fmt.Errorf("invalid record %d: %w", serial, err)
		}

		var fields map[string]any
		if err := json.Unmarshal(data, &fields); err != nil {
			return nil, fmt.Errorf("invalid record %d: %w", serial, err)
		}

		delete(fields, "serial")
		normalised, err := json.Marshal(fields)
		if err != nil {
			return nil, err
		}

		key := id.UID + " " + string(id.Context)
		if _, ok := out[key]; ok {
			return nil, fmt.Errorf("record %d duplicates %s", serial, key)
		}

		out[key] = entry{serial: serial, uid: id.UID, data: normalised}
	}

	return out, nil
}

// Diff compares the templates, generated
// in the given CPU mode, against the stored
// baseline. It returns ErrModeMismatch if
// the baseline was saved in another mode.
func (s *Store) Diff(mode string, templates []*template.Template) (*Diff, error) {
	baseFP, baseMode, err := s.Fingerprint()
	if err != nil {
		return nil, err
	}

	if baseMode != mode {
		return nil, fmt.Errorf("%w: saved in %s-bit mode, not %s-bit mode", ErrModeMismatch, baseMode, mode)
	}

	old, err := s.Records()
	if err != nil {
		return nil, err
	}

	current, fp, err := Encode(templates)
	if err != nil {
		return nil, err
	}

	d := &Diff{Baseline: baseFP, Current: fp}
	if baseFP == fp {
		return d, nil
	}

	oldIndex, err := index(old)
	if err != nil {
		return nil, fmt.Errorf("baseline: %w", err)
	}

	newIndex, err := index(current)
	if err != nil {
		return nil, err
	}

	opts := jsondiff.DefaultConsoleOptions()
	differ := gojsondiff.New()
	for key, o := range oldIndex {
		n, ok := newIndex[key]
		if !ok {
			d.Removed = append(d.Removed, o.serial)
			continue
		}

		if match, _ := jsondiff.Compare(o.data, n.data, &opts); match == jsondiff.FullMatch {
			if o.serial != n.serial {
				d.Renumbered++
			}

			continue
		}

		delta, err := describe(differ, o.data, n.data)
		if err != nil {
			return nil, err
		}

		d.Changed = append(d.Changed, Change{OldSerial: o.serial, NewSerial: n.serial, UID: n.uid, Delta: delta})
	}

	for key, n := range newIndex {
		if _, ok := oldIndex[key]; !ok {
			d.Added = append(d.Added, n.serial)
		}
	}

	slices.Sort(d.Added)
	slices.Sort(d.Removed)
	slices.SortFunc(d.Changed, func(a, b Change) int { return a.NewSerial - b.NewSerial })

	return d, nil
}

// describe renders the delta between two
// records.
func describe(differ *gojsondiff.Differ, left, right []byte) (string, error) {
	delta, err := differ.Compare(left, right)
	if err != nil {
		return "", fmt.Errorf("failed to diff records: %w", err)
	}

	var leftObj any
	if err := json.Unmarshal(left, &leftObj); err != nil {
		return "", err
	}

	config := formatter.AsciiFormatterConfig{ShowArrayIndex: true}
	out, err := formatter.NewAsciiFormatter(leftObj, config).Format(delta)
	if err != nil {
		return "", fmt.Errorf("failed to format diff: %w", err)
	}

	return out, nil
}
