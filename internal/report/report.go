// Copyright 2023 The Firefly Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

// Package report renders generated templates and generation statistics for
// people to read.
package report

import (
	"bytes"
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/xlab/treeprint"
	"golang.org/x/exp/slices"

	"firefly-os.dev/tools/asmgen/internal/template"
)

// Tree writes the templates as a tree of
// instruction, template, and parameter.
func Tree(w io.Writer, templates []*template.Template) error {
	tree := treeprint.NewWithRoot(fmt.Sprintf("%d templates", len(templates)))
	var branch treeprint.Tree
	var uid string
	for _, t := range templates {
		desc := t.Description()
		if branch == nil || desc.UID != uid {
			uid = desc.UID
			branch = tree.AddMetaBranch(uid, desc.Syntax())
		}

		node := branch.AddMetaBranch(t.Serial(), fmt.Sprintf("%s [%s]", t.Name(), t.Context()))
		if mem, ok := t.Context().Example(); ok {
			node.AddMetaNode("memory", mem.String())
		}
		for _, param := range t.Parameters() {
			if param.Kind == template.KindEnumerable {
				node.AddMetaNode(param.Kind, fmt.Sprintf("%s (%d values)", param.String(), len(param.TestValues())))
				continue
			}

			node.AddMetaNode(param.Kind, param.String())
		}

		for _, op := range t.ImplicitOperands() {
			node.AddMetaNode("implicit", op.String())
		}

		if i, ok := t.LabelParameterIndex(); ok {
			node.AddMetaNode("label", fmt.Sprintf("parameter %d", i))
		}
		if size, ok := t.ExternalCodeSize(); ok {
			node.AddMetaNode("code size", size)
		}
		if !t.ExternallyTestable() {
			node.AddNode("not externally testable")
		}
	}

	_, err := io.WriteString(w, tree.String())

	return err
}

// Chart writes an HTML page with a bar
// chart of the templates and pruned
// contexts of each instruction.
func Chart(w io.Writer, stats *template.Stats, title string) error {
	names := make([]string, 0, len(stats.Instructions))
	templates := make([]opts.BarData, 0, len(stats.Instructions))
	pruned := make([]opts.BarData, 0, len(stats.Instructions))
	for _, s := range stats.Instructions {
		if s.Contexts == 0 {
			continue
		}

		names = append(names, s.UID)
		templates = append(templates, opts.BarData{Value: s.Templates})
		pruned = append(pruned, opts.BarData{Value: s.Pruned})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    title,
			Subtitle: fmt.Sprintf("%d templates, %d pruned contexts", stats.Templates, stats.Pruned),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Right: "10%"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", Start: 0, End: 100}),
	)

	bar.SetXAxis(names).
		AddSeries("templates", templates).
		AddSeries("pruned", pruned)
	bar.SetSeriesOptions(charts.WithBarChartOpts(opts.BarChart{Stack: "contexts"}))

	return bar.Render(w)
}

// Summary returns the generation statistics
// and the instructions with the most pruned
// contexts.
func Summary(stats *template.Stats, top int) string {
	var b bytes.Buffer
	b.WriteString(stats.String())

	insts := slices.Clone(stats.Instructions)
	slices.SortStableFunc(insts, func(a, b template.InstructionStats) int { return b.Pruned - a.Pruned })
	if top > len(insts) {
		top = len(insts)
	}

	if top > 0 && insts[0].Pruned > 0 {
		b.WriteString("\nMost pruned:\n")
		for _, s := range insts[:top] {
			if s.Pruned == 0 {
				break
			}

			fmt.Fprintf(&b, "  %-24s %4d of %4d contexts\n", s.UID, s.Pruned, s.Contexts)
		}
	}

	var failed []template.InstructionStats
	for _, s := range stats.Instructions {
		if s.Err != nil {
			failed = append(failed, s)
		}
	}

	if len(failed) > 0 {
		b.WriteString("\nFailed:\n")
		for _, s := range failed {
			fmt.Fprintf(&b, "  %-24s %v\n", s.UID, s.Err)
		}
	}

	return b.String()
}
