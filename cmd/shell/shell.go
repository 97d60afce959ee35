// Copyright 2023 The Firefly Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

// Package shell provides an interactive JavaScript console for exploring
// the resolved templates.
//
// The console defines:
//
//	instructions()             the UIDs of the selected instructions.
//	templates(name...)         the records of templates for the named
//	                           mnemonics or UIDs, or all templates.
//	assemble(serial, arg...)   the machine code for a template, as hex.
//	check(serial, arg...)      checks the machine code with a disassembler.
//	print(value...)            prints values.
package shell

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/dop251/goja"
	"github.com/spf13/cobra"

	"firefly-os.dev/tools/asmgen/internal/app"
	"firefly-os.dev/tools/asmgen/internal/encoder"
	"firefly-os.dev/tools/asmgen/internal/template"
	"firefly-os.dev/tools/asmgen/internal/x86"
)

// Command returns the shell command.
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "shell [INSTRUCTION...]",
		Short: "Explore templates in a JavaScript console",
		RunE: func(cmd *cobra.Command, args []string) error {
			env := app.FromContext(cmd.Context())
			templates, _, err := env.Generate(cmd.Context(), args...)
			if err != nil {
				return err
			}

			rl, err := readline.NewEx(&readline.Config{
				Prompt:      "asmgen> ",
				HistoryFile: env.Config.History,
			})
			if err != nil {
				return fmt.Errorf("failed to start readline: %v", err)
			}

			defer rl.Close()

			w := cmd.OutOrStdout()
			vm, err := newVM(w, env.Config.CPUMode(), templates)
			if err != nil {
				return err
			}

			fmt.Fprintf(w, "Loaded %d templates. Type 'exit' to quit.\n", len(templates))

			return run(rl, vm, w)
		},
	}
}

func run(rl *readline.Instance, vm *goja.Runtime, w io.Writer) error {
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}

		if err != nil {
			// io.EOF on ^D.
			return nil
		}

		line = strings.TrimSpace(line)
		switch line {
		case "":
			continue
		case "exit", "quit":
			return nil
		}

		value, err := vm.RunString(line)
		if err != nil {
			fmt.Fprintln(w, "error:", err)
			continue
		}

		if !goja.IsUndefined(value) {
			fmt.Fprintln(w, format(value))
		}
	}
}

// format renders a JavaScript value as
// indented JSON where possible.
func format(value goja.Value) string {
	exported := value.Export()
	switch exported.(type) {
	case string, int64, float64, bool, nil:
		return value.String()
	}

	data, err := json.MarshalIndent(exported, "", "  ")
	if err != nil {
		return value.String()
	}

	return string(data)
}

// newVM returns a JavaScript runtime with
// the console functions defined.
func newVM(w io.Writer, mode x86.Mode, templates []*template.Template) (*goja.Runtime, error) {
	vm := goja.New()
	vm.SetFieldNameMapper(goja.TagFieldNameMapper("json", true))

	lookup := func(serial int) *template.Template {
		if serial < 0 || serial >= len(templates) {
			panic(vm.NewGoError(fmt.Errorf("no template with serial %d", serial)))
		}

		return templates[serial]
	}

	arguments := func(t *template.Template, texts []string) []encoder.Argument {
		args, err := encoder.ParseArguments(t, texts)
		if err != nil {
			panic(vm.NewGoError(err))
		}

		return args
	}

	seen := make(map[string]bool)
	var uids []string
	for _, t := range templates {
		uid := t.Description().UID
		if !seen[uid] {
			seen[uid] = true
			uids = append(uids, uid)
		}
	}

	defs := map[string]any{
		"instructions": func() []string {
			return uids
		},
		"templates": func(names ...string) []*template.Record {
			want := make(map[string]bool)
			for _, name := range names {
				want[name] = true
			}

			records := make([]*template.Record, 0)
			for _, t := range templates {
				desc := t.Description()
				if len(names) == 0 || want[desc.UID] || want[desc.Mnemonic] {
					records = append(records, t.Record())
				}
			}

			return records
		},
		"assemble": func(serial int, texts ...string) string {
			t := lookup(serial)
			code, err := encoder.Assemble(t, mode, arguments(t, texts))
			if err != nil {
				panic(vm.NewGoError(err))
			}

			return fmt.Sprintf("% x", code)
		},
		"check": func(serial int, texts ...string) string {
			t := lookup(serial)
			if err := encoder.Check(t, mode, arguments(t, texts)); err != nil {
				return err.Error()
			}

			return "ok"
		},
		"print": func(values ...goja.Value) {
			for _, v := range values {
				fmt.Fprintln(w, format(v))
			}
		},
	}

	for name, fun := range defs {
		if err := vm.Set(name, fun); err != nil {
			return nil, fmt.Errorf("failed to define %s: %v", name, err)
		}
	}

	return vm, nil
}
