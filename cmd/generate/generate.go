// Copyright 2023 The Firefly Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

// Package generate writes the resolved templates as JSON lines.
package generate

import (
	"encoding/json"
	"fmt"
	"io"
	"log"

	"github.com/spf13/cobra"

	"firefly-os.dev/tools/asmgen/internal/app"
	"firefly-os.dev/tools/asmgen/internal/report"
	"firefly-os.dev/tools/asmgen/internal/template"
)

// Command returns the generate command.
func Command() *cobra.Command {
	var stats bool
	cmd := &cobra.Command{
		Use:   "generate [INSTRUCTION...]",
		Short: "Resolve instructions into templates, printed as JSON lines",
		RunE: func(cmd *cobra.Command, args []string) error {
			env := app.FromContext(cmd.Context())
			// Instructions that fail to resolve
			// are reported after the others
			// are written.
			templates, s, genErr := env.Generate(cmd.Context(), args...)
			if err := Write(cmd.OutOrStdout(), templates); err != nil {
				return err
			}

			if stats && s != nil {
				log.Print(report.Summary(s, 10))
			}

			return genErr
		},
	}

	cmd.Flags().BoolVar(&stats, "stats", false, "Print generation statistics to stderr.")

	return cmd
}

// Write prints one JSON record per
// template.
func Write(w io.Writer, templates []*template.Template) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for _, t := range templates {
		if err := enc.Encode(t.Record()); err != nil {
			return fmt.Errorf("failed to write template: %v", err)
		}
	}

	return nil
}
