// Copyright 2023 The Firefly Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

// Package check assembles the resolved templates and compares the machine
// code with an independent disassembler.
package check

import (
	"fmt"

	"github.com/spf13/cobra"

	"firefly-os.dev/tools/asmgen/internal/app"
	"firefly-os.dev/tools/asmgen/internal/encoder"
)

// Command returns the check command.
func Command() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "check [INSTRUCTION...]",
		Short: "Check template encodings against a disassembler",
		RunE: func(cmd *cobra.Command, args []string) error {
			env := app.FromContext(cmd.Context())
			if !cmd.Flags().Changed("limit") {
				limit = env.Config.CheckLimit
			}

			templates, _, err := env.Generate(cmd.Context(), args...)
			if err != nil {
				return err
			}

			report, err := encoder.CheckAll(cmd.Context(), templates, env.Config.CPUMode(), limit, env.Logger)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			for _, mismatch := range report.Mismatches {
				fmt.Fprintln(w, mismatch)
			}

			fmt.Fprintf(w, "Checked %d encodings of %d templates (%d not externally testable).\n", report.Checked, report.Templates, report.Skipped)
			if n := len(report.Mismatches); n > 0 {
				return fmt.Errorf("found %d mismatched encodings", n)
			}

			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Argument lists to check per template (default from config).")

	return cmd
}
