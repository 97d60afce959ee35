// Copyright 2023 The Firefly Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

// Package chart renders an HTML chart of templates and pruned contexts per
// instruction.
package chart

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"firefly-os.dev/tools/asmgen/internal/app"
	"firefly-os.dev/tools/asmgen/internal/report"
)

// Command returns the chart command.
func Command() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "chart [INSTRUCTION...]",
		Short: "Write an HTML chart of templates and pruned contexts",
		RunE: func(cmd *cobra.Command, args []string) error {
			env := app.FromContext(cmd.Context())
			if output == "" {
				output = env.Config.Chart
			}

			_, stats, err := env.Generate(cmd.Context(), args...)
			if err != nil {
				return err
			}

			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("failed to create chart: %v", err)
			}

			title := fmt.Sprintf("asmgen templates (%d-bit mode)", env.Config.Mode)
			if err := report.Chart(f, stats, title); err != nil {
				f.Close()
				return fmt.Errorf("failed to render chart: %v", err)
			}

			if err := f.Close(); err != nil {
				return fmt.Errorf("failed to write chart: %v", err)
			}

			log.Printf("Wrote %s.", output)

			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Chart path (default from config).")

	return cmd
}
