// Copyright 2023 The Firefly Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

// Package baseline saves the resolved templates as a regression baseline,
// and compares later generations against it.
package baseline

import (
	"fmt"

	"github.com/spf13/cobra"

	"firefly-os.dev/tools/asmgen/internal/app"
	"firefly-os.dev/tools/asmgen/internal/baseline"
)

// Command returns the baseline command.
func Command() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "baseline",
		Short: "Save or compare a regression baseline of templates",
	}

	cmd.PersistentFlags().StringVar(&path, "db", "", "Baseline database directory (default from config).")

	open := func(cmd *cobra.Command) (*baseline.Store, error) {
		if path == "" {
			path = app.FromContext(cmd.Context()).Config.Baseline
		}

		return baseline.Open(path)
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "save [INSTRUCTION...]",
		Short: "Replace the baseline with the current templates",
		RunE: func(cmd *cobra.Command, args []string) error {
			env := app.FromContext(cmd.Context())
			templates, _, err := env.Generate(cmd.Context(), args...)
			if err != nil {
				return err
			}

			store, err := open(cmd)
			if err != nil {
				return err
			}

			defer store.Close()
			fp, err := store.Save(env.Config.CPUMode().String, templates)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Saved %d templates with fingerprint %s.\n", len(templates), fp)

			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "diff [INSTRUCTION...]",
		Short: "Compare the current templates with the baseline",
		RunE: func(cmd *cobra.Command, args []string) error {
			env := app.FromContext(cmd.Context())
			templates, _, err := env.Generate(cmd.Context(), args...)
			if err != nil {
				return err
			}

			store, err := open(cmd)
			if err != nil {
				return err
			}

			defer store.Close()
			diff, err := store.Diff(env.Config.CPUMode().String, templates)
			if err != nil {
				return err
			}

			fmt.Fprint(cmd.OutOrStdout(), diff)
			if !diff.Empty() {
				return fmt.Errorf("templates differ from baseline")
			}

			return nil
		},
	})

	return cmd
}
