// Copyright 2023 The Firefly Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

// Package tree prints the resolved templates as a tree.
package tree

import (
	"github.com/spf13/cobra"

	"firefly-os.dev/tools/asmgen/internal/app"
	"firefly-os.dev/tools/asmgen/internal/report"
)

// Command returns the tree command.
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "tree [INSTRUCTION...]",
		Short: "Print templates grouped by instruction",
		RunE: func(cmd *cobra.Command, args []string) error {
			env := app.FromContext(cmd.Context())
			templates, _, err := env.Generate(cmd.Context(), args...)
			if err != nil {
				return err
			}

			return report.Tree(cmd.OutOrStdout(), templates)
		},
	}
}
