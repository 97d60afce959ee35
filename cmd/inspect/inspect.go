// Copyright 2023 The Firefly Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

// Package inspect dumps the full structure of resolved templates.
package inspect

import (
	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"

	"firefly-os.dev/tools/asmgen/internal/app"
)

var config = spew.ConfigState{
	Indent:                  "  ",
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	SortKeys:                true,
}

// Command returns the inspect command.
func Command() *cobra.Command {
	var descriptions bool
	cmd := &cobra.Command{
		Use:   "inspect INSTRUCTION...",
		Short: "Dump the templates of the named instructions",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env := app.FromContext(cmd.Context())
			w := cmd.OutOrStdout()
			if descriptions {
				descs, err := env.Descriptions(args...)
				if err != nil {
					return err
				}

				config.Fdump(w, descs)
				return nil
			}

			templates, _, err := env.Generate(cmd.Context(), args...)
			for _, t := range templates {
				config.Fdump(w, t.Record())
			}

			return err
		},
	}

	cmd.Flags().BoolVar(&descriptions, "descriptions", false, "Dump the instruction descriptions instead.")

	return cmd
}
