// Copyright 2023 The Firefly Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"firefly-os.dev/tools/asmgen/internal/x86"
)

func TestParse(t *testing.T) {
	tests := []struct {
		Name string
		Data string
		Want *Config
	}{
		{
			Name: "empty",
			Data: "",
			Want: Default(),
		},
		{
			Name: "full",
			Data: `
				mode = 16
				workers = 4
				instructions = ["add", "MOV_C7_0_Ev_Iv"]
				baseline = "db"
				trace_endpoint = "localhost:4318"
				chart = "out.html"
				history = "hist"
				check_limit = 2
			`,
			Want: &Config{
				Mode:          16,
				Workers:       4,
				Instructions:  []string{"add", "MOV_C7_0_Ev_Iv"},
				Baseline:      "db",
				TraceEndpoint: "localhost:4318",
				Chart:         "out.html",
				History:       "hist",
				CheckLimit:    2,
			},
		},
		{
			Name: "partial",
			Data: `workers = 2`,
			Want: &Config{
				Mode:       32,
				Workers:    2,
				Baseline:   ".asmgen/baseline",
				Chart:      "templates.html",
				CheckLimit: 16,
			},
		},
	}

	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			got, err := Parse("test.toml", []byte(test.Data))
			if err != nil {
				t.Fatalf("Parse(): %v", err)
			}

			if diff := cmp.Diff(test.Want, got); diff != "" {
				t.Fatalf("Parse(): (-want, +got)\n%s", diff)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		Name string
		Data string
		Want string
	}{
		{
			Name: "unknown key",
			Data: "mode = 32\nflavour = \"intel\"\n",
			Want: "unrecognised fields: flavour",
		},
		{
			Name: "bad mode",
			Data: "mode = 64\n",
			Want: "unsupported CPU mode 64",
		},
		{
			Name: "negative workers",
			Data: "workers = -1\n",
			Want: "invalid worker count -1",
		},
		{
			Name: "syntax",
			Data: "mode = \n",
			Want: "failed to parse test.toml",
		},
	}

	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			_, err := Parse("test.toml", []byte(test.Data))
			if err == nil {
				t.Fatalf("Parse(): unexpected success")
			}

			if !strings.Contains(err.Error(), test.Want) {
				t.Fatalf("Parse(): got error %q, want %q", err, test.Want)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}

	if cfg.CPUMode() != x86.Mode32 {
		t.Fatalf("default mode: got %s, want 32", cfg.CPUMode().String)
	}

	name := filepath.Join(t.TempDir(), "asmgen.toml")
	if err := os.WriteFile(name, []byte("mode = 16\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err = Load(name)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.CPUMode() != x86.Mode16 {
		t.Fatalf("Load(): got mode %s, want 16", cfg.CPUMode().String)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatal("Load(missing): unexpected success")
	}
}
