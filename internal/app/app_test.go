// Copyright 2023 The Firefly Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

package app

import (
	"context"
	"testing"

	"firefly-os.dev/tools/asmgen/internal/config"
)

func TestGenerate(t *testing.T) {
	ctx := context.Background()
	env := FromContext(ctx)
	if env.Config.Mode != 32 {
		t.Fatalf("default env: got mode %d, want 32", env.Config.Mode)
	}

	cfg := config.Default()
	cfg.Mode = 16
	cfg.Instructions = []string{"bswap", "nop"}
	env.Config = cfg
	ctx = NewContext(ctx, env)
	if got := FromContext(ctx); got != env {
		t.Fatalf("FromContext(): got %p, want %p", got, env)
	}

	// bswap is not valid in 16-bit mode.
	templates, stats, err := env.Generate(ctx)
	if err != nil {
		t.Fatal(err)
	}

	if len(templates) != 1 || stats.Unsupported != 1 {
		t.Fatalf("Generate(): got %d templates and %d unsupported, want 1 and 1", len(templates), stats.Unsupported)
	}

	// Names override the config.
	templates, _, err = env.Generate(ctx, "JMP_EB_Jb")
	if err != nil {
		t.Fatal(err)
	}

	if len(templates) != 2 {
		t.Fatalf("Generate(JMP_EB_Jb): got %d templates, want 2", len(templates))
	}

	if _, _, err := env.Generate(ctx, "frobnicate"); err == nil {
		t.Fatal("Generate(frobnicate): unexpected success")
	}
}
