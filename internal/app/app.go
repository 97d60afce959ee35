// Copyright 2023 The Firefly Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

// Package app holds the state shared by asmgen's subcommands.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"firefly-os.dev/tools/asmgen/internal/config"
	"firefly-os.dev/tools/asmgen/internal/isa"
	"firefly-os.dev/tools/asmgen/internal/template"
)

// Env is the environment of a subcommand.
type Env struct {
	Config *config.Config
	Logger *slog.Logger
}

type envKey struct{}

// NewContext returns a context carrying env.
func NewContext(ctx context.Context, env *Env) context.Context {
	return context.WithValue(ctx, envKey{}, env)
}

// FromContext returns the environment in
// ctx, or a default environment.
func FromContext(ctx context.Context) *Env {
	if env, ok := ctx.Value(envKey{}).(*Env); ok {
		return env
	}

	return &Env{
		Config: config.Default(),
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// Descriptions returns the instruction
// descriptions selected by the config and
// any names given.
func (env *Env) Descriptions(names ...string) ([]*isa.Description, error) {
	descs, err := isa.Instructions()
	if err != nil {
		return nil, err
	}

	if len(names) == 0 {
		names = env.Config.Instructions
	}

	selected := isa.Select(descs, names...)
	if len(selected) == 0 {
		return nil, fmt.Errorf("no instructions match %q", names)
	}

	return selected, nil
}

// Generate resolves the selected
// descriptions with the configured mode
// and workers.
func (env *Env) Generate(ctx context.Context, names ...string) ([]*template.Template, *template.Stats, error) {
	descs, err := env.Descriptions(names...)
	if err != nil {
		return nil, nil, err
	}

	stats := new(template.Stats)
	stats.Start()
	templates, err := template.Generate(ctx, descs,
		template.WithMode(env.Config.CPUMode()),
		template.WithWorkers(env.Config.Workers),
		template.WithLogger(env.Logger),
		template.WithStats(stats),
	)

	return templates, stats, err
}
