// Copyright 2023 The Firefly Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

package template

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"runtime"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"firefly-os.dev/tools/asmgen/internal/isa"
	"firefly-os.dev/tools/asmgen/internal/x86"
)

var tracer = otel.Tracer("firefly-os.dev/tools/asmgen/internal/template")

type generator struct {
	mode    x86.Mode
	workers int
	logger  *slog.Logger
	stats   *Stats
}

// Option configures Generate.
type Option func(*generator)

// WithMode sets the CPU mode. The default
// is 32-bit mode.
func WithMode(mode x86.Mode) Option {
	return func(g *generator) { g.mode = mode }
}

// WithWorkers bounds the number of
// instructions resolved concurrently.
// The default is GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(g *generator) {
		if n > 0 {
			g.workers = n
		}
	}
}

// WithLogger sets the logger. Prunes are
// logged at debug level and fatal errors
// at error level.
func WithLogger(logger *slog.Logger) Option {
	return func(g *generator) { g.logger = logger }
}

// WithStats records per-instruction
// statistics in s.
func WithStats(s *Stats) Option {
	return func(g *generator) { g.stats = s }
}

// Generate resolves every description in
// every context relevant to it, returning
// the templates in deterministic order.
//
// Each template's serial is the number of
// templates before it. The result does
// not depend on the number of workers.
//
// An instruction that reaches a fatal
// error produces no templates. Its error
// is included in the joined error that
// Generate returns, alongside the
// templates of the other instructions.
func Generate(ctx context.Context, descs []*isa.Description, opts ...Option) ([]*Template, error) {
	g := &generator{
		mode:    x86.Mode32,
		workers: runtime.GOMAXPROCS(0),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, opt := range opts {
		opt(g)
	}

	ctx, span := tracer.Start(ctx, "template.Generate", trace.WithAttributes(
		attribute.Int("instructions", len(descs)),
		attribute.String("mode", g.mode.String),
		attribute.Int("workers", g.workers),
	))
	defer span.End()

	results := make([]instructionResult, len(descs))
	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(g.workers)
	for i, desc := range descs {
		i, desc := i, desc
		group.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			results[i] = g.instruction(gctx, desc)

			return nil
		})
	}

	if err := group.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	// Merge in description order.
	var templates []*Template
	var errs []error
	for i := range results {
		res := &results[i]
		g.stats.record(res)
		if res.err != nil {
			errs = append(errs, res.err)
			continue
		}

		for _, t := range res.templates {
			t.serial = len(templates)
			templates = append(templates, t)
		}
	}

	span.SetAttributes(attribute.Int("templates", len(templates)))
	err := errors.Join(errs...)
	if err != nil {
		span.SetStatus(codes.Error, "instructions failed")
	}

	return templates, err
}

// instructionResult is the outcome of
// resolving one description in all of
// its contexts.
type instructionResult struct {
	desc      *isa.Description
	contexts  int
	pruned    int
	templates []*Template
	err       error
}

func (g *generator) instruction(ctx context.Context, desc *isa.Description) instructionResult {
	res := instructionResult{desc: desc}
	if !desc.Supports(g.mode) {
		return res
	}

	_, span := tracer.Start(ctx, "template.Instruction", trace.WithAttributes(attribute.String("uid", desc.UID)))
	defer span.End()

	for _, c := range Contexts(desc, g.mode) {
		res.contexts++
		result := Resolve(desc, c)
		switch result.Outcome {
		case Resolved:
			res.templates = append(res.templates, result.Template)
		case Pruned:
			res.pruned++
			g.logger.Debug("pruned context", "instruction", desc.UID, "context", c.String(), "reason", result.Err)
		case Fatal:
			g.logger.Error("failed to resolve instruction", "instruction", desc.UID, "context", c.String(), "error", result.Err)
			span.RecordError(result.Err)
			span.SetStatus(codes.Error, result.Err.Error())
			res.templates = nil
			res.err = result.Err
			return res
		}
	}

	span.SetAttributes(attribute.Int("templates", len(res.templates)), attribute.Int("pruned", res.pruned))

	return res
}
