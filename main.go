// Copyright 2023 The Firefly Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

// Command asmgen resolves IA-32 instruction descriptions into encoding
// templates, and checks, reports, and tracks the results.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"firefly-os.dev/tools/asmgen/cmd/baseline"
	"firefly-os.dev/tools/asmgen/cmd/chart"
	"firefly-os.dev/tools/asmgen/cmd/check"
	"firefly-os.dev/tools/asmgen/cmd/generate"
	"firefly-os.dev/tools/asmgen/cmd/inspect"
	"firefly-os.dev/tools/asmgen/cmd/shell"
	"firefly-os.dev/tools/asmgen/cmd/tree"
	"firefly-os.dev/tools/asmgen/internal/app"
	"firefly-os.dev/tools/asmgen/internal/config"
)

func init() {
	log.SetFlags(0)
	log.SetOutput(os.Stderr)
	log.SetPrefix("")
}

var (
	commandsNames = make([]string, 0, 10)
	commandsMap   = make(map[string]*cobra.Command)

	program = filepath.Base(os.Args[0])
)

func RegisterCommand(cmd *cobra.Command) {
	name := cmd.Name()
	if commandsMap[name] != nil {
		panic("command " + name + " already registered")
	}

	if cmd.RunE == nil && !cmd.HasSubCommands() {
		panic("command " + name + " registered with nil implementation")
	}

	commandsNames = append(commandsNames, name)
	commandsMap[name] = cmd
}

func init() {
	RegisterCommand(baseline.Command())
	RegisterCommand(chart.Command())
	RegisterCommand(check.Command())
	RegisterCommand(generate.Command())
	RegisterCommand(inspect.Command())
	RegisterCommand(shell.Command())
	RegisterCommand(tree.Command())
}

type flags struct {
	config  string
	verbose bool
	mode    int
	workers int
	trace   string
}

func (f *flags) env(cmd *cobra.Command) (*app.Env, error) {
	cfg, err := config.Load(f.config)
	if err != nil {
		return nil, err
	}

	pf := cmd.Flags()
	if pf.Changed("mode") {
		cfg.Mode = f.mode
	}
	if pf.Changed("workers") {
		cfg.Workers = f.workers
	}
	if pf.Changed("trace") {
		cfg.TraceEndpoint = f.trace
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var handler slog.Handler = slog.NewTextHandler(io.Discard, nil)
	if f.verbose {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})
	}

	return &app.Env{Config: cfg, Logger: slog.New(handler)}, nil
}

// startTracing installs an OTLP/HTTP trace
// exporter, returning a function to flush
// and stop it.
func startTracing(ctx context.Context, endpoint string) (func(context.Context) error, error) {
	exporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpoint(endpoint), otlptracehttp.WithInsecure())
	if err != nil {
		return nil, fmt.Errorf("failed to start trace exporter: %v", err)
	}

	provider := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(provider)

	return provider.Shutdown, nil
}

func main() {
	var f flags
	var shutdown func(context.Context) error
	root := &cobra.Command{
		Use:           program,
		Short:         "Resolve IA-32 instruction descriptions into encoding templates",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			log.SetPrefix(cmd.Name() + ": ")
			env, err := f.env(cmd)
			if err != nil {
				return err
			}

			if env.Config.TraceEndpoint != "" {
				shutdown, err = startTracing(cmd.Context(), env.Config.TraceEndpoint)
				if err != nil {
					return err
				}
			}

			cmd.SetContext(app.NewContext(cmd.Context(), env))

			return nil
		},
	}

	root.CompletionOptions.DisableDefaultCmd = true
	pf := root.PersistentFlags()
	pf.StringVarP(&f.config, "config", "c", "", "Path to a TOML config file.")
	pf.BoolVarP(&f.verbose, "verbose", "v", false, "Log pruned contexts and failures.")
	pf.IntVar(&f.mode, "mode", 32, "CPU mode (16 or 32).")
	pf.IntVar(&f.workers, "workers", 0, "Instructions resolved concurrently (default GOMAXPROCS).")
	pf.StringVar(&f.trace, "trace", "", "OTLP/HTTP trace collector endpoint.")

	for _, name := range commandsNames {
		root.AddCommand(commandsMap[name])
	}

	err := root.ExecuteContext(context.Background())
	if shutdown != nil {
		if err := shutdown(context.Background()); err != nil {
			log.Printf("failed to flush traces: %v", err)
		}
	}

	if err != nil {
		log.Fatal(err)
	}
}
