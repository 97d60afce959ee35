// Copyright 2023 The Firefly Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

package encoder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/arch/x86/x86asm"

	"firefly-os.dev/tools/asmgen/internal/template"
	"firefly-os.dev/tools/asmgen/internal/x86"
)

var tracer = otel.Tracer("firefly-os.dev/tools/asmgen/internal/encoder")

// ErrUntestable indicates that a template
// cannot be checked by disassembly.
var ErrUntestable = errors.New("template is not externally testable")

// OracleMismatch describes machine code
// that the disassembler reads differently
// from the template that produced it.
type OracleMismatch struct {
	Template *template.Template
	Mode     x86.Mode
	Args     []Argument
	Code     []byte
	WantLen  int
	GotLen   int
	WantOp   string
	GotOp    string
	Err      error // Any decoding error.
}

func (m *OracleMismatch) Error() string {
	if m.Err != nil {
		return fmt.Sprintf("%s %v in %s-bit mode: % x: failed to decode: %v", m.Template, m.Args, m.Mode.String, m.Code, m.Err)
	}

	return fmt.Sprintf("%s %v in %s-bit mode: % x: decoded %d-byte %s, want %d-byte %s", m.Template, m.Args, m.Mode.String, m.Code, m.GotLen, m.GotOp, m.WantLen, m.WantOp)
}

func (m *OracleMismatch) Unwrap() error { return m.Err }

// Check assembles t with args and decodes
// the result. It returns an *OracleMismatch
// if the decoded instruction has a
// different length or mnemonic, and
// ErrUntestable if t cannot be checked.
func Check(t *template.Template, mode x86.Mode, args []Argument) error {
	if !t.ExternallyTestable() {
		return ErrUntestable
	}

	code, err := Assemble(t, mode, args)
	if err != nil {
		return err
	}

	want := strings.ToUpper(t.Description().Mnemonic)
	inst, err := x86asm.Decode(code, int(mode.Int))
	if err != nil {
		return &OracleMismatch{Template: t, Mode: mode, Args: args, Code: code, WantLen: len(code), WantOp: want, Err: err}
	}

	got := inst.Op.String()
	if inst.Len != len(code) || !equivalentOp(want, got) {
		return &OracleMismatch{
			Template: t,
			Mode:     mode,
			Args:     args,
			Code:     code,
			WantLen:  len(code),
			GotLen:   inst.Len,
			WantOp:   want,
			GotOp:    got,
		}
	}

	return nil
}

// equivalentOp reports whether the decoded
// operation got is a spelling of the
// mnemonic want.
func equivalentOp(want, got string) bool {
	if want == got {
		return true
	}

	// XCHG with itself is NOP.
	if want == "XCHG" && got == "NOP" {
		return true
	}

	// String and flag operations take a
	// size suffix, and the SSE scalar
	// double moves are distinguished from
	// the string form.
	rest, ok := strings.CutPrefix(got, want)
	if !ok {
		return false
	}

	switch rest {
	case "B", "W", "D", "Q", "_XMM":
		return true
	}

	return false
}

// Report is the outcome of CheckAll.
type Report struct {
	Templates  int // Templates considered.
	Skipped    int // Templates not externally testable.
	Checked    int // Argument lists assembled and decoded.
	Mismatches []error
}

// CheckAll checks up to limit argument
// lists for each template. Mismatches are
// collected in the report. Other errors,
// such as an argument that cannot be
// encoded, are returned.
func CheckAll(ctx context.Context, templates []*template.Template, mode x86.Mode, limit int, logger *slog.Logger) (*Report, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	_, span := tracer.Start(ctx, "encoder.CheckAll", trace.WithAttributes(
		attribute.Int("templates", len(templates)),
		attribute.String("mode", mode.String),
		attribute.Int("limit", limit),
	))
	defer span.End()

	report := new(Report)
	for _, t := range templates {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		report.Templates++
		if !t.ExternallyTestable() {
			report.Skipped++
			logger.Debug("skipping template", "template", t.String())
			continue
		}

		for _, args := range Arguments(t, limit) {
			report.Checked++
			err := Check(t, mode, args)
			var mismatch *OracleMismatch
			switch {
			case err == nil:
			case errors.As(err, &mismatch):
				logger.Warn("encoding mismatch", "template", t.String(), "error", err)
				report.Mismatches = append(report.Mismatches, err)
			default:
				return report, err
			}
		}
	}

	span.SetAttributes(attribute.Int("checked", report.Checked), attribute.Int("mismatches", len(report.Mismatches)))

	return report, nil
}
