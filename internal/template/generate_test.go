// Copyright 2023 The Firefly Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

package template

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"firefly-os.dev/tools/asmgen/internal/isa"
	"firefly-os.dev/tools/asmgen/internal/x86"
)

func TestContexts(t *testing.T) {
	tests := []struct {
		Name  string
		Desc  *isa.Description
		Mode  x86.Mode
		Count int
		First Context
		Last  Context

		// MOD_3 is enumerated at both
		// address sizes.
		Mod3BothSizes bool
	}{
		{
			Name:  "no operands",
			Desc:  testDescription(),
			Mode:  x86.Mode32,
			Count: 1,
			First: Context{AddressSize: 32, OperandSize: 32},
			Last:  Context{AddressSize: 32, OperandSize: 32},
		},
		{
			Name:  "short branch",
			Desc:  testDescription(isa.Jb),
			Mode:  x86.Mode16,
			Count: 2,
			First: Context{AddressSize: 16, OperandSize: 16},
			Last:  Context{AddressSize: 32, OperandSize: 16},
		},
		{
			Name:  "immediate",
			Desc:  testDescription(isa.Iv),
			Mode:  x86.Mode32,
			Count: 2,
			First: Context{AddressSize: 32, OperandSize: 16},
			Last:  Context{AddressSize: 32, OperandSize: 32},
		},
		{
			Name:  "byte register or memory",
			Desc:  testDescription(isa.Eb, isa.Gb),
			Mode:  x86.Mode32,
			Count: 13 + 14,
			First: Context{AddressSize: 16, OperandSize: 32, Mod: Mod0, RM: RMNormal},
			Last:  Context{AddressSize: 32, OperandSize: 32, Mod: Mod3, RM: RMNormal},
		},
		{
			Name:  "full register or memory",
			Desc:  testDescription(isa.Ev, isa.Gv),
			Mode:  x86.Mode16,
			Count: 2*14 + 2*13,
			First: Context{AddressSize: 16, OperandSize: 16, Mod: Mod0, RM: RMNormal},
			Last:  Context{AddressSize: 32, OperandSize: 32, Mod: Mod2, RM: RMSIB, SIBBase: SIBBaseGeneral, SIBIndex: SIBIndexNone},
		},
		{
			Name: "fixed operand size",
			Desc: func() *isa.Description {
				desc := testDescription(isa.Vdq, isa.Wdq)
				desc.OperandSize = 32
				return desc
			}(),
			Mode:  x86.Mode16,
			Count: 13 + 14,
			First: Context{AddressSize: 16, OperandSize: 32, Mod: Mod0, RM: RMNormal},
			Last:  Context{AddressSize: 32, OperandSize: 32, Mod: Mod2, RM: RMSIB, SIBBase: SIBBaseGeneral, SIBIndex: SIBIndexNone},
		},
		{
			Name:          "register or memory with a branch",
			Desc:          testDescription(isa.Eb, isa.Jb),
			Mode:          x86.Mode32,
			Count:         14 + 14,
			First:         Context{AddressSize: 16, OperandSize: 32, Mod: Mod0, RM: RMNormal},
			Last:          Context{AddressSize: 32, OperandSize: 32, Mod: Mod3, RM: RMNormal},
			Mod3BothSizes: true,
		},
		{
			Name:          "register or memory with a string operand",
			Desc:          testDescription(isa.Xb, isa.Eb),
			Mode:          x86.Mode16,
			Count:         14 + 14,
			First:         Context{AddressSize: 16, OperandSize: 16, Mod: Mod0, RM: RMNormal},
			Last:          Context{AddressSize: 32, OperandSize: 16, Mod: Mod3, RM: RMNormal},
			Mod3BothSizes: true,
		},
		{
			Name:  "register direct",
			Desc:  testDescription(isa.Rd, isa.Cd),
			Mode:  x86.Mode32,
			Count: 14,
			First: Context{AddressSize: 32, OperandSize: 32, Mod: Mod0, RM: RMNormal},
			Last:  Context{AddressSize: 32, OperandSize: 32, Mod: Mod3, RM: RMNormal},
		},
	}

	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			contexts := Contexts(test.Desc, test.Mode)
			if len(contexts) != test.Count {
				t.Fatalf("Contexts(): got %d contexts, want %d", len(contexts), test.Count)
			}

			if contexts[0] != test.First {
				t.Errorf("first context: got %s, want %s", contexts[0], test.First)
			}

			if last := contexts[len(contexts)-1]; last != test.Last {
				t.Errorf("last context: got %s, want %s", last, test.Last)
			}

			seen := make(map[Context]bool)
			for _, ctx := range contexts {
				if seen[ctx] {
					t.Errorf("duplicate context %s", ctx)
				}

				seen[ctx] = true
				if ctx.Mod == Mod3 && ctx.AddressSize != int(test.Mode.Int) && !test.Mod3BothSizes {
					t.Errorf("MOD_3 context %s not at the default address size", ctx)
				}

				if (ctx.RM == RMSIB) != (ctx.SIBBase != SIBBaseUnused) {
					t.Errorf("context %s has inconsistent SIB cases", ctx)
				}

				if ctx.SIBBase == SIBBaseSpecial && ctx.Mod != Mod0 {
					t.Errorf("context %s has a special SIB base outside MOD_0", ctx)
				}
			}
		})
	}
}

func TestGenerateCounts(t *testing.T) {
	var stats Stats
	templates, err := Generate(context.Background(), []*isa.Description{testDescription(isa.Eb, isa.Gb)}, WithStats(&stats))
	if err != nil {
		t.Fatal(err)
	}

	want := []InstructionStats{{UID: "TEST", Mnemonic: "test", Contexts: 27, Templates: 13, Pruned: 14}}
	if diff := cmp.Diff(want, stats.Instructions); diff != "" {
		t.Fatalf("stats: (-want, +got)\n%s", diff)
	}

	if len(templates) != 13 {
		t.Fatalf("got %d templates, want 13", len(templates))
	}

	var sib int
	for _, tmpl := range templates {
		if tmpl.HasSIB() {
			sib++
		}
	}

	if sib != 4 {
		t.Fatalf("got %d templates with SIB, want 4", sib)
	}
}

func TestGenerateProperties(t *testing.T) {
	descs, err := isa.Instructions()
	if err != nil {
		t.Fatal(err)
	}

	for _, mode := range x86.Modes {
		t.Run(mode.String, func(t *testing.T) {
			templates, err := Generate(context.Background(), descs, WithMode(mode))
			if err != nil {
				t.Fatalf("Generate(): %v", err)
			}

			if len(templates) == 0 {
				t.Fatal("Generate(): no templates")
			}

			for i, tmpl := range templates {
				if tmpl.Serial() != i {
					t.Fatalf("template %d has serial %d", i, tmpl.Serial())
				}

				checkTemplate(t, tmpl)
			}
		})
	}
}

// checkTemplate checks the laws that hold
// for every emitted template.
func checkTemplate(t *testing.T, tmpl *Template) {
	t.Helper()
	ctx := tmpl.Context()
	places := make(map[Place]bool)
	for _, param := range tmpl.Parameters() {
		if places[param.Place] {
			t.Errorf("%s: place %s used twice", tmpl, param.Place)
		}

		places[param.Place] = true
		switch param.Kind {
		case KindDisplacement:
			want := 8
			if ctx.Mod == Mod2 {
				want = ctx.AddressSize
			}

			if param.Width != want {
				t.Errorf("%s: got displacement width %d, want %d", tmpl, param.Width, want)
			}
		case KindAddress:
			if ctx.Mod != Mod0 {
				break
			}

			switch ctx.RM {
			case RMSWord:
				if param.Width != 16 || ctx.AddressSize != 16 {
					t.Errorf("%s: got absolute address width %d", tmpl, param.Width)
				}
			case RMSDWord, RMSIB:
				if param.Width != 32 {
					t.Errorf("%s: got absolute address width %d, want 32", tmpl, param.Width)
				}
			}
		case KindEnumerable:
			if len(param.Values) == 0 {
				t.Errorf("%s: enumerable parameter at %s has no values", tmpl, param.Place)
			}
		}

		if ctx.Mod == Mod3 {
			switch param.Kind {
			case KindDisplacement:
				t.Errorf("%s: displacement under MOD_3", tmpl)
			case KindEnumerable:
				if param.File.Addressing() {
					t.Errorf("%s: memory operand under MOD_3", tmpl)
				}
			}
		}
	}

	if tmpl.HasSIB() && ctx.AddressSize != 32 {
		t.Errorf("%s: SIB under %d-bit addressing", tmpl, ctx.AddressSize)
	}

	if tmpl.HasSIB() != (places[PlaceSIBScale]) {
		t.Errorf("%s: SIB flag does not match the parameters", tmpl)
	}

	if i, ok := tmpl.LabelParameterIndex(); ok && i >= len(tmpl.Parameters()) {
		t.Errorf("%s: label parameter %d out of range", tmpl, i)
	}
}

func TestGenerateMemoryFormsExcludeMod3(t *testing.T) {
	for _, code := range []isa.OperandCode{isa.Ma, isa.Md_q, isa.Mdq, isa.Mp, isa.Mq, isa.Ms, isa.Mv, isa.Mw} {
		desc := testDescription(code)
		templates, err := Generate(context.Background(), []*isa.Description{desc})
		if err != nil {
			t.Fatalf("%s: %v", code, err)
		}

		if len(templates) == 0 {
			t.Fatalf("%s: no templates", code)
		}

		for _, tmpl := range templates {
			if tmpl.Context().Mod == Mod3 {
				t.Errorf("%s: template under MOD_3: %s", code, tmpl)
			}
		}
	}
}

func TestGenerateDeterministic(t *testing.T) {
	descs, err := isa.Instructions()
	if err != nil {
		t.Fatal(err)
	}

	records := func(workers int) []*Record {
		templates, err := Generate(context.Background(), descs, WithWorkers(workers))
		if err != nil {
			t.Fatalf("Generate(workers=%d): %v", workers, err)
		}

		out := make([]*Record, len(templates))
		for i, tmpl := range templates {
			out[i] = tmpl.Record()
		}

		return out
	}

	want := records(1)
	for _, workers := range []int{2, 8} {
		got := records(workers)
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("Generate(workers=%d): (-workers=1, +workers=%d)\n%s", workers, workers, diff)
		}
	}
}

func TestGenerateFatalInstruction(t *testing.T) {
	good := testDescription(isa.Jb)
	good.UID = "GOOD"
	bad := testDescription(isa.OperandCode(250))
	bad.UID = "BAD"
	other := testDescription(isa.Iv)
	other.UID = "OTHER"

	var stats Stats
	templates, err := Generate(context.Background(), []*isa.Description{good, bad, other}, WithStats(&stats), WithWorkers(2))
	if !errors.Is(err, ErrUnknownOperand) {
		t.Fatalf("Generate(): got error %v, want %v", err, ErrUnknownOperand)
	}

	var uids []string
	for i, tmpl := range templates {
		if tmpl.Serial() != i {
			t.Errorf("template %d has serial %d", i, tmpl.Serial())
		}

		uids = append(uids, tmpl.Description().UID)
	}

	want := []string{"GOOD", "GOOD", "OTHER", "OTHER"}
	if diff := cmp.Diff(want, uids); diff != "" {
		t.Fatalf("Generate(): (-want, +got)\n%s", diff)
	}

	if stats.Failed != 1 || stats.Templates != 4 {
		t.Fatalf("stats: got %d failed and %d templates, want 1 and 4", stats.Failed, stats.Templates)
	}
}

func TestGenerateCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Generate(ctx, []*isa.Description{testDescription(isa.Jb)})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Generate(): got error %v, want %v", err, context.Canceled)
	}
}

func TestGenerateUnsupportedMode(t *testing.T) {
	desc := testDescription(isa.Nd)
	desc.Opcode1, desc.Opcode2, desc.HasOpcode2 = 0x0f, 0xc8, true
	desc.Modes = []x86.Mode{x86.Mode32}

	var stats Stats
	templates, err := Generate(context.Background(), []*isa.Description{desc}, WithMode(x86.Mode16), WithStats(&stats))
	if err != nil {
		t.Fatal(err)
	}

	if len(templates) != 0 || stats.Unsupported != 1 {
		t.Fatalf("Generate(): got %d templates and %d unsupported, want 0 and 1", len(templates), stats.Unsupported)
	}
}

func TestSelectsOperandSize(t *testing.T) {
	direct := Context{AddressSize: 32, OperandSize: 32, Mod: Mod3, RM: RMNormal}
	memory := Context{AddressSize: 32, OperandSize: 32, Mod: Mod0, RM: RMNormal}
	fixed := testDescription(isa.Ev, isa.Gv)
	fixed.OperandSize = 32

	tests := []struct {
		Name    string
		Desc    *isa.Description
		Context Context
		Want    bool
	}{
		{"general registers", testDescription(isa.Ev, isa.Gv), direct, true},
		{"near branch", testDescription(isa.Jv), Context{AddressSize: 32, OperandSize: 32}, true},
		{"stack frame size", testDescription(isa.Iw, isa.Ib), Context{AddressSize: 32, OperandSize: 32}, true},
		{"fixed operand size", fixed, direct, false},
		{"packed single", testDescription(isa.Vps, isa.Wps), direct, false},
		{"non-temporal store", testDescription(isa.Md_q, isa.Gd), memory, false},
		{"byte registers", testDescription(isa.Eb, isa.Gb), direct, false},
	}

	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			res := Resolve(test.Desc, test.Context)
			if res.Outcome != Resolved {
				t.Fatalf("Resolve(%s): %v", test.Context, res.Err)
			}

			if got := res.Template.SelectsOperandSize(); got != test.Want {
				t.Fatalf("SelectsOperandSize(): got %v, want %v", got, test.Want)
			}
		})
	}
}
