// Copyright 2023 The Firefly Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

package shell

import (
	"bytes"
	"context"
	"testing"

	"firefly-os.dev/tools/asmgen/internal/isa"
	"firefly-os.dev/tools/asmgen/internal/template"
	"firefly-os.dev/tools/asmgen/internal/x86"
)

func TestConsole(t *testing.T) {
	descs, err := isa.Instructions()
	if err != nil {
		t.Fatal(err)
	}

	templates, err := template.Generate(context.Background(), isa.Select(descs, "JMP_EB_Jb", "NOP_90"))
	if err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	vm, err := newVM(&out, x86.Mode32, templates)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		Name string
		Code string
		Want string
	}{
		{
			Name: "instructions",
			Code: `instructions().join(",")`,
			Want: "JMP_EB_Jb,NOP_90",
		},
		{
			Name: "count",
			Code: `templates("jmp").length`,
			Want: "2",
		},
		{
			Name: "all",
			Code: `templates().length`,
			Want: "3",
		},
		{
			Name: "fields",
			Code: `templates("NOP_90")[0].uid + " " + templates("NOP_90")[0].serial`,
			Want: "NOP_90 2",
		},
		{
			Name: "assemble",
			Code: `assemble(1, "-2")`,
			Want: "eb fe",
		},
		{
			Name: "assemble 16-bit addressing",
			Code: `assemble(0, "0x10")`,
			Want: "67 eb 10",
		},
		{
			Name: "check",
			Code: `check(1, "0")`,
			Want: "ok",
		},
	}

	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			got, err := vm.RunString(test.Code)
			if err != nil {
				t.Fatalf("%s: %v", test.Code, err)
			}

			if got.String() != test.Want {
				t.Fatalf("%s: got %q, want %q", test.Code, got.String(), test.Want)
			}
		})
	}

	for _, code := range []string{
		`assemble(7, "0")`,
		`assemble(1, "rax")`,
		`assemble(1)`,
	} {
		if _, err := vm.RunString(code); err == nil {
			t.Errorf("%s: unexpected success", code)
		}
	}

	if _, err := vm.RunString(`print("hello")`); err != nil {
		t.Fatal(err)
	}

	if got := out.String(); got != "hello\n" {
		t.Fatalf("print: got %q, want %q", got, "hello\n")
	}
}
