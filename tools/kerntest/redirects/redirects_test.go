package redirects

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()

	root := t.TempDir()
	for name, contents := range files {
		p := filepath.Join(root, name)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(contents), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func TestFind(t *testing.T) {
	root := writeFiles(t, map[string]string{
		"go.mod": "module example.com/kern\n\ngo 1.24\n",
		"kernel/kfmt/panic.go": `package kfmt

// Panic prints err and halts.
//
//go:redirect-from runtime.gopanic
func Panic(e interface{}) {}

//go:redirect-from runtime.throw
func throw(msg string) {}

// notRedirected has no directive.
func notRedirected() {}

type T struct{}

//go:redirect-from runtime.ignored
func (T) method() {}
`,
		"kernel/kfmt/panic_test.go": `package kfmt

//go:redirect-from runtime.fromtest
func testHelper() {}
`,
		"kernel/mem/alloc.go": `package mem

//go:redirect-from runtime.mallocgc
func alloc(size uintptr) uintptr { return 0 }
`,
		"tools/other.go": `package tools

//go:redirect-from runtime.outside
func outside() {}
`,
	})

	got, err := Find(root, "kernel")
	if err != nil {
		t.Fatal(err)
	}

	exp := []*Redirect{
		{Src: "runtime.gopanic", Dst: "example.com/kern/kernel/kfmt.Panic"},
		{Src: "runtime.throw", Dst: "example.com/kern/kernel/kfmt.throw"},
		{Src: "runtime.mallocgc", Dst: "example.com/kern/kernel/mem.alloc"},
	}
	if diff := cmp.Diff(exp, got); diff != "" {
		t.Fatalf("redirects mismatch (-want +got):\n%s", diff)
	}
}

func TestFindErrors(t *testing.T) {
	specs := []struct {
		descr  string
		files  map[string]string
		expErr string
	}{
		{
			"missing go.mod",
			map[string]string{"kernel/a.go": "package a\n"},
			"go.mod",
		},
		{
			"missing module directive",
			map[string]string{"go.mod": "go 1.24\n", "kernel/a.go": "package a\n"},
			"missing module directive",
		},
		{
			"malformed directive",
			map[string]string{
				"go.mod":      "module example.com/kern\n",
				"kernel/a.go": "package a\n\n//go:redirect-from\nfunc f() {}\n",
			},
			`malformed go:redirect-from syntax for "example.com/kern/kernel.f"`,
		},
		{
			"syntax error",
			map[string]string{
				"go.mod":      "module example.com/kern\n",
				"kernel/a.go": "package a\n\nfunc f( {}\n",
			},
			"a.go",
		},
	}

	for _, spec := range specs {
		t.Run(spec.descr, func(t *testing.T) {
			_, err := Find(writeFiles(t, spec.files), "kernel")
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), spec.expErr) {
				t.Fatalf("expected error to contain %q; got %v", spec.expErr, err)
			}
		})
	}
}

func TestModulePath(t *testing.T) {
	root := writeFiles(t, map[string]string{"go.mod": "// comment\nmodule \"example.com/quoted\"\n"})

	got, err := ModulePath(root)
	if err != nil {
		t.Fatal(err)
	}
	if exp := "example.com/quoted"; got != exp {
		t.Fatalf("expected module path %q; got %q", exp, got)
	}
}

func TestResolveSymbols(t *testing.T) {
	img, err := os.Executable()
	if err != nil {
		t.Skip(err)
	}

	list := []*Redirect{{Src: "runtime.gopanic", Dst: "runtime.main"}}
	if err = ResolveSymbols(list, img); err != nil {
		t.Skipf("test binary has no usable symbol table: %v", err)
	}
	if list[0].SrcVMA == 0 || list[0].DstVMA == 0 || list[0].SrcVMA == list[0].DstVMA {
		t.Fatalf("expected distinct non-zero addresses; got 0x%x and 0x%x", list[0].SrcVMA, list[0].DstVMA)
	}

	list = []*Redirect{{Src: "runtime.gopanic", Dst: "no.such.symbol"}}
	if err = ResolveSymbols(list, img); err == nil || !strings.Contains(err.Error(), `"no.such.symbol"`) {
		t.Fatalf("expected missing symbol error; got %v", err)
	}

	if err = WriteTable(list, img); err == nil || !strings.Contains(err.Error(), "missing "+TableSection) {
		t.Fatalf("expected missing section error; got %v", err)
	}
}

func TestNotAnELFImage(t *testing.T) {
	img := filepath.Join(t.TempDir(), "kernel.bin")
	if err := os.WriteFile(img, []byte("not an elf file"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := ResolveSymbols(nil, img); err == nil {
		t.Fatal("expected ResolveSymbols to fail")
	}
	if err := WriteTable(nil, img); err == nil {
		t.Fatal("expected WriteTable to fail")
	}
}
