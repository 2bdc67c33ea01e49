package kfmt

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
)

func TestPrintf(t *testing.T) {
	defer func() {
		outputSink = nil
	}()

	// mute vet warnings about malformed printf formatting strings
	printfn := Printf

	specs := []struct {
		fn        func()
		expOutput string
	}{
		{
			func() { printfn("no args") },
			"no args",
		},
		// bool values
		{
			func() { printfn("%t", true) },
			"true",
		},
		{
			func() { printfn("%12t", false) },
			"false",
		},
		// strings, byte slices and chars
		{
			func() { printfn("%s...\t", "heap::alloc_and_free") },
			"heap::alloc_and_free...\t",
		},
		{
			func() { printfn("%s arg", []byte("BYTE SLICE")) },
			"BYTE SLICE arg",
		},
		{
			func() { printfn("'%6s' arg with padding", "[ok]") },
			"'  [ok]' arg with padding",
		},
		{
			func() { printfn("'%2s' arg longer than padding", "[failed]") },
			"'[failed]' arg longer than padding",
		},
		{
			func() { printfn("key: %c%c", byte('o'), 'k') },
			"key: ok",
		},
		// uints
		{
			func() { printfn("vector: %d", uint8(33)) },
			"vector: 33",
		},
		{
			func() { printfn("mode: %o", uint16(0755)) },
			"mode: 755",
		},
		{
			func() { printfn("exit code: 0x%x", uint32(0x11)) },
			"exit code: 0x11",
		},
		{
			func() { printfn("frames: '%8d'", uint64(4096)) },
			"frames: '    4096'",
		},
		{
			func() { printfn("perm: '%4o'", uint(0644)) },
			"perm: '0644'",
		},
		{
			func() { printfn("addr: 0x%16x", uintptr(0xb8000)) },
			"addr: 0x00000000000b8000",
		},
		{
			func() { printfn("short pad: 0x%2x", uint64(0x444444440000)) },
			"short pad: 0x444444440000",
		},
		// ints
		{
			func() { printfn("int arg: %d", int8(-10)) },
			"int arg: -10",
		},
		{
			func() { printfn("int arg: %x", int32(-0x3f8)) },
			"int arg: -3f8",
		},
		{
			func() { printfn("'%10d'", int64(-12345678)) },
			"' -12345678'",
		},
		{
			func() { printfn("'%10d'", int64(-1234567890)) },
			"'-1234567890'",
		},
		{
			func() { printfn("'%6x'", int(-0xff)) },
			"'-000ff'",
		},
		{
			func() { printfn("'%d'", 0) },
			"'0'",
		},
		{
			func() { printfn("huge pad '%128x'", int(-0xbadf00d)) },
			fmt.Sprintf("huge pad '-%sbadf00d'", strings.Repeat("0", maxBufSize-1-8)),
		},
		// multiple arguments
		{
			func() { printfn("%%%s%d%t", "foo", 123, true) },
			`%foo123true`,
		},
		// errors
		{
			func() { printfn("more args", "foo", "bar") },
			`more args%!(EXTRA)%!(EXTRA)`,
		},
		{
			func() { printfn("missing args %s") },
			`missing args (MISSING)`,
		},
		{
			func() { printfn("bad verb %Q") },
			`bad verb %!(NOVERB)`,
		},
		{
			func() { printfn("not bool %t", "foo") },
			`not bool %!(WRONGTYPE)`,
		},
		{
			func() { printfn("not int %d", "foo") },
			`not int %!(WRONGTYPE)`,
		},
		{
			func() { printfn("not string %s", 123) },
			`not string %!(WRONGTYPE)`,
		},
		{
			func() { printfn("not char %c", "x") },
			`not char %!(WRONGTYPE)`,
		},
	}

	var buf bytes.Buffer
	SetOutputSink(&buf)

	for specIndex, spec := range specs {
		buf.Reset()
		spec.fn()

		if got := buf.String(); got != spec.expOutput {
			t.Errorf("[spec %d] expected to get\n%q\ngot:\n%q", specIndex, spec.expOutput, got)
		}
	}
}

func TestPrintfToRingBuffer(t *testing.T) {
	defer func() {
		outputSink = nil
		earlyPrintBuffer = ringBuffer{}
	}()

	outputSink = nil
	earlyPrintBuffer = ringBuffer{}

	exp := "Running 3 tests\n"
	Printf("Running %d tests\n", 3)

	var buf bytes.Buffer
	SetOutputSink(&buf)

	if got := buf.String(); got != exp {
		t.Fatalf("expected to get:\n%q\ngot:\n%q", exp, got)
	}

	if GetOutputSink() != &buf {
		t.Fatal("expected GetOutputSink to return the registered sink")
	}
}

func TestWriter(t *testing.T) {
	defer func() {
		outputSink = nil
		earlyPrintBuffer = ringBuffer{}
	}()

	outputSink = nil
	earlyPrintBuffer = ringBuffer{}

	Fprintf(Writer, "[hal] serial_16550(0.1.0): initialized\n")

	var buf bytes.Buffer
	SetOutputSink(&buf)
	Fprintf(Writer, "[hal] vt(0.1.0): initialized\n")

	exp := "[hal] serial_16550(0.1.0): initialized\n[hal] vt(0.1.0): initialized\n"
	if got := buf.String(); got != exp {
		t.Fatalf("expected to get:\n%q\ngot:\n%q", exp, got)
	}
}

func TestFprintf(t *testing.T) {
	var buf bytes.Buffer

	exp := "[ok]\n"
	Fprintf(&buf, "%s\n", "[ok]")

	if got := buf.String(); got != exp {
		t.Fatalf("expected to get:\n%q\ngot:\n%q", exp, got)
	}
}
