package vmm

import (
	"bytes"
	"kestrel/kernel/gate"
	"kestrel/kernel/kfmt"
	"kestrel/kernel/mm"
	"strings"
	"testing"
)

func TestInstallFaultHandlers(t *testing.T) {
	defer func() { faultMapper = nil }()

	var (
		tbl gate.Table
		m   = NewMapper(0, mm.Frame(1), nil)
	)

	if err := InstallFaultHandlers(&tbl, &m); err != nil {
		t.Fatal(err)
	}

	if faultMapper != &m {
		t.Fatal("expected the fault handlers to use the supplied mapper")
	}

	for _, n := range []gate.InterruptNumber{gate.PageFaultException, gate.GPFException} {
		if got := tbl.Entry(n).Kind; got != gate.KindExceptionWithCode {
			t.Errorf("[vector %d] expected handler kind %q; got %q", n, gate.KindExceptionWithCode, got)
		}
	}

	if err := tbl.Validate(); err != nil {
		t.Fatal(err)
	}

	// Installing twice is rejected by the table.
	if err := InstallFaultHandlers(&tbl, &m); err == nil {
		t.Fatal("expected second registration to fail")
	}
}

func TestPageFaultHandler(t *testing.T) {
	defer func(origCR2 func() uint64, origPanic func(interface{})) {
		readCR2Fn = origCR2
		panicFn = origPanic
		faultMapper = nil
		kfmt.SetOutputSink(nil)
	}(readCR2Fn, panicFn)

	m, _, _ := newTestMapper(t, 8)
	mappedAddr := uintptr(0x444444440000)
	if err := m.Map(mm.PageFromAddress(mappedAddr), mm.Frame(0xb8), 0); err != nil {
		t.Fatal(err)
	}
	faultMapper = m

	specs := []struct {
		faultAddr uintptr
		errCode   uint64
		expReason string
		expMap    string
	}{
		{0xdeadb000, 0, "read from non-present page", "Mapping: none"},
		{0xdeadb000, faultWrite, "write to non-present page", "Mapping: none"},
		{mappedAddr + 8, faultPresent | faultWrite, "page protection violation (write)", "Mapping: frame 0xb8000, flags 0x1"},
		{mappedAddr, faultPresent | faultFetch | faultUser, "instruction fetch in user-mode", "Mapping: frame 0xb8000"},
	}

	for specIndex, spec := range specs {
		var (
			buf      bytes.Buffer
			panicErr interface{}
		)
		kfmt.SetOutputSink(&buf)
		readCR2Fn = func() uint64 { return uint64(spec.faultAddr) }
		panicFn = func(e interface{}) { panicErr = e }

		pageFaultHandler(&gate.Registers{Vector: uint64(gate.PageFaultException), Info: spec.errCode})

		if panicErr != errPageFault {
			t.Errorf("[spec %d] expected panic with errPageFault; got %v", specIndex, panicErr)
		}

		out := buf.String()
		for _, exp := range []string{"Page fault while accessing address", "Reason: " + spec.expReason + "\n", spec.expMap, "Registers:"} {
			if !strings.Contains(out, exp) {
				t.Errorf("[spec %d] expected output to contain %q; got:\n%s", specIndex, exp, out)
			}
		}
	}
}

func TestDescribeFaultCode(t *testing.T) {
	specs := []struct {
		code uint64
		exp  string
	}{
		{0, "read from non-present page\n"},
		{faultWrite, "write to non-present page\n"},
		{faultPresent, "page protection violation (read)\n"},
		{faultPresent | faultWrite | faultUser, "page protection violation (write) in user-mode\n"},
		{faultPresent | faultReserved, "page table has reserved bit set\n"},
		{faultFetch, "instruction fetch\n"},
	}

	for specIndex, spec := range specs {
		var buf bytes.Buffer
		describeFaultCode(&buf, spec.code)
		if got := buf.String(); got != spec.exp {
			t.Errorf("[spec %d] expected %q; got %q", specIndex, spec.exp, got)
		}
	}
}

func TestGeneralProtectionFaultHandler(t *testing.T) {
	defer func(origPanic func(interface{})) {
		panicFn = origPanic
		kfmt.SetOutputSink(nil)
	}(panicFn)

	var (
		buf      bytes.Buffer
		panicErr interface{}
	)
	kfmt.SetOutputSink(&buf)
	panicFn = func(e interface{}) { panicErr = e }

	generalProtectionFaultHandler(&gate.Registers{Info: 0x18})

	if panicErr != errGPF {
		t.Fatalf("expected panic with errGPF; got %v", panicErr)
	}
	if !strings.Contains(buf.String(), "selector error code: 0x18") {
		t.Fatalf("unexpected output:\n%s", buf.String())
	}
}
