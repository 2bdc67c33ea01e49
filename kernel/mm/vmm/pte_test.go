package vmm

import (
	"kestrel/kernel/mm"
	"testing"
)

func TestPageTableEntryFlags(t *testing.T) {
	var pte pageTableEntry

	pte.SetFrame(mm.Frame(0x1234))
	pte.SetFlags(FlagPresent | FlagRW | FlagNoExecute)

	if !pte.HasFlags(FlagPresent | FlagRW) {
		t.Fatal("expected present and rw flags to be set")
	}
	if pte.HasFlags(FlagPresent | FlagUserAccessible) {
		t.Fatal("expected HasFlags to require every flag")
	}
	if exp, got := FlagPresent|FlagRW|FlagNoExecute, pte.Flags(); got != exp {
		t.Fatalf("expected flags 0x%x; got 0x%x", exp, got)
	}

	pte.SetFrame(mm.Frame(0xabcde))
	pte.ClearFlags(FlagRW)

	if got := pte.Frame(); got != mm.Frame(0xabcde) {
		t.Fatalf("expected frame 0xabcde; got 0x%x", got)
	}
	if exp, got := FlagPresent|FlagNoExecute, pte.Flags(); got != exp {
		t.Fatalf("expected flags 0x%x after SetFrame and ClearFlags; got 0x%x", exp, got)
	}
}

func TestTableIndex(t *testing.T) {
	// P4 index 0x1ff, P3 0x0aa, P2 0x155, P1 0x0f0
	virtAddr := uintptr(0xffff_ffaa_aaaf_0123)
	for level, exp := range []uintptr{0x1ff, 0x0aa, 0x155, 0x0f0} {
		if got := tableIndex(virtAddr, uint8(level)); got != exp {
			t.Errorf("[level %d] expected index 0x%x; got 0x%x", level, exp, got)
		}
	}
}
