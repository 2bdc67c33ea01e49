package keyboard

import "testing"

func TestBuffer(t *testing.T) {
	var b Buffer

	if _, ok := b.TryRead(); ok {
		t.Fatal("expected empty buffer read to fail")
	}

	for _, sc := range []uint8{0x1e, 0x9e, 0x30} {
		b.Decode(sc)
	}

	for i, exp := range []uint8{0x1e, 0x9e, 0x30} {
		got, ok := b.TryRead()
		if !ok || got != exp {
			t.Fatalf("[read %d] expected scancode 0x%x; got 0x%x (ok: %t)", i, exp, got, ok)
		}
	}

	if _, ok := b.TryRead(); ok {
		t.Fatal("expected drained buffer read to fail")
	}
}

func TestBufferOverflow(t *testing.T) {
	var b Buffer

	for i := 0; i < bufferSize+3; i++ {
		b.Decode(uint8(i))
	}

	if b.Dropped() != 3 {
		t.Fatalf("expected 3 dropped scancodes; got %d", b.Dropped())
	}

	// The oldest entries were dropped.
	for i := 3; i < bufferSize+3; i++ {
		got, ok := b.TryRead()
		if !ok || got != uint8(i) {
			t.Fatalf("expected scancode 0x%x; got 0x%x (ok: %t)", uint8(i), got, ok)
		}
	}
}
