package media

import (
	"bytes"
	"testing"
)

func TestPackRows(t *testing.T) {
	// 2x2 RGB with 2 bytes of stride padding per row
	src := []byte{
		1, 2, 3, 4, 5, 6, 0xEE, 0xEE,
		7, 8, 9, 10, 11, 12, 0xEE, 0xEE,
	}
	got := PackRows(src, 8, 6, 2)
	want := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}
	if !bytes.Equal(got, want) {
		t.Errorf("PackRows = %v, want %v", got, want)
	}
}

func TestPackRowsShortSource(t *testing.T) {
	src := []byte{1, 2, 3}
	got := PackRows(src, 3, 3, 2)
	if len(got) != 6 {
		t.Fatalf("len = %d, want 6", len(got))
	}
	if !bytes.Equal(got, []byte{1, 2, 3, 0, 0, 0}) {
		t.Errorf("PackRows = %v", got)
	}
}

func TestPackRowsEmpty(t *testing.T) {
	if got := PackRows(nil, 0, 0, 4); len(got) != 0 {
		t.Errorf("expected empty buffer, got %d bytes", len(got))
	}
}
