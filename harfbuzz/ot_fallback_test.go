package harfbuzz

import (
	"testing"

	"github.com/textshape/complexshape/font"
	"github.com/textshape/complexshape/font/opentype/tables"
)

func TestHasMachineKerning(t *testing.T) {
	plain := font.Kernx{tables.NewKernSubtable(0, 0, font.Kern0{}, false)}
	if hasMachineKerning(plain) {
		t.Fatal("format 0 subtable should not report machine kerning")
	}

	machine := font.Kernx{tables.NewKernSubtable(0, 0, font.Kern1{}, false)}
	if !hasMachineKerning(machine) {
		t.Fatal("format 1 subtable should report machine kerning")
	}
}

func TestMarkVerticalOffset(t *testing.T) {
	fnt := &Font{xScale: 1000}

	if off := markVerticalOffset(fnt, 230); off <= 0 {
		t.Fatalf("above mark (ccc 230) should get a positive offset, got %d", off)
	}
	if off := markVerticalOffset(fnt, 220); off >= 0 {
		t.Fatalf("below mark (ccc 220) should get a negative offset, got %d", off)
	}
	if off := markVerticalOffset(fnt, 0); off != 0 {
		t.Fatalf("ccc 0 is not a recognized mark tier, want 0, got %d", off)
	}
}
