// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pe

import "testing"

// relocBlobBytes is a synthetic base relocation directory with four blocks
// (2, 6, 22, 4 entries), matching a typical MinGW-built binary's .reloc
// section layout, with the last block holding three 64-bit fixups and one
// absolute padding entry.
var relocBlobBytes = []byte{
	0x00, 0x10, 0x00, 0x00, 0x0C, 0x00, 0x00, 0x00, 0x10, 0x30, 0x20, 0x30, 0x00, 0x20, 0x00, 0x00,
	0x14, 0x00, 0x00, 0x00, 0x00, 0x30, 0x10, 0x30, 0x20, 0x30, 0x30, 0x30, 0x40, 0x30, 0x50, 0x30,
	0x00, 0x30, 0x00, 0x00, 0x34, 0x00, 0x00, 0x00, 0x00, 0x30, 0x10, 0x30, 0x20, 0x30, 0x30, 0x30,
	0x40, 0x30, 0x50, 0x30, 0x60, 0x30, 0x70, 0x30, 0x80, 0x30, 0x90, 0x30, 0xA0, 0x30, 0xB0, 0x30,
	0xC0, 0x30, 0xD0, 0x30, 0xE0, 0x30, 0xF0, 0x30, 0x00, 0x31, 0x10, 0x31, 0x20, 0x31, 0x30, 0x31,
	0x40, 0x31, 0x50, 0x31, 0x00, 0xB0, 0x00, 0x00, 0x10, 0x00, 0x00, 0x00, 0x18, 0xA0, 0x30, 0xA0,
	0x38, 0xA0, 0x00, 0x00,
}

func TestWalkRelocations(t *testing.T) {
	src := NewFragmentSource(relocBlobBytes, 0)

	dir, err := walkRelocations(src, 0, uint32(len(relocBlobBytes)), 0)
	if err != nil {
		t.Fatalf("walkRelocations: %v", err)
	}

	if got, want := len(dir.Blocks), 4; got != want {
		t.Fatalf("len(Blocks) = %d, want %d", got, want)
	}

	wantCounts := []int{2, 6, 22, 4}
	wantPageVA := []uint32{0x1000, 0x2000, 0x3000, 0xB000}
	for i, b := range dir.Blocks {
		if b.PageVA.Value != wantPageVA[i] {
			t.Errorf("Blocks[%d].PageVA = %#x, want %#x", i, b.PageVA.Value, wantPageVA[i])
		}
		if got := len(b.Entries); got != wantCounts[i] {
			t.Errorf("Blocks[%d]: len(Entries) = %d, want %d", i, got, wantCounts[i])
		}
	}

	last := dir.Blocks[3]
	wantTypes := []RelocType{RelocDir64, RelocDir64, RelocDir64, RelocAbsolute}
	wantOffsets := []uint16{0x18, 0x30, 0x38, 0x00}
	wantRVAs := []uint32{60, 62, 64, 66}
	for i, e := range last.Entries {
		if e.Type != wantTypes[i] {
			t.Errorf("last.Entries[%d].Type = %v, want %v", i, e.Type, wantTypes[i])
		}
		if e.PageOffset != wantOffsets[i] {
			t.Errorf("last.Entries[%d].PageOffset = %#x, want %#x", i, e.PageOffset, wantOffsets[i])
		}
		if e.RVA.Value != wantRVAs[i] {
			t.Errorf("last.Entries[%d].RVA = %d, want %d (cumulative across the whole directory, not reset per block)", i, e.RVA.Value, wantRVAs[i])
		}
	}
}

func TestWalkRelocationsRejectsInconsistentBlockSize(t *testing.T) {
	buf := []byte{
		0x00, 0x10, 0x00, 0x00, // page_va
		0xFF, 0x00, 0x00, 0x00, // block_size, way past the directory's 8 bytes
	}
	_, err := walkRelocations(NewFragmentSource(buf, 0), 0, uint32(len(buf)), 0)
	if err == nil {
		t.Fatal("expected an error for a block size exceeding the directory size")
	}
	pe, ok := err.(*PeError)
	if !ok || pe.Kind != KindMalformedInput {
		t.Fatalf("got %v, want KindMalformedInput", err)
	}
}
