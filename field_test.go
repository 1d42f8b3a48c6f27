// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pe

import "testing"

func TestFieldFixRVAAlreadySet(t *testing.T) {
	rva := uint64(0x2000)
	f := Field[uint32]{Value: 7, Offset: 0x400, RVA: &rva}
	if err := f.FixRVA(SectionTable{}); err != nil {
		t.Fatalf("FixRVA on already-resolved field returned error: %v", err)
	}
	if f.RVAOrZero() != 0x2000 {
		t.Fatalf("FixRVA overwrote an already-set RVA: got %#x", f.RVAOrZero())
	}
}

func TestFieldFixRVAResolves(t *testing.T) {
	sections := SectionTable{Sections: []SectionHeader{
		{
			VirtualAddress: NewFieldAt(uint32(0x1000), 0, 4),
			VirtualSize:    NewFieldAt(uint32(0x200), 0, 4),
			RawDataPtr:     NewFieldAt(uint32(0x400), 0, 4),
			RawSize:        NewFieldAt(uint32(0x200), 0, 4),
		},
	}}

	f := NewFieldAt(uint32(0xAA), 0x450, 4)
	if err := f.FixRVA(sections); err != nil {
		t.Fatalf("FixRVA: %v", err)
	}
	if !f.HasRVA() {
		t.Fatal("expected RVA to be resolved")
	}
	if got, want := f.RVAOrZero(), uint64(0x1050); got != want {
		t.Fatalf("RVA = %#x, want %#x", got, want)
	}
}

func TestFieldFixRVAOutsideSections(t *testing.T) {
	f := NewFieldAt(uint32(1), 0xFFFFFF, 4)
	err := f.FixRVA(SectionTable{})
	if err == nil {
		t.Fatal("expected InvalidOffset error")
	}
	pe, ok := err.(*PeError)
	if !ok || pe.Kind != KindInvalidOffset {
		t.Fatalf("got %v, want KindInvalidOffset", err)
	}
}

func TestCursorTakeExhaustion(t *testing.T) {
	c := newCursor([]byte{1, 2, 3}, 0x10)
	b, off, ok := c.take(2)
	if !ok || off != 0x10 || len(b) != 2 {
		t.Fatalf("unexpected first take: %v %v %v", b, off, ok)
	}
	if _, _, ok := c.take(2); ok {
		t.Fatal("take should fail once fewer bytes remain than requested")
	}
	b2, off2, ok2 := c.take(1)
	if !ok2 || off2 != 0x12 || b2[0] != 3 {
		t.Fatalf("unexpected second take: %v %v %v", b2, off2, ok2)
	}
}
