// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pe

import "testing"

// sixSectionTableBytes is a 240-byte (six-row) section table matching the
// layout of a typical MinGW-built AMD64 PE: .text, .rdata, .data, .gfids,
// .rsrc, .reloc.
var sixSectionTableBytes = []byte{
	0x2E, 0x74, 0x65, 0x78, 0x74, 0x00, 0x00, 0x00, 0x00, 0x10, 0x00, 0x00, 0x00, 0x10, 0x00, 0x00,
	0x00, 0x10, 0x00, 0x00, 0x00, 0x04, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x20, 0x00, 0x00, 0x60, 0x2E, 0x72, 0x64, 0x61, 0x74, 0x61, 0x00, 0x00,
	0x00, 0x08, 0x00, 0x00, 0x00, 0x20, 0x00, 0x00, 0x00, 0x08, 0x00, 0x00, 0x00, 0x14, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x40, 0x00, 0x00, 0x40,
	0x2E, 0x64, 0x61, 0x74, 0x61, 0x00, 0x00, 0x00, 0x00, 0x04, 0x00, 0x00, 0x00, 0x30, 0x00, 0x00,
	0x00, 0x02, 0x00, 0x00, 0x00, 0x1C, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x40, 0x00, 0x00, 0xC0, 0x2E, 0x67, 0x66, 0x69, 0x64, 0x73, 0x00, 0x00,
	0x00, 0x01, 0x00, 0x00, 0x00, 0x40, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x1E, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x40, 0x00, 0x00, 0x40,
	0x2E, 0x72, 0x73, 0x72, 0x63, 0x00, 0x00, 0x00, 0x00, 0x06, 0x00, 0x00, 0x00, 0x50, 0x00, 0x00,
	0x00, 0x06, 0x00, 0x00, 0x00, 0x1F, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x40, 0x00, 0x00, 0x40, 0x2E, 0x72, 0x65, 0x6C, 0x6F, 0x63, 0x00, 0x00,
	0x00, 0x03, 0x00, 0x00, 0x00, 0x60, 0x00, 0x00, 0x00, 0x02, 0x00, 0x00, 0x00, 0x25, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x40, 0x00, 0x00, 0x42,
}

func TestParseSectionTable(t *testing.T) {
	src := NewFragmentSource(sixSectionTableBytes, 0)

	table, err := ParseSectionTable(src, 0, 6)
	if err != nil {
		t.Fatalf("ParseSectionTable: %v", err)
	}

	wantNames := []string{".text", ".rdata", ".data", ".gfids", ".rsrc", ".reloc"}
	if len(table.Sections) != len(wantNames) {
		t.Fatalf("got %d sections, want %d", len(table.Sections), len(wantNames))
	}
	for i, want := range wantNames {
		if got := table.Sections[i].NameString(); got != want {
			t.Errorf("section[%d].NameString() = %q, want %q", i, got, want)
		}
	}

	text := table.Sections[0]
	wantChars := sectionCharCode | sectionCharMemRead | sectionCharMemExecute
	if text.Characteristics.Value != wantChars {
		t.Errorf(".text characteristics = %#x, want %#x", text.Characteristics.Value, wantChars)
	}
	wantNameList := "CODE|MEM_EXECUTE|MEM_READ"
	if got := sectionCharacteristicsString(text.Characteristics.Value); got != wantNameList {
		t.Errorf(".text characteristics string = %q, want %q", got, wantNameList)
	}
}

func TestSectionTableRVAToOffsetAndBack(t *testing.T) {
	table, err := ParseSectionTable(NewFragmentSource(sixSectionTableBytes, 0), 0, 6)
	if err != nil {
		t.Fatalf("ParseSectionTable: %v", err)
	}

	rdata := table.Sections[1]
	for o := rdata.RawDataPtr.Value; o < rdata.RawDataPtr.Value+rdata.RawSize.Value; o += 0x100 {
		rva, ok := table.OffsetToRVA(uint64(o))
		if !ok {
			t.Fatalf("OffsetToRVA(%#x) failed", o)
		}
		wantRVA := uint64(rdata.VirtualAddress.Value) + uint64(o-rdata.RawDataPtr.Value)
		if rva != wantRVA {
			t.Fatalf("OffsetToRVA(%#x) = %#x, want %#x", o, rva, wantRVA)
		}
		offset, ok := table.RVAToOffset(uint32(rva))
		if !ok {
			t.Fatalf("RVAToOffset(%#x) failed", rva)
		}
		if offset != uint64(o) {
			t.Fatalf("RVAToOffset(%#x) = %#x, want %#x", rva, offset, o)
		}
	}
}

func TestSectionTableRVAOutsideAnySection(t *testing.T) {
	table, err := ParseSectionTable(NewFragmentSource(sixSectionTableBytes, 0), 0, 6)
	if err != nil {
		t.Fatalf("ParseSectionTable: %v", err)
	}
	if _, ok := table.RVAToOffset(0xFFFFFFF); ok {
		t.Error("RVAToOffset should fail for an RVA outside every section")
	}
	if _, ok := table.SectionContaining(0xFFFFFFF); ok {
		t.Error("SectionContaining should fail for an RVA outside every section")
	}
}
