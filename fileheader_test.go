// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pe

import "testing"

var fileHeaderBytes = []byte{
	0x50, 0x45, 0x00, 0x00, 0x64, 0x86, 0x05, 0x00, 0xA5, 0xE6, 0xE4, 0x61,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0xF0, 0x00, 0x22, 0x00,
}

func TestParseFileHeader(t *testing.T) {
	src := NewFragmentSource(fileHeaderBytes, 0)

	h, err := ParseFileHeader(src, 0)
	if err != nil {
		t.Fatalf("ParseFileHeader: %v", err)
	}

	if got, want := h.Magic.Value, uint32(0x00004550); got != want {
		t.Errorf("Magic = %#x, want %#x", got, want)
	}
	if !h.IsValid() {
		t.Error("IsValid() = false, want true")
	}
	if got, want := h.Machine.Value, MachineAMD64; got != want {
		t.Errorf("Machine = %v, want %v", got, want)
	}
	if got, want := h.SectionCount.Value, uint16(5); got != want {
		t.Errorf("SectionCount = %d, want %d", got, want)
	}
	if got, want := h.OptionalHeaderSize.Value, uint16(0x00F0); got != want {
		t.Errorf("OptionalHeaderSize = %#x, want %#x", got, want)
	}

	wantChars := CharacteristicsExecutable | CharacteristicsLargeAddressAware
	if h.Characteristics.Value != wantChars {
		t.Errorf("Characteristics = %#x, want %#x", h.Characteristics.Value, wantChars)
	}
	wantNames := "EXECUTABLE|LARGE_ADDRESS_AWARE"
	if got := joinFlags(h.Characteristics.Value.Names()); got != wantNames {
		t.Errorf("Characteristics.Names() joined = %q, want %q", got, wantNames)
	}

	ts, err := h.TimestampUTC()
	if err != nil {
		t.Fatalf("TimestampUTC: %v", err)
	}
	if got, want := ts.Format("2006-01-02T15:04:05Z"), "2022-01-17T03:46:45Z"; got != want {
		t.Errorf("TimestampUTC = %s, want %s", got, want)
	}
}

func TestMachineFromRawUnknown(t *testing.T) {
	if got := machineFromRaw(0x9999); got != MachineUnknown {
		t.Errorf("machineFromRaw(0x9999) = %v, want MachineUnknown", got)
	}
}
