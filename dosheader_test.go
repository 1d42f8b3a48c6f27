// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pe

import "testing"

// dosHeaderBytes is the standard 64-byte MS-DOS stub header shared by
// virtually every linker-produced PE file, with e_lfanew = 0x000000F8.
var dosHeaderBytes = []byte{
	0x4D, 0x5A, 0x90, 0x00, 0x03, 0x00, 0x00, 0x00, 0x04, 0x00, 0x00, 0x00, 0xFF, 0xFF, 0x00, 0x00,
	0xB8, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x40, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0xF8, 0x00, 0x00, 0x00,
}

func TestParseDosHeader(t *testing.T) {
	src := NewFragmentSource(dosHeaderBytes, 0)

	h, err := ParseDosHeader(src, 0)
	if err != nil {
		t.Fatalf("ParseDosHeader: %v", err)
	}

	if got, want := h.Magic.Value, uint16(0x5A4D); got != want {
		t.Errorf("Magic = %#x, want %#x", got, want)
	}
	if got, want := h.AddressOfNewEXEHeader.Value, uint32(0x000000F8); got != want {
		t.Errorf("AddressOfNewEXEHeader = %#x, want %#x", got, want)
	}
	if !h.IsValid() {
		t.Error("IsValid() = false, want true")
	}
	if got, want := h.AddressOfNewEXEHeader.Offset, uint64(60); got != want {
		t.Errorf("AddressOfNewEXEHeader.Offset = %d, want %d", got, want)
	}
}

func TestParseDosHeaderInvalidMagic(t *testing.T) {
	bad := append([]byte(nil), dosHeaderBytes...)
	bad[0] = 0x00

	h, err := ParseDosHeader(NewFragmentSource(bad, 0), 0)
	if err != nil {
		t.Fatalf("ParseDosHeader: %v", err)
	}
	if h.IsValid() {
		t.Error("IsValid() = true for a corrupted magic, want false")
	}
}

func TestParseDosHeaderTruncated(t *testing.T) {
	_, err := ParseDosHeader(NewFragmentSource(dosHeaderBytes[:10], 0), 0)
	if err == nil {
		t.Fatal("expected a truncation error")
	}
}
