// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pe

import (
	"bytes"
	"testing"
)

// TestToFullDOSHeaderRoundTrip reassembles the 64-byte DOS header from the
// raw bytes carried by every FullField, in wire order, and checks the
// result against the original buffer bit for bit — the byte-exact
// round-trip invariant full mode exists to guarantee.
func TestToFullDOSHeaderRoundTrip(t *testing.T) {
	buf := buildMinimalPE64(t)
	img, err := Parse(NewFragmentSource(buf, 0), Options{})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	full := img.ToFull().DOSHeader
	var got bytes.Buffer
	got.Write(full.Magic.Raw)
	got.Write(full.BytesOnLastPageOfFile.Raw)
	got.Write(full.PagesInFile.Raw)
	got.Write(full.Relocations.Raw)
	got.Write(full.SizeOfHeaderInParagraphs.Raw)
	got.Write(full.MinExtraParagraphs.Raw)
	got.Write(full.MaxExtraParagraphs.Raw)
	got.Write(full.InitialSS.Raw)
	got.Write(full.InitialSP.Raw)
	got.Write(full.Checksum.Raw)
	got.Write(full.InitialIP.Raw)
	got.Write(full.InitialCS.Raw)
	got.Write(full.AddressOfRelocationTable.Raw)
	got.Write(full.OverlayNumber.Raw)
	for _, f := range full.ReservedWords1 {
		got.Write(f.Raw)
	}
	got.Write(full.OEMIdentifier.Raw)
	got.Write(full.OEMInformation.Raw)
	for _, f := range full.ReservedWords2 {
		got.Write(f.Raw)
	}
	got.Write(full.AddressOfNewEXEHeader.Raw)

	if got.Len() != dosHeaderSize {
		t.Fatalf("reassembled %d bytes, want %d", got.Len(), dosHeaderSize)
	}
	if !bytes.Equal(got.Bytes(), buf[:dosHeaderSize]) {
		t.Errorf("reassembled DOS header = % x, want % x", got.Bytes(), buf[:dosHeaderSize])
	}
}

// TestToFullImportDescriptorFields checks that TimeDateStamp and
// ForwarderChain survive into full mode alongside the fields already
// covered by imports_test.go.
func TestToFullImportDescriptorFields(t *testing.T) {
	buf := buildMinimalPE64(t)
	img, err := Parse(NewFragmentSource(buf, 0), Options{})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if err := img.ParseImports(); err != nil {
		t.Fatalf("ParseImports: %v", err)
	}

	full := img.ToFull()
	if len(full.Imports) != 3 {
		t.Fatalf("len(Imports) = %d, want 3", len(full.Imports))
	}
	first := full.Imports[0]
	if first.DLLName != "ADVAPI32.dll" {
		t.Fatalf("Imports[0].DLLName = %q, want ADVAPI32.dll", first.DLLName)
	}
	if len(first.TimeDateStamp.Raw) != 4 {
		t.Errorf("TimeDateStamp.Raw has len %d, want 4", len(first.TimeDateStamp.Raw))
	}
	if len(first.ForwarderChain.Raw) != 4 {
		t.Errorf("ForwarderChain.Raw has len %d, want 4", len(first.ForwarderChain.Raw))
	}
	// importBlobBytes's first descriptor carries a zeroed timestamp and
	// forwarder chain (see imports_test.go).
	if first.TimeDateStamp.Value != uint32(0) {
		t.Errorf("TimeDateStamp.Value = %v, want 0", first.TimeDateStamp.Value)
	}
	if first.ForwarderChain.Value != uint32(0) {
		t.Errorf("ForwarderChain.Value = %v, want 0", first.ForwarderChain.Value)
	}
}

// TestToMinimalImage exercises ToMinimal end to end over the same fixture,
// checking the semantic fields a consumer would actually read.
func TestToMinimalImage(t *testing.T) {
	buf := buildMinimalPE64(t)
	img, err := Parse(NewFragmentSource(buf, 0), Options{})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if err := img.ParseImports(); err != nil {
		t.Fatalf("ParseImports: %v", err)
	}

	min := img.ToMinimal()
	if min.DOSHeader.Magic != "MZ" {
		t.Errorf("DOSHeader.Magic = %q, want MZ", min.DOSHeader.Magic)
	}
	if min.FileHeader.MachineType != MachineAMD64.String() {
		t.Errorf("FileHeader.MachineType = %q, want %q", min.FileHeader.MachineType, MachineAMD64.String())
	}
	if min.OptionalHeader.Magic != "PE32+" {
		t.Errorf("OptionalHeader.Magic = %q, want PE32+", min.OptionalHeader.Magic)
	}
	if len(min.Imports) != 3 {
		t.Fatalf("len(Imports) = %d, want 3", len(min.Imports))
	}
	if min.Imports[0].DLLName != "ADVAPI32.dll" {
		t.Errorf("Imports[0].DLLName = %q, want ADVAPI32.dll", min.Imports[0].DLLName)
	}
	if len(min.Imports[0].Functions) != 3 {
		t.Errorf("len(Imports[0].Functions) = %d, want 3", len(min.Imports[0].Functions))
	}
}
