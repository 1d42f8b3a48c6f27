// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pe

// dosHeaderSize is the fixed 64-byte length of the DOS header.
const dosHeaderSize = 64

// DosHeader is the MS-DOS stub every PE file begins with. The need for it
// arose in the early days of Windows: run on bare DOS, it at least printed
// a message saying Windows was required.
type DosHeader struct {
	Magic                    Field[uint16]
	BytesOnLastPageOfFile    Field[uint16]
	PagesInFile              Field[uint16]
	Relocations              Field[uint16]
	SizeOfHeaderInParagraphs Field[uint16]
	MinExtraParagraphs       Field[uint16]
	MaxExtraParagraphs       Field[uint16]
	InitialSS                Field[uint16]
	InitialSP                Field[uint16]
	Checksum                 Field[uint16]
	InitialIP                Field[uint16]
	InitialCS                Field[uint16]
	AddressOfRelocationTable Field[uint16]
	OverlayNumber            Field[uint16]
	ReservedWords1           [4]Field[uint16]
	OEMIdentifier            Field[uint16]
	OEMInformation           Field[uint16]
	ReservedWords2           [10]Field[uint16]

	// AddressOfNewEXEHeader (e_lfanew) is the file offset of the PE file
	// header.
	AddressOfNewEXEHeader Field[uint32]
}

// ParseDosHeader reads exactly 64 bytes at startOffset. Parsing never
// rejects on magic mismatch; callers check IsValid.
func ParseDosHeader(src ByteSource, startOffset uint64) (DosHeader, error) {
	raw, err := src.ReadExactAt(startOffset, dosHeaderSize)
	if err != nil {
		return DosHeader{}, err
	}
	if len(raw) < dosHeaderSize {
		return DosHeader{}, TruncatedHeader(dosHeaderSize, len(raw))
	}

	c := newCursor(raw, startOffset)
	var h DosHeader

	h.Magic, _ = readU16(c)
	h.BytesOnLastPageOfFile, _ = readU16(c)
	h.PagesInFile, _ = readU16(c)
	h.Relocations, _ = readU16(c)
	h.SizeOfHeaderInParagraphs, _ = readU16(c)
	h.MinExtraParagraphs, _ = readU16(c)
	h.MaxExtraParagraphs, _ = readU16(c)
	h.InitialSS, _ = readU16(c)
	h.InitialSP, _ = readU16(c)
	h.Checksum, _ = readU16(c)
	h.InitialIP, _ = readU16(c)
	h.InitialCS, _ = readU16(c)
	h.AddressOfRelocationTable, _ = readU16(c)
	h.OverlayNumber, _ = readU16(c)
	for i := range h.ReservedWords1 {
		h.ReservedWords1[i], _ = readU16(c)
	}
	h.OEMIdentifier, _ = readU16(c)
	h.OEMInformation, _ = readU16(c)
	for i := range h.ReservedWords2 {
		h.ReservedWords2[i], _ = readU16(c)
	}
	h.AddressOfNewEXEHeader, _ = readU32(c)

	return h, nil
}

// IsValid reports whether the DOS magic is "MZ".
func (h DosHeader) IsValid() bool {
	return h.Magic.Value == ImageDOSSignature
}
