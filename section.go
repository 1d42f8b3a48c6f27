// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pe

import "strings"

// sectionHeaderSize is the fixed 40-byte length of one section table row.
const sectionHeaderSize = 40

// SectionHeader is one row of the section table. There is no padding
// between rows; the table is a flat array immediately following the
// optional header.
type SectionHeader struct {
	Name            Field[[8]byte]
	VirtualSize     Field[uint32]
	VirtualAddress  Field[uint32]
	RawSize         Field[uint32]
	RawDataPtr      Field[uint32]
	RelocsPtr       Field[uint32]
	LineNumPtr      Field[uint32]
	RelocsCount     Field[uint16]
	LineNumCount    Field[uint16]
	Characteristics Field[uint32]
}

// parseSectionHeader reads 40 bytes at startOffset.
func parseSectionHeader(src ByteSource, startOffset uint64) (SectionHeader, error) {
	raw, err := src.ReadExactAt(startOffset, sectionHeaderSize)
	if err != nil {
		return SectionHeader{}, err
	}
	if len(raw) < sectionHeaderSize {
		return SectionHeader{}, TruncatedHeader(sectionHeaderSize, len(raw))
	}

	c := newCursor(raw, startOffset)
	var h SectionHeader

	nameBytes, off, ok := c.take(8)
	if !ok {
		return SectionHeader{}, TruncatedHeader(sectionHeaderSize, len(raw))
	}
	var name [8]byte
	copy(name[:], nameBytes)
	h.Name = NewFieldAt(name, off, 8)

	h.VirtualSize, _ = readU32(c)
	h.VirtualAddress, _ = readU32(c)
	h.RawSize, _ = readU32(c)
	h.RawDataPtr, _ = readU32(c)
	h.RelocsPtr, _ = readU32(c)
	h.LineNumPtr, _ = readU32(c)
	h.RelocsCount, _ = readU16(c)
	h.LineNumCount, _ = readU16(c)
	h.Characteristics, _ = readU32(c)

	return h, nil
}

// IsValid reports whether RelocsCount and LineNumCount are below the
// sentinel 0xFFFF that signals an overflowed (COFF object-only) count.
func (h SectionHeader) IsValid() bool {
	return h.RelocsCount.Value < 0xFFFF && h.LineNumCount.Value < 0xFFFF
}

// NameString returns Name with trailing NUL bytes trimmed.
func (h SectionHeader) NameString() string {
	return strings.TrimRight(string(h.Name.Value[:]), "\x00")
}

// virtualRangeEnd is the RVA one past this section's mapped virtual range.
func (h SectionHeader) virtualRangeEnd() uint64 {
	size := uint64(h.VirtualSize.Value)
	if uint64(h.RawSize.Value) > size {
		size = uint64(h.RawSize.Value)
	}
	return uint64(h.VirtualAddress.Value) + size
}

// Section characteristics bitflags, the subset relevant to an executable
// image (object-file-only flags like alignment and COMDAT are omitted).
const (
	sectionCharCode               = 0x00000020
	sectionCharInitializedData    = 0x00000040
	sectionCharUninitializedData  = 0x00000080
	sectionCharGPRel              = 0x00008000
	sectionCharMemDiscardable     = 0x02000000
	sectionCharMemNotCached       = 0x04000000
	sectionCharMemNotPaged        = 0x08000000
	sectionCharMemShared          = 0x10000000
	sectionCharMemExecute         = 0x20000000
	sectionCharMemRead            = 0x40000000
	sectionCharMemWrite           = 0x80000000
)

var sectionCharacteristicsNames = []struct {
	bit  uint32
	name string
}{
	{sectionCharCode, "CODE"},
	{sectionCharInitializedData, "INITIALIZED_DATA"},
	{sectionCharUninitializedData, "UNINITIALIZED_DATA"},
	{sectionCharGPRel, "GPREL"},
	{sectionCharMemDiscardable, "MEM_DISCARDABLE"},
	{sectionCharMemNotCached, "MEM_NOT_CACHED"},
	{sectionCharMemNotPaged, "MEM_NOT_PAGED"},
	{sectionCharMemShared, "MEM_SHARED"},
	{sectionCharMemExecute, "MEM_EXECUTE"},
	{sectionCharMemRead, "MEM_READ"},
	{sectionCharMemWrite, "MEM_WRITE"},
}

// sectionCharacteristicsString renders value as a pipe-joined,
// bit-index-ascending list of flag names.
func sectionCharacteristicsString(value uint32) string {
	var names []string
	for _, f := range sectionCharacteristicsNames {
		if value&f.bit != 0 {
			names = append(names, f.name)
		}
	}
	return joinFlags(names)
}

// SectionTable is the ordered list of section headers, plus the RVA and
// file-offset translation it makes possible.
type SectionTable struct {
	Sections []SectionHeader
}

// ParseSectionTable reads count rows of 40 bytes starting at startOffset.
func ParseSectionTable(src ByteSource, startOffset uint64, count uint16) (SectionTable, error) {
	t := SectionTable{Sections: make([]SectionHeader, 0, count)}
	offset := startOffset
	for i := uint16(0); i < count; i++ {
		h, err := parseSectionHeader(src, offset)
		if err != nil {
			return t, err
		}
		t.Sections = append(t.Sections, h)
		offset += sectionHeaderSize
	}
	return t, nil
}

// RVAToOffset maps rva to a file offset by finding the first section (in
// table order) whose [virtual_address, virtual_address+max(virtual_size,
// raw_size)) range contains it. Sections with zero RawSize are skipped:
// they have no file bytes to map into.
func (t SectionTable) RVAToOffset(rva uint32) (uint64, bool) {
	for _, s := range t.Sections {
		if s.RawSize.Value == 0 {
			continue
		}
		start := uint64(s.VirtualAddress.Value)
		end := s.virtualRangeEnd()
		if uint64(rva) >= start && uint64(rva) < end {
			return uint64(s.RawDataPtr.Value) + (uint64(rva) - start), true
		}
	}
	return 0, false
}

// OffsetToRVA is the symmetric lookup over raw-data ranges: the first
// section (in table order) whose [raw_data_ptr, raw_data_ptr+raw_size)
// range contains offset.
func (t SectionTable) OffsetToRVA(offset uint64) (uint64, bool) {
	for _, s := range t.Sections {
		if s.RawSize.Value == 0 {
			continue
		}
		start := uint64(s.RawDataPtr.Value)
		end := start + uint64(s.RawSize.Value)
		if offset >= start && offset < end {
			return uint64(s.VirtualAddress.Value) + (offset - start), true
		}
	}
	return 0, false
}

// SectionContaining returns the first section (in table order) whose
// virtual range contains rva, or false if none does.
func (t SectionTable) SectionContaining(rva uint32) (SectionHeader, bool) {
	for _, s := range t.Sections {
		start := uint64(s.VirtualAddress.Value)
		end := s.virtualRangeEnd()
		if uint64(rva) >= start && uint64(rva) < end {
			return s, true
		}
	}
	return SectionHeader{}, false
}
