// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pe

import (
	"time"
)

// fileHeaderSize is the fixed 24-byte length of the COFF file header.
const fileHeaderSize = 24

// FileHeader is the PE/COFF file header that follows the DOS stub at
// e_lfanew.
type FileHeader struct {
	Magic              Field[uint32]
	Machine            Field[MachineType]
	SectionCount       Field[uint16]
	Timestamp          Field[uint32]
	SymbolTablePtr     Field[uint32]
	SymbolCount        Field[uint32]
	OptionalHeaderSize Field[uint16]
	Characteristics    Field[Characteristics]
}

// ParseFileHeader reads 24 bytes at startOffset. Parsing never rejects on
// magic mismatch; callers check IsValid.
func ParseFileHeader(src ByteSource, startOffset uint64) (FileHeader, error) {
	raw, err := src.ReadExactAt(startOffset, fileHeaderSize)
	if err != nil {
		return FileHeader{}, err
	}
	if len(raw) < fileHeaderSize {
		return FileHeader{}, TruncatedHeader(fileHeaderSize, len(raw))
	}

	c := newCursor(raw, startOffset)
	var h FileHeader

	magic, _ := readU32(c)
	h.Magic = magic

	machineRaw, _ := readU16(c)
	h.Machine = Field[MachineType]{
		Value:  machineFromRaw(machineRaw.Value),
		Offset: machineRaw.Offset,
		Size:   machineRaw.Size,
	}

	h.SectionCount, _ = readU16(c)
	h.Timestamp, _ = readU32(c)
	h.SymbolTablePtr, _ = readU32(c)
	h.SymbolCount, _ = readU32(c)
	h.OptionalHeaderSize, _ = readU16(c)

	charRaw, _ := readU16(c)
	h.Characteristics = Field[Characteristics]{
		Value:  Characteristics(charRaw.Value),
		Offset: charRaw.Offset,
		Size:   charRaw.Size,
	}

	return h, nil
}

// IsValid reports whether the file header magic is "PE\0\0".
func (h FileHeader) IsValid() bool {
	return h.Magic.Value == ImageNTSignature
}

// TimestampUTC converts Timestamp (Unix seconds) to UTC. The contract
// carries InvalidTimestamp for values outside the representable range,
// though a u32 second count never actually exceeds it.
func (h FileHeader) TimestampUTC() (time.Time, error) {
	v := int64(h.Timestamp.Value)
	t := time.Unix(v, 0).UTC()
	if t.Year() < 1 || t.Year() > 9999 {
		return time.Time{}, InvalidTimestamp(uint64(h.Timestamp.Value))
	}
	return t, nil
}
