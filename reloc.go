// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pe

// relocBlockHeaderSize is the fixed 8-byte length of a relocation block
// header (page_va, block_size).
const relocBlockHeaderSize = 8

// Relocation is one base relocation: a type and the 12-bit offset into its
// containing page, plus an RVA computed while walking as the directory RVA
// plus two bytes for every entry walked before it (block headers are not
// counted).
type Relocation struct {
	Type       RelocType
	PageOffset uint16
	RVA        Field[uint32]
}

// RelocationBlock is one page's worth of relocations.
type RelocationBlock struct {
	PageVA    Field[uint32]
	BlockSize Field[uint32]
	Entries   []Relocation
}

// RelocationDirectory is every block walked from the base relocation
// directory.
type RelocationDirectory struct {
	Blocks []RelocationBlock
}

// walkRelocations reads blocks starting at dirOffset until exactly
// directorySize bytes have been consumed.
func walkRelocations(src ByteSource, dirOffset uint64, directorySize uint32, directoryRVA uint32) (RelocationDirectory, error) {
	var dir RelocationDirectory

	offset := dirOffset
	consumed := uint32(0)
	cumulative := uint32(0)

	for consumed < directorySize {
		if directorySize-consumed < relocBlockHeaderSize {
			return dir, MalformedInput("relocation directory: trailing bytes too short for a block header")
		}

		raw, err := src.ReadExactAt(offset, relocBlockHeaderSize)
		if err != nil {
			return dir, err
		}
		if len(raw) < relocBlockHeaderSize {
			return dir, TruncatedHeader(relocBlockHeaderSize, len(raw))
		}

		c := newCursor(raw, offset)
		pageVA, _ := readU32(c)
		blockSize, _ := readU32(c)

		if blockSize.Value < relocBlockHeaderSize || consumed+blockSize.Value > directorySize {
			return dir, MalformedInput("relocation block size inconsistent with directory size")
		}

		entryCount := (blockSize.Value - relocBlockHeaderSize) / 2
		entriesRaw, err := src.ReadExactAt(offset+relocBlockHeaderSize, uint64(entryCount)*2)
		if err != nil {
			return dir, err
		}
		if len(entriesRaw) < int(entryCount)*2 {
			return dir, TruncatedHeader(int(entryCount)*2, len(entriesRaw))
		}

		ec := newCursor(entriesRaw, offset+relocBlockHeaderSize)
		block := RelocationBlock{PageVA: pageVA, BlockSize: blockSize, Entries: make([]Relocation, 0, entryCount)}
		for i := uint32(0); i < entryCount; i++ {
			packed, _ := readU16(ec)
			relocType := RelocType(packed.Value >> 12)
			pageOffset := packed.Value & 0x0FFF
			rva := directoryRVA + cumulative
			block.Entries = append(block.Entries, Relocation{
				Type:       relocType,
				PageOffset: pageOffset,
				RVA:        NewFieldAt(rva, packed.Offset, 4),
			})
			cumulative += 2
		}

		dir.Blocks = append(dir.Blocks, block)
		consumed += blockSize.Value
		offset += uint64(blockSize.Value)
	}

	return dir, nil
}
