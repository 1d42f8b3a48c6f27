// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pe

// importDescriptorSize is the fixed 20-byte length of one import
// descriptor row.
const importDescriptorSize = 20

// maxImportDescriptors bounds the number of descriptors a single walk will
// read, guarding against a directory that never terminates with a zero
// descriptor.
const maxImportDescriptors = 16384

// ordinalFlag32/64 is the high bit that marks an ILT/IAT entry as an
// ordinal import rather than a name-RVA import.
const (
	ordinalFlag32 = uint64(1) << 31
	ordinalFlag64 = uint64(1) << 63
)

// ImportedFunction is one entry resolved from an import lookup table: an
// ordinal import or a hint+name import, never both.
type ImportedFunction struct {
	IsOrdinal bool
	Ordinal   Field[uint16]
	Hint      Field[uint16]
	Name      Field[string]
}

// ImportDescriptor is one DLL's worth of imports: its name and the
// functions resolved by walking its import lookup table.
type ImportDescriptor struct {
	ILT            Field[uint32]
	TimeDateStamp  Field[uint32]
	ForwarderChain Field[uint32]
	NameRVA        Field[uint32]
	FirstThunk     Field[uint32]
	DLLName        string
	Functions      []ImportedFunction
}

// ImportDirectory is every descriptor walked from the import data
// directory, in table order.
type ImportDirectory struct {
	Descriptors []ImportDescriptor
}

// walkImports reads descriptors starting at dirOffset until a zero-valued
// descriptor or maxImportDescriptors is reached, resolving each DLL's
// import lookup table. is64 selects the 4-byte or 8-byte ILT/IAT entry
// width.
func walkImports(src ByteSource, sections SectionTable, dirOffset uint64, is64 bool) (ImportDirectory, error) {
	var dir ImportDirectory

	offset := dirOffset
	for count := 0; count < maxImportDescriptors; count++ {
		raw, err := src.ReadExactAt(offset, importDescriptorSize)
		if err != nil {
			return dir, err
		}
		if len(raw) < importDescriptorSize {
			return dir, TruncatedHeader(importDescriptorSize, len(raw))
		}

		c := newCursor(raw, offset)
		ilt, _ := readU32(c)
		timestamp, _ := readU32(c)
		forwarderChain, _ := readU32(c)
		nameRVA, _ := readU32(c)
		firstThunk, _ := readU32(c)

		if ilt.Value == 0 && nameRVA.Value == 0 && firstThunk.Value == 0 {
			break
		}

		desc := ImportDescriptor{
			ILT:            ilt,
			TimeDateStamp:  timestamp,
			ForwarderChain: forwarderChain,
			NameRVA:        nameRVA,
			FirstThunk:     firstThunk,
		}

		nameOffset, ok := sections.RVAToOffset(nameRVA.Value)
		if !ok {
			return dir, InvalidRVA(uint64(nameRVA.Value))
		}
		name, err := src.ReadCStringAt(nameOffset)
		if err != nil {
			return dir, err
		}
		desc.DLLName = name

		iltRVA := ilt.Value
		if iltRVA == 0 {
			iltRVA = firstThunk.Value
		}
		fns, err := walkImportLookupTable(src, sections, iltRVA, is64)
		if err != nil {
			return dir, err
		}
		desc.Functions = fns

		dir.Descriptors = append(dir.Descriptors, desc)
		offset += importDescriptorSize
	}

	if len(dir.Descriptors) >= maxImportDescriptors {
		return dir, MalformedInput("import descriptor count exceeds cap")
	}

	return dir, nil
}

// walkImportLookupTable reads u32 (32-bit) or u64 (64-bit) entries at
// iltRVA until a zero entry, classifying each as an ordinal or a
// hint+name import.
func walkImportLookupTable(src ByteSource, sections SectionTable, iltRVA uint32, is64 bool) ([]ImportedFunction, error) {
	var functions []ImportedFunction

	offset, ok := sections.RVAToOffset(iltRVA)
	if !ok {
		return nil, InvalidRVA(uint64(iltRVA))
	}

	entrySize := uint64(4)
	if is64 {
		entrySize = 8
	}

	for {
		raw, err := src.ReadExactAt(offset, entrySize)
		if err != nil {
			return nil, err
		}
		if len(raw) < int(entrySize) {
			return nil, TruncatedHeader(int(entrySize), len(raw))
		}

		c := newCursor(raw, offset)
		var entryField Field[uint64]
		if is64 {
			f, _ := readU64(c)
			entryField = f
		} else {
			f, _ := readU32(c)
			entryField = Field[uint64]{Value: uint64(f.Value), Offset: f.Offset, Size: f.Size}
		}

		if entryField.Value == 0 {
			break
		}

		ordinalFlag := ordinalFlag32
		if is64 {
			ordinalFlag = ordinalFlag64
		}

		fn := ImportedFunction{}
		if entryField.Value&ordinalFlag != 0 {
			fn.IsOrdinal = true
			fn.Ordinal = NewFieldAt(uint16(entryField.Value&0xFFFF), entryField.Offset, entryField.Size)
		} else {
			nameRVA := uint32(entryField.Value & 0x7FFFFFFF)
			nameOffset, ok := sections.RVAToOffset(nameRVA)
			if !ok {
				return nil, InvalidRVA(uint64(nameRVA))
			}
			hintRaw, err := src.ReadExactAt(nameOffset, 2)
			if err != nil {
				return nil, err
			}
			if len(hintRaw) < 2 {
				return nil, TruncatedHeader(2, len(hintRaw))
			}
			hc := newCursor(hintRaw, nameOffset)
			hint, _ := readU16(hc)
			fn.Hint = hint

			name, err := src.ReadCStringAt(nameOffset + 2)
			if err != nil {
				return nil, err
			}
			fn.Name = NewFieldAt(name, nameOffset+2, uint64(len(name)))
		}

		functions = append(functions, fn)
		offset += entrySize
	}

	return functions, nil
}
