// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pe

// exportDirectorySize is the fixed 40-byte length of the export directory.
const exportDirectorySize = 40

// maxExportNames bounds the number of resolved names a single walk will
// produce.
const maxExportNames = 1048576

// Export is one resolved export: a name paired with the ordinal that
// indexes the EAT, and the function RVA found there. Ordinal-only exports
// (no entry in the name-pointer table) carry Name == "NO_NAME".
type Export struct {
	Name        string
	Ordinal     Field[uint16]
	FunctionRVA Field[uint32]
}

// ExportDirectory is the parsed export directory plus every resolved
// export: named exports in name-pointer-table order, followed by the
// ordinal-only ones in EAT order.
type ExportDirectory struct {
	NameRVA               Field[uint32]
	Timestamp             Field[uint32]
	MajorVersion          Field[uint16]
	MinorVersion          Field[uint16]
	OrdinalBase           Field[uint32]
	NumberOfFunctions     Field[uint32]
	NumberOfNames         Field[uint32]
	AddressOfFunctions    Field[uint32]
	AddressOfNames        Field[uint32]
	AddressOfNameOrdinals Field[uint32]
	DLLName               string
	Exports               []Export
}

// walkExports parses the 40-byte export directory at dirOffset and resolves
// every export it describes.
//
// The extra (ordinal-only) tail appends up to number_of_functions −
// number_of_names "NO_NAME" exports, taken in EAT order from the slots no
// name points at; slots holding a zero RVA are skipped.
func walkExports(src ByteSource, sections SectionTable, dirOffset uint64) (ExportDirectory, error) {
	var d ExportDirectory

	raw, err := src.ReadExactAt(dirOffset, exportDirectorySize)
	if err != nil {
		return d, err
	}
	if len(raw) < exportDirectorySize {
		return d, TruncatedHeader(exportDirectorySize, len(raw))
	}

	c := newCursor(raw, dirOffset)
	_, _ = readU32(c) // characteristics, unused
	d.Timestamp, _ = readU32(c)
	d.MajorVersion, _ = readU16(c)
	d.MinorVersion, _ = readU16(c)
	d.NameRVA, _ = readU32(c)
	d.OrdinalBase, _ = readU32(c)
	d.NumberOfFunctions, _ = readU32(c)
	d.NumberOfNames, _ = readU32(c)
	d.AddressOfFunctions, _ = readU32(c)
	d.AddressOfNames, _ = readU32(c)
	d.AddressOfNameOrdinals, _ = readU32(c)

	if d.NumberOfFunctions.Value < d.NumberOfNames.Value {
		return d, MalformedInput("export directory: number_of_functions < number_of_names")
	}
	if uint64(d.NumberOfNames.Value) > maxExportNames {
		return d, MalformedInput("export name count exceeds cap")
	}

	nameOffset, ok := sections.RVAToOffset(d.NameRVA.Value)
	if !ok {
		return d, InvalidRVA(uint64(d.NameRVA.Value))
	}
	dllName, err := src.ReadCStringAt(nameOffset)
	if err != nil {
		return d, err
	}
	d.DLLName = dllName

	eat, err := readU32FieldArray(src, sections, d.AddressOfFunctions.Value, d.NumberOfFunctions.Value)
	if err != nil {
		return d, err
	}

	namePointers, err := readU32FieldArray(src, sections, d.AddressOfNames.Value, d.NumberOfNames.Value)
	if err != nil {
		return d, err
	}

	ordinals, err := readU16FieldArray(src, sections, d.AddressOfNameOrdinals.Value, d.NumberOfNames.Value)
	if err != nil {
		return d, err
	}

	seen := make(map[uint16]bool, len(ordinals))
	exports := make([]Export, 0, d.NumberOfFunctions.Value)

	for i := 0; i < len(namePointers) && i < len(ordinals); i++ {
		ordinal := ordinals[i].Value
		if int(ordinal) >= len(eat) {
			return d, MalformedInput("export ordinal outside the address table")
		}
		nameOff, ok := sections.RVAToOffset(namePointers[i].Value)
		if !ok {
			return d, InvalidRVA(uint64(namePointers[i].Value))
		}
		name, err := src.ReadCStringAt(nameOff)
		if err != nil {
			return d, err
		}
		seen[ordinal] = true
		exports = append(exports, Export{
			Name:        name,
			Ordinal:     ordinals[i],
			FunctionRVA: eat[ordinal],
		})
	}

	extra := int(d.NumberOfFunctions.Value) - int(d.NumberOfNames.Value)
	for i := 0; i < len(eat) && extra > 0; i++ {
		ordinal := uint16(i)
		if seen[ordinal] || eat[ordinal].Value == 0 {
			continue
		}
		exports = append(exports, Export{
			Name:        "NO_NAME",
			Ordinal:     NewFieldAt(ordinal, eat[ordinal].Offset, 2),
			FunctionRVA: eat[ordinal],
		})
		extra--
	}

	for i := range exports {
		_ = exports[i].Ordinal.FixRVA(sections)
		_ = exports[i].FunctionRVA.FixRVA(sections)
	}

	d.Exports = exports
	return d, nil
}

// readU32FieldArray reads count consecutive u32 values starting at rva,
// each stamped with its own file offset.
func readU32FieldArray(src ByteSource, sections SectionTable, rva uint32, count uint32) ([]Field[uint32], error) {
	if count == 0 {
		return nil, nil
	}
	offset, ok := sections.RVAToOffset(rva)
	if !ok {
		return nil, InvalidRVA(uint64(rva))
	}
	raw, err := src.ReadExactAt(offset, uint64(count)*4)
	if err != nil {
		return nil, err
	}
	if len(raw) < int(count)*4 {
		return nil, TruncatedHeader(int(count)*4, len(raw))
	}
	c := newCursor(raw, offset)
	out := make([]Field[uint32], count)
	for i := range out {
		v, _ := readU32(c)
		out[i] = v
	}
	return out, nil
}

// readU16FieldArray reads count consecutive u16 values starting at rva,
// each stamped with its own file offset.
func readU16FieldArray(src ByteSource, sections SectionTable, rva uint32, count uint32) ([]Field[uint16], error) {
	if count == 0 {
		return nil, nil
	}
	offset, ok := sections.RVAToOffset(rva)
	if !ok {
		return nil, InvalidRVA(uint64(rva))
	}
	raw, err := src.ReadExactAt(offset, uint64(count)*2)
	if err != nil {
		return nil, err
	}
	if len(raw) < int(count)*2 {
		return nil, TruncatedHeader(int(count)*2, len(raw))
	}
	c := newCursor(raw, offset)
	out := make([]Field[uint16], count)
	for i := range out {
		v, _ := readU16(c)
		out[i] = v
	}
	return out, nil
}
