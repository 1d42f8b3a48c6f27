// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pe

import "encoding/binary"

// FullField is the byte-exact rendering of a single Field[T]: the raw
// little-endian bytes it was read from, alongside its decoded value and
// provenance. Every parsed numeric field in "full" JSON takes this shape;
// decoded strings (DLL and export names), relocation types and page
// offsets, and resource entry names/ids are rendered as plain values
// without raw bytes. See spec.md §4.9.
type FullField struct {
	Raw    []byte      `json:"raw"`
	Value  interface{} `json:"value"`
	Offset uint64      `json:"offset"`
	RVA    uint64      `json:"rva"`
	Size   uint64      `json:"size"`
}

func toFullField(value interface{}, offset uint64, rva *uint64, size uint64) FullField {
	var rvaVal uint64
	if rva != nil {
		rvaVal = *rva
	}
	return FullField{
		Raw:    littleEndianBytes(value, size),
		Value:  value,
		Offset: offset,
		RVA:    rvaVal,
		Size:   size,
	}
}

// littleEndianBytes re-encodes an already-decoded scalar back to its raw
// little-endian byte representation, so "full" JSON can carry both forms
// without the parser having kept the original slice around.
func littleEndianBytes(value interface{}, size uint64) []byte {
	buf := make([]byte, size)
	switch v := value.(type) {
	case uint8:
		if len(buf) >= 1 {
			buf[0] = v
		}
	case uint16:
		binary.LittleEndian.PutUint16(buf, v)
	case uint32:
		binary.LittleEndian.PutUint32(buf, v)
	case uint64:
		binary.LittleEndian.PutUint64(buf, v)
	case Characteristics:
		binary.LittleEndian.PutUint16(buf, uint16(v))
	case SubSystem:
		binary.LittleEndian.PutUint16(buf, uint16(v))
	case DllCharacteristics:
		binary.LittleEndian.PutUint16(buf, uint16(v))
	case MachineType:
		binary.LittleEndian.PutUint16(buf, uint16(v))
	case []byte:
		copy(buf, v)
	case [8]byte:
		copy(buf, v[:])
	case string:
		copy(buf, []byte(v))
	}
	return buf
}

// FullField builders for each Field[T] instantiation this package parses.
func fieldToFull(f Field[uint8]) FullField     { return toFullField(f.Value, f.Offset, f.RVA, f.Size) }
func u16FieldToFull(f Field[uint16]) FullField { return toFullField(f.Value, f.Offset, f.RVA, f.Size) }
func u32FieldToFull(f Field[uint32]) FullField { return toFullField(f.Value, f.Offset, f.RVA, f.Size) }
func u64FieldToFull(f Field[uint64]) FullField { return toFullField(f.Value, f.Offset, f.RVA, f.Size) }

func machineFieldToFull(f Field[MachineType]) FullField {
	return toFullField(uint16(f.Value), f.Offset, f.RVA, f.Size)
}

func characteristicsFieldToFull(f Field[Characteristics]) FullField {
	return toFullField(uint16(f.Value), f.Offset, f.RVA, f.Size)
}

func subsystemFieldToFull(f Field[SubSystem]) FullField {
	return toFullField(uint16(f.Value), f.Offset, f.RVA, f.Size)
}

func dllCharFieldToFull(f Field[DllCharacteristics]) FullField {
	return toFullField(uint16(f.Value), f.Offset, f.RVA, f.Size)
}

// FullDOSHeader is the byte-exact rendering of DosHeader.
type FullDOSHeader struct {
	Magic                    FullField     `json:"magic"`
	BytesOnLastPageOfFile    FullField     `json:"bytes_on_last_page_of_file"`
	PagesInFile              FullField     `json:"pages_in_file"`
	Relocations              FullField     `json:"relocations"`
	SizeOfHeaderInParagraphs FullField     `json:"size_of_header_in_paragraphs"`
	MinExtraParagraphs       FullField     `json:"min_extra_paragraphs"`
	MaxExtraParagraphs       FullField     `json:"max_extra_paragraphs"`
	InitialSS                FullField     `json:"initial_ss"`
	InitialSP                FullField     `json:"initial_sp"`
	Checksum                 FullField     `json:"checksum"`
	InitialIP                FullField     `json:"initial_ip"`
	InitialCS                FullField     `json:"initial_cs"`
	AddressOfRelocationTable FullField     `json:"address_of_relocation_table"`
	OverlayNumber            FullField     `json:"overlay_number"`
	ReservedWords1           [4]FullField  `json:"reserved_1"`
	OEMIdentifier            FullField     `json:"oem_identifier"`
	OEMInformation           FullField     `json:"oem_information"`
	ReservedWords2           [10]FullField `json:"reserved_2"`
	AddressOfNewEXEHeader    FullField     `json:"e_lfanew"`
}

func toFullDOSHeader(h DosHeader) FullDOSHeader {
	out := FullDOSHeader{
		Magic:                    u16FieldToFull(h.Magic),
		BytesOnLastPageOfFile:    u16FieldToFull(h.BytesOnLastPageOfFile),
		PagesInFile:              u16FieldToFull(h.PagesInFile),
		Relocations:              u16FieldToFull(h.Relocations),
		SizeOfHeaderInParagraphs: u16FieldToFull(h.SizeOfHeaderInParagraphs),
		MinExtraParagraphs:       u16FieldToFull(h.MinExtraParagraphs),
		MaxExtraParagraphs:       u16FieldToFull(h.MaxExtraParagraphs),
		InitialSS:                u16FieldToFull(h.InitialSS),
		InitialSP:                u16FieldToFull(h.InitialSP),
		Checksum:                 u16FieldToFull(h.Checksum),
		InitialIP:                u16FieldToFull(h.InitialIP),
		InitialCS:                u16FieldToFull(h.InitialCS),
		AddressOfRelocationTable: u16FieldToFull(h.AddressOfRelocationTable),
		OverlayNumber:            u16FieldToFull(h.OverlayNumber),
		OEMIdentifier:            u16FieldToFull(h.OEMIdentifier),
		OEMInformation:           u16FieldToFull(h.OEMInformation),
		AddressOfNewEXEHeader:    u32FieldToFull(h.AddressOfNewEXEHeader),
	}
	for i := range h.ReservedWords1 {
		out.ReservedWords1[i] = u16FieldToFull(h.ReservedWords1[i])
	}
	for i := range h.ReservedWords2 {
		out.ReservedWords2[i] = u16FieldToFull(h.ReservedWords2[i])
	}
	return out
}

// FullFileHeader is the byte-exact rendering of FileHeader.
type FullFileHeader struct {
	Magic              FullField `json:"magic"`
	Machine            FullField `json:"machine"`
	SectionCount       FullField `json:"number_of_sections"`
	Timestamp          FullField `json:"timestamp"`
	SymbolTablePtr     FullField `json:"pointer_to_symbol_table"`
	SymbolCount        FullField `json:"number_of_symbols"`
	OptionalHeaderSize FullField `json:"size_of_optional_header"`
	Characteristics    FullField `json:"charactristics"`
}

func toFullFileHeader(h FileHeader) FullFileHeader {
	return FullFileHeader{
		Magic:              u32FieldToFull(h.Magic),
		Machine:            machineFieldToFull(h.Machine),
		SectionCount:       u16FieldToFull(h.SectionCount),
		Timestamp:          u32FieldToFull(h.Timestamp),
		SymbolTablePtr:     u32FieldToFull(h.SymbolTablePtr),
		SymbolCount:        u32FieldToFull(h.SymbolCount),
		OptionalHeaderSize: u16FieldToFull(h.OptionalHeaderSize),
		Characteristics:    characteristicsFieldToFull(h.Characteristics),
	}
}

// FullDataDirectoryEntry is the byte-exact rendering of one data directory
// slot.
type FullDataDirectoryEntry struct {
	RVA  FullField `json:"rva"`
	Size FullField `json:"size"`
}

func toFullDataDirectory(d DataDirectory) []FullDataDirectoryEntry {
	out := make([]FullDataDirectoryEntry, 0, len(d.Entries))
	for _, e := range d.Entries {
		out = append(out, FullDataDirectoryEntry{RVA: u32FieldToFull(e.RVA), Size: u32FieldToFull(e.Size)})
	}
	return out
}

// FullOptionalHeader is the byte-exact rendering of either optional header
// variant, serialized untagged: PE32-only fields (BaseOfData, 32-bit
// ImageBase/stack/heap sizes) are present only for a PE32 image, and the
// 64-bit equivalents only for PE32+.
type FullOptionalHeader struct {
	Magic                   FullField                 `json:"magic"`
	MajorLinkerVersion      FullField                 `json:"major_linker_version"`
	MinorLinkerVersion      FullField                 `json:"minor_linker_version"`
	SizeOfCode              FullField                 `json:"size_of_code"`
	SizeOfInitializedData   FullField                 `json:"size_of_initialized_data"`
	SizeOfUninitializedData FullField                 `json:"size_of_uninitialized_data"`
	AddressOfEntryPoint     FullField                 `json:"address_of_entry_point"`
	BaseOfCode              FullField                 `json:"base_of_code"`
	BaseOfData              *FullField                `json:"base_of_data,omitempty"`
	ImageBase               FullField                 `json:"image_base"`
	SectionAlignment        FullField                 `json:"section_alignment"`
	FileAlignment           FullField                 `json:"file_alignment"`
	MajorOSVersion          FullField                 `json:"major_os_version"`
	MinorOSVersion          FullField                 `json:"minor_os_version"`
	MajorImageVersion       FullField                 `json:"major_image_version"`
	MinorImageVersion       FullField                 `json:"minor_image_version"`
	MajorSubsystemVersion   FullField                 `json:"major_subsystem_version"`
	MinorSubsystemVersion   FullField                 `json:"minor_subsystem_version"`
	Win32VersionValue       FullField                 `json:"win32_version_value"`
	SizeOfImage             FullField                 `json:"size_of_image"`
	SizeOfHeaders           FullField                 `json:"size_of_headers"`
	CheckSum                FullField                 `json:"checksum"`
	Subsystem               FullField                 `json:"subsystem"`
	DllCharacteristics      FullField                 `json:"dll_characteristics"`
	SizeOfStackReserve      FullField                 `json:"size_of_stack_reserve"`
	SizeOfStackCommit       FullField                 `json:"size_of_stack_commit"`
	SizeOfHeapReserve       FullField                 `json:"size_of_heap_reserve"`
	SizeOfHeapCommit        FullField                 `json:"size_of_heap_commit"`
	LoaderFlags             FullField                `json:"loader_flags"`
	NumberOfRvaAndSizes     FullField                `json:"number_of_rva_and_sizes"`
	DataDirectory           []FullDataDirectoryEntry `json:"data_directory"`
}

func toFullOptionalHeader32(h OptionalHeader32) FullOptionalHeader {
	baseOfData := u32FieldToFull(h.BaseOfData)
	return FullOptionalHeader{
		Magic:                   u16FieldToFull(h.Magic),
		MajorLinkerVersion:      fieldToFull(h.MajorLinkerVersion),
		MinorLinkerVersion:      fieldToFull(h.MinorLinkerVersion),
		SizeOfCode:              u32FieldToFull(h.SizeOfCode),
		SizeOfInitializedData:   u32FieldToFull(h.SizeOfInitializedData),
		SizeOfUninitializedData: u32FieldToFull(h.SizeOfUninitializedData),
		AddressOfEntryPoint:     u32FieldToFull(h.AddressOfEntryPoint),
		BaseOfCode:              u32FieldToFull(h.BaseOfCode),
		BaseOfData:              &baseOfData,
		ImageBase:               u32FieldToFull(h.ImageBase),
		SectionAlignment:        u32FieldToFull(h.SectionAlignment),
		FileAlignment:           u32FieldToFull(h.FileAlignment),
		MajorOSVersion:          u16FieldToFull(h.MajorOSVersion),
		MinorOSVersion:          u16FieldToFull(h.MinorOSVersion),
		MajorImageVersion:       u16FieldToFull(h.MajorImageVersion),
		MinorImageVersion:       u16FieldToFull(h.MinorImageVersion),
		MajorSubsystemVersion:   u16FieldToFull(h.MajorSubsystemVersion),
		MinorSubsystemVersion:   u16FieldToFull(h.MinorSubsystemVersion),
		Win32VersionValue:       u32FieldToFull(h.Win32VersionValue),
		SizeOfImage:             u32FieldToFull(h.SizeOfImage),
		SizeOfHeaders:           u32FieldToFull(h.SizeOfHeaders),
		CheckSum:                u32FieldToFull(h.CheckSum),
		Subsystem:               subsystemFieldToFull(h.Subsystem),
		DllCharacteristics:      dllCharFieldToFull(h.DllCharacteristics),
		SizeOfStackReserve:      u32FieldToFull(h.SizeOfStackReserve),
		SizeOfStackCommit:       u32FieldToFull(h.SizeOfStackCommit),
		SizeOfHeapReserve:       u32FieldToFull(h.SizeOfHeapReserve),
		SizeOfHeapCommit:        u32FieldToFull(h.SizeOfHeapCommit),
		LoaderFlags:             u32FieldToFull(h.LoaderFlags),
		NumberOfRvaAndSizes:     u32FieldToFull(h.NumberOfRvaAndSizes),
		DataDirectory:           toFullDataDirectory(h.DataDirectory),
	}
}

func toFullOptionalHeader64(h OptionalHeader64) FullOptionalHeader {
	return FullOptionalHeader{
		Magic:                   u16FieldToFull(h.Magic),
		MajorLinkerVersion:      fieldToFull(h.MajorLinkerVersion),
		MinorLinkerVersion:      fieldToFull(h.MinorLinkerVersion),
		SizeOfCode:              u32FieldToFull(h.SizeOfCode),
		SizeOfInitializedData:   u32FieldToFull(h.SizeOfInitializedData),
		SizeOfUninitializedData: u32FieldToFull(h.SizeOfUninitializedData),
		AddressOfEntryPoint:     u32FieldToFull(h.AddressOfEntryPoint),
		BaseOfCode:              u32FieldToFull(h.BaseOfCode),
		ImageBase:               u64FieldToFull(h.ImageBase),
		SectionAlignment:        u32FieldToFull(h.SectionAlignment),
		FileAlignment:           u32FieldToFull(h.FileAlignment),
		MajorOSVersion:          u16FieldToFull(h.MajorOSVersion),
		MinorOSVersion:          u16FieldToFull(h.MinorOSVersion),
		MajorImageVersion:       u16FieldToFull(h.MajorImageVersion),
		MinorImageVersion:       u16FieldToFull(h.MinorImageVersion),
		MajorSubsystemVersion:   u16FieldToFull(h.MajorSubsystemVersion),
		MinorSubsystemVersion:   u16FieldToFull(h.MinorSubsystemVersion),
		Win32VersionValue:       u32FieldToFull(h.Win32VersionValue),
		SizeOfImage:             u32FieldToFull(h.SizeOfImage),
		SizeOfHeaders:           u32FieldToFull(h.SizeOfHeaders),
		CheckSum:                u32FieldToFull(h.CheckSum),
		Subsystem:               subsystemFieldToFull(h.Subsystem),
		DllCharacteristics:      dllCharFieldToFull(h.DllCharacteristics),
		SizeOfStackReserve:      u64FieldToFull(h.SizeOfStackReserve),
		SizeOfStackCommit:       u64FieldToFull(h.SizeOfStackCommit),
		SizeOfHeapReserve:       u64FieldToFull(h.SizeOfHeapReserve),
		SizeOfHeapCommit:        u64FieldToFull(h.SizeOfHeapCommit),
		LoaderFlags:             u32FieldToFull(h.LoaderFlags),
		NumberOfRvaAndSizes:     u32FieldToFull(h.NumberOfRvaAndSizes),
		DataDirectory:           toFullDataDirectory(h.DataDirectory),
	}
}

// FullSection is the byte-exact rendering of SectionHeader.
type FullSection struct {
	Name            FullField `json:"name"`
	VirtualSize     FullField `json:"virtual_size"`
	VirtualAddress  FullField `json:"virtual_address"`
	RawSize         FullField `json:"size_of_raw_data"`
	RawDataPtr      FullField `json:"pointer_to_raw_data"`
	RelocsPtr       FullField `json:"pointer_to_relocations"`
	LineNumPtr      FullField `json:"pointer_to_line_numbers"`
	RelocsCount     FullField `json:"number_of_relocations"`
	LineNumCount    FullField `json:"number_of_line_numbers"`
	Characteristics FullField `json:"charactristics"`
}

func toFullSection(h SectionHeader) FullSection {
	return FullSection{
		Name:            toFullField(h.Name.Value, h.Name.Offset, h.Name.RVA, h.Name.Size),
		VirtualSize:     u32FieldToFull(h.VirtualSize),
		VirtualAddress:  u32FieldToFull(h.VirtualAddress),
		RawSize:         u32FieldToFull(h.RawSize),
		RawDataPtr:      u32FieldToFull(h.RawDataPtr),
		RelocsPtr:       u32FieldToFull(h.RelocsPtr),
		LineNumPtr:      u32FieldToFull(h.LineNumPtr),
		RelocsCount:     u16FieldToFull(h.RelocsCount),
		LineNumCount:    u16FieldToFull(h.LineNumCount),
		Characteristics: u32FieldToFull(h.Characteristics),
	}
}

// FullImportFunction is the byte-exact rendering of an ImportedFunction.
type FullImportFunction struct {
	Ordinal *FullField `json:"ordinal,omitempty"`
	Hint    *FullField `json:"hint,omitempty"`
	Name    *FullField `json:"name,omitempty"`
}

// FullImportDescriptor is the byte-exact rendering of an ImportDescriptor.
type FullImportDescriptor struct {
	ILT            FullField            `json:"ilt"`
	TimeDateStamp  FullField            `json:"time_date_stamp"`
	ForwarderChain FullField            `json:"forwarder_chain"`
	NameRVA        FullField            `json:"name_rva"`
	FirstThunk     FullField            `json:"first_thunk"`
	DLLName        string               `json:"dll_name"`
	Functions      []FullImportFunction `json:"functions"`
}

func toFullImports(dir *ImportDirectory) []FullImportDescriptor {
	out := make([]FullImportDescriptor, 0, len(dir.Descriptors))
	for _, d := range dir.Descriptors {
		fns := make([]FullImportFunction, 0, len(d.Functions))
		for _, f := range d.Functions {
			ff := FullImportFunction{}
			if f.IsOrdinal {
				v := u16FieldToFull(f.Ordinal)
				ff.Ordinal = &v
			} else {
				h := u16FieldToFull(f.Hint)
				n := toFullField(f.Name.Value, f.Name.Offset, f.Name.RVA, f.Name.Size)
				ff.Hint = &h
				ff.Name = &n
			}
			fns = append(fns, ff)
		}
		out = append(out, FullImportDescriptor{
			ILT:            u32FieldToFull(d.ILT),
			TimeDateStamp:  u32FieldToFull(d.TimeDateStamp),
			ForwarderChain: u32FieldToFull(d.ForwarderChain),
			NameRVA:        u32FieldToFull(d.NameRVA),
			FirstThunk:     u32FieldToFull(d.FirstThunk),
			DLLName:        d.DLLName,
			Functions:      fns,
		})
	}
	return out
}

// FullExport is the byte-exact rendering of an Export.
type FullExport struct {
	Name        string    `json:"name"`
	Ordinal     FullField `json:"ordinal"`
	FunctionRVA FullField `json:"function_rva"`
}

// FullExportDirectory is the byte-exact rendering of an ExportDirectory.
type FullExportDirectory struct {
	DLLName string       `json:"dll_name"`
	Exports []FullExport `json:"exports"`
}

func toFullExports(dir *ExportDirectory) FullExportDirectory {
	out := FullExportDirectory{DLLName: dir.DLLName, Exports: make([]FullExport, 0, len(dir.Exports))}
	for _, e := range dir.Exports {
		out.Exports = append(out.Exports, FullExport{
			Name:        e.Name,
			Ordinal:     u16FieldToFull(e.Ordinal),
			FunctionRVA: u32FieldToFull(e.FunctionRVA),
		})
	}
	return out
}

// FullRelocEntry is the byte-exact rendering of a Relocation.
type FullRelocEntry struct {
	Type       string    `json:"type"`
	PageOffset uint16    `json:"page_offset"`
	RVA        FullField `json:"rva"`
}

// FullRelocBlock is the byte-exact rendering of a RelocationBlock.
type FullRelocBlock struct {
	PageVA    FullField        `json:"page_va"`
	BlockSize FullField        `json:"block_size"`
	Entries   []FullRelocEntry `json:"entries"`
}

func toFullRelocations(dir *RelocationDirectory) []FullRelocBlock {
	out := make([]FullRelocBlock, 0, len(dir.Blocks))
	for _, b := range dir.Blocks {
		entries := make([]FullRelocEntry, 0, len(b.Entries))
		for _, e := range b.Entries {
			entries = append(entries, FullRelocEntry{
				Type:       e.Type.String(),
				PageOffset: e.PageOffset,
				RVA:        u32FieldToFull(e.RVA),
			})
		}
		out = append(out, FullRelocBlock{PageVA: u32FieldToFull(b.PageVA), BlockSize: u32FieldToFull(b.BlockSize), Entries: entries})
	}
	return out
}

// FullResourceEntry is the byte-exact rendering of a ResourceEntry.
type FullResourceEntry struct {
	Name     string            `json:"name,omitempty"`
	ID       uint32            `json:"id,omitempty"`
	Type     string            `json:"type,omitempty"`
	Children *FullResourceDir  `json:"children,omitempty"`
	Data     *FullResourceLeaf `json:"data,omitempty"`
}

// FullResourceDir is the byte-exact rendering of a ResourceDirectory.
type FullResourceDir struct {
	Entries []FullResourceEntry `json:"entries"`
}

// FullResourceLeaf is the byte-exact rendering of a ResourceData.
type FullResourceLeaf struct {
	DataRVA  FullField `json:"data_rva"`
	Size     FullField `json:"size"`
	CodePage FullField `json:"code_page"`
}

func toFullResourceDir(d *ResourceDirectory) FullResourceDir {
	out := FullResourceDir{Entries: make([]FullResourceEntry, 0, len(d.Entries))}
	for _, e := range d.Entries {
		fe := FullResourceEntry{}
		if e.ID.IsName {
			fe.Name = e.ID.Name
		} else {
			fe.ID = e.ID.ID
			if e.ID.Type != 0 {
				fe.Type = e.ID.Type.String()
			}
		}
		if e.Children != nil {
			child := toFullResourceDir(e.Children)
			fe.Children = &child
		}
		if e.Data != nil {
			fe.Data = &FullResourceLeaf{
				DataRVA:  u32FieldToFull(e.Data.DataRVA),
				Size:     u32FieldToFull(e.Data.Size),
				CodePage: u32FieldToFull(e.Data.CodePage),
			}
		}
		out.Entries = append(out.Entries, fe)
	}
	return out
}

// FullImage is the top-level "full" rendering of an Image.
type FullImage struct {
	DOSHeader      FullDOSHeader          `json:"dos_header"`
	FileHeader     FullFileHeader         `json:"file_header"`
	OptionalHeader FullOptionalHeader     `json:"optional_header"`
	Sections       []FullSection          `json:"sections"`
	Imports        []FullImportDescriptor `json:"imports,omitempty"`
	Exports        *FullExportDirectory   `json:"exports,omitempty"`
	Relocations    []FullRelocBlock       `json:"relocations,omitempty"`
	Resources      *FullResourceDir       `json:"resources,omitempty"`
}

// ToFull renders img in the "full" byte-exact shape.
func (img *Image) ToFull() FullImage {
	out := FullImage{
		DOSHeader:  toFullDOSHeader(img.DOSHeader),
		FileHeader: toFullFileHeader(img.FileHeader),
	}
	if img.Is64 {
		out.OptionalHeader = toFullOptionalHeader64(img.OptionalHeader64)
	} else {
		out.OptionalHeader = toFullOptionalHeader32(img.OptionalHeader32)
	}
	out.Sections = make([]FullSection, 0, len(img.Sections.Sections))
	for _, s := range img.Sections.Sections {
		out.Sections = append(out.Sections, toFullSection(s))
	}

	if img.Imports != nil {
		out.Imports = toFullImports(img.Imports)
	}
	if img.Exports != nil {
		e := toFullExports(img.Exports)
		out.Exports = &e
	}
	if img.Relocations != nil {
		out.Relocations = toFullRelocations(img.Relocations)
	}
	if img.Resources != nil {
		r := toFullResourceDir(img.Resources)
		out.Resources = &r
	}

	return out
}
