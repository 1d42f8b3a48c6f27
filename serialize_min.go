// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pe

import (
	"strings"
	"time"
)

// MinimalJSON is the "minimal" output contract: semantic fields only, no
// byte provenance. See spec.md §4.9 / §6.
type MinimalJSON struct {
	DOSHeader      MinimalDOSHeader        `json:"dos_header"`
	FileHeader     MinimalFileHeader       `json:"file_header"`
	OptionalHeader MinimalOptionalHeader   `json:"optional_header"`
	DataDirectory  []MinimalDirectoryEntry `json:"data_directory"`
	Sections       []MinimalSection        `json:"sections"`
	Imports        []MinimalImport         `json:"imports,omitempty"`
	Exports        *MinimalExports         `json:"exports,omitempty"`
	Relocations    []MinimalRelocBlock     `json:"relocations,omitempty"`
	Resources      *MinimalResourceDir     `json:"resources,omitempty"`
}

type MinimalDOSHeader struct {
	Magic   string `json:"magic"`
	ELfanew uint32 `json:"e_lfanew"`
}

type MinimalFileHeader struct {
	Magic                string `json:"magic"`
	MachineType          string `json:"machine_type"`
	NumberOfSections     uint16 `json:"number_of_sections"`
	Timestamp            string `json:"timestamp"`
	PointerToSymbolTable uint32 `json:"pointer_to_symbol_table"`
	NumberOfSymbols      uint32 `json:"number_of_symbols"`
	SizeOfOptionalHeader uint16 `json:"size_of_optional_header"`
	Characteristics      string `json:"charactristics"`
}

type MinimalOptionalHeader struct {
	Magic               string `json:"magic"`
	AddressOfEntryPoint uint32 `json:"address_of_entry_point"`
	ImageBase           uint64 `json:"image_base"`
	Subsystem           string `json:"subsystem"`
	DllCharacteristics  string `json:"dll_characteristics"`
	NumberOfRvaAndSizes uint32 `json:"number_of_rva_and_sizes"`
}

type MinimalDirectoryEntry struct {
	Type string `json:"type"`
	RVA  uint32 `json:"rva"`
	Size uint32 `json:"size"`
}

type MinimalSection struct {
	Name                 string `json:"name"`
	VirtualSize          uint32 `json:"virtual_size"`
	VirtualAddress       uint32 `json:"virtual_address"`
	SizeOfRawData        uint32 `json:"size_of_raw_data"`
	PointerToRawData     uint32 `json:"pointer_to_raw_data"`
	PointerToRelocations uint32 `json:"pointer_to_relocations"`
	PointerToLineNumbers uint32 `json:"pointer_to_line_numbers"`
	NumberOfRelocations  uint16 `json:"number_of_relocations"`
	NumberOfLineNumbers  uint16 `json:"number_of_line_numbers"`
	Characteristics      string `json:"charactristics"`
}

type MinimalImport struct {
	DLLName   string                  `json:"dll_name"`
	Functions []MinimalImportFunction `json:"functions"`
}

type MinimalImportFunction struct {
	Name    string `json:"name,omitempty"`
	Ordinal uint16 `json:"ordinal,omitempty"`
}

type MinimalExports struct {
	DLLName string          `json:"dll_name"`
	Entries []MinimalExport `json:"entries"`
}

type MinimalExport struct {
	Name        string `json:"name"`
	Ordinal     uint16 `json:"ordinal"`
	FunctionRVA uint32 `json:"function_rva"`
}

type MinimalRelocBlock struct {
	PageVA  uint32              `json:"page_va"`
	Entries []MinimalRelocEntry `json:"entries"`
}

type MinimalRelocEntry struct {
	Type       string `json:"type"`
	PageOffset uint16 `json:"page_offset"`
	RVA        uint32 `json:"rva"`
}

type MinimalResourceDir struct {
	Entries []MinimalResourceEntry `json:"entries"`
}

type MinimalResourceEntry struct {
	Name     string               `json:"name,omitempty"`
	ID       uint32               `json:"id,omitempty"`
	Type     string               `json:"type,omitempty"`
	Children *MinimalResourceDir  `json:"children,omitempty"`
	Data     *MinimalResourceLeaf `json:"data,omitempty"`
}

type MinimalResourceLeaf struct {
	DataRVA  uint32 `json:"data_rva"`
	Size     uint32 `json:"size"`
	CodePage uint32 `json:"code_page"`
}

// ToMinimal renders img in the "minimal" shape.
func (img *Image) ToMinimal() MinimalJSON {
	out := MinimalJSON{
		DOSHeader: MinimalDOSHeader{
			Magic:   magicString(uint64(img.DOSHeader.Magic.Value), 2),
			ELfanew: img.DOSHeader.AddressOfNewEXEHeader.Value,
		},
		FileHeader: MinimalFileHeader{
			Magic:                magicString(uint64(img.FileHeader.Magic.Value), 4),
			MachineType:          img.FileHeader.Machine.Value.String(),
			NumberOfSections:     img.FileHeader.SectionCount.Value,
			PointerToSymbolTable: img.FileHeader.SymbolTablePtr.Value,
			NumberOfSymbols:      img.FileHeader.SymbolCount.Value,
			SizeOfOptionalHeader: img.FileHeader.OptionalHeaderSize.Value,
			Characteristics:      joinFlags(img.FileHeader.Characteristics.Value.Names()),
		},
		DataDirectory: minimalDataDirectory(img.dataDirectory()),
		Sections:      minimalSections(img.Sections),
	}

	if ts, err := img.FileHeader.TimestampUTC(); err == nil {
		out.FileHeader.Timestamp = ts.Format(time.RFC3339)
	}

	if img.Is64 {
		oh := img.OptionalHeader64
		out.OptionalHeader = MinimalOptionalHeader{
			Magic:               "PE32+",
			AddressOfEntryPoint: oh.AddressOfEntryPoint.Value,
			ImageBase:           oh.ImageBase.Value,
			Subsystem:           oh.Subsystem.Value.String(),
			DllCharacteristics:  joinFlags(oh.DllCharacteristics.Value.Names()),
			NumberOfRvaAndSizes: oh.NumberOfRvaAndSizes.Value,
		}
	} else {
		oh := img.OptionalHeader32
		out.OptionalHeader = MinimalOptionalHeader{
			Magic:               optionalHeaderMagicString(oh.IsROM, oh.Magic.Value),
			AddressOfEntryPoint: oh.AddressOfEntryPoint.Value,
			ImageBase:           uint64(oh.ImageBase.Value),
			Subsystem:           oh.Subsystem.Value.String(),
			DllCharacteristics:  joinFlags(oh.DllCharacteristics.Value.Names()),
			NumberOfRvaAndSizes: oh.NumberOfRvaAndSizes.Value,
		}
	}

	if img.Imports != nil {
		out.Imports = minimalImports(img.Imports)
	}
	if img.Exports != nil {
		out.Exports = minimalExports(img.Exports)
	}
	if img.Relocations != nil {
		out.Relocations = minimalRelocations(img.Relocations)
	}
	if img.Resources != nil {
		r := minimalResourceDir(img.Resources)
		out.Resources = &r
	}

	return out
}

func optionalHeaderMagicString(isROM bool, magic uint16) string {
	if isROM {
		return "ROM"
	}
	_ = magic
	return "PE32"
}

func magicString(value uint64, size int) string {
	switch {
	case size == 2 && value == ImageDOSSignature:
		return "MZ"
	case size == 4 && value == ImageNTSignature:
		return "PE"
	default:
		return hexValue(value)
	}
}

func joinFlags(names []string) string {
	return strings.Join(names, "|")
}

func minimalDataDirectory(d DataDirectory) []MinimalDirectoryEntry {
	var out []MinimalDirectoryEntry
	for i, e := range d.Entries {
		if e.Size.Value == 0 {
			continue
		}
		out = append(out, MinimalDirectoryEntry{
			Type: DirectoryType(i).String(),
			RVA:  e.RVA.Value,
			Size: e.Size.Value,
		})
	}
	return out
}

func minimalSections(t SectionTable) []MinimalSection {
	out := make([]MinimalSection, 0, len(t.Sections))
	for _, s := range t.Sections {
		out = append(out, MinimalSection{
			Name:                 s.NameString(),
			VirtualSize:          s.VirtualSize.Value,
			VirtualAddress:       s.VirtualAddress.Value,
			SizeOfRawData:        s.RawSize.Value,
			PointerToRawData:     s.RawDataPtr.Value,
			PointerToRelocations: s.RelocsPtr.Value,
			PointerToLineNumbers: s.LineNumPtr.Value,
			NumberOfRelocations:  s.RelocsCount.Value,
			NumberOfLineNumbers:  s.LineNumCount.Value,
			Characteristics:      sectionCharacteristicsString(s.Characteristics.Value),
		})
	}
	return out
}

func minimalImports(dir *ImportDirectory) []MinimalImport {
	out := make([]MinimalImport, 0, len(dir.Descriptors))
	for _, d := range dir.Descriptors {
		fns := make([]MinimalImportFunction, 0, len(d.Functions))
		for _, f := range d.Functions {
			if f.IsOrdinal {
				fns = append(fns, MinimalImportFunction{Ordinal: f.Ordinal.Value})
			} else {
				fns = append(fns, MinimalImportFunction{Name: f.Name.Value})
			}
		}
		out = append(out, MinimalImport{DLLName: d.DLLName, Functions: fns})
	}
	return out
}

func minimalExports(dir *ExportDirectory) *MinimalExports {
	entries := make([]MinimalExport, 0, len(dir.Exports))
	for _, e := range dir.Exports {
		entries = append(entries, MinimalExport{
			Name:        e.Name,
			Ordinal:     e.Ordinal.Value,
			FunctionRVA: e.FunctionRVA.Value,
		})
	}
	return &MinimalExports{DLLName: dir.DLLName, Entries: entries}
}

func minimalRelocations(dir *RelocationDirectory) []MinimalRelocBlock {
	out := make([]MinimalRelocBlock, 0, len(dir.Blocks))
	for _, b := range dir.Blocks {
		entries := make([]MinimalRelocEntry, 0, len(b.Entries))
		for _, e := range b.Entries {
			entries = append(entries, MinimalRelocEntry{
				Type:       e.Type.String(),
				PageOffset: e.PageOffset,
				RVA:        e.RVA.Value,
			})
		}
		out = append(out, MinimalRelocBlock{PageVA: b.PageVA.Value, Entries: entries})
	}
	return out
}

func minimalResourceDir(d *ResourceDirectory) MinimalResourceDir {
	out := MinimalResourceDir{Entries: make([]MinimalResourceEntry, 0, len(d.Entries))}
	for _, e := range d.Entries {
		me := MinimalResourceEntry{}
		if e.ID.IsName {
			me.Name = e.ID.Name
		} else {
			me.ID = e.ID.ID
			if e.ID.Type != 0 {
				me.Type = e.ID.Type.String()
			}
		}
		if e.Children != nil {
			child := minimalResourceDir(e.Children)
			me.Children = &child
		}
		if e.Data != nil {
			me.Data = &MinimalResourceLeaf{
				DataRVA:  e.Data.DataRVA.Value,
				Size:     e.Data.Size.Value,
				CodePage: e.Data.CodePage.Value,
			}
		}
		out.Entries = append(out.Entries, me)
	}
	return out
}
