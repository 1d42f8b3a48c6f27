// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pe

import (
	"os"

	"github.com/binref/winpe/internal/log"
)

// Options configures a parse. The zero value uses the package defaults: a
// stderr logger filtered to warnings and above.
type Options struct {
	// Logger receives recoverable problems encountered while parsing
	// optional directories (ParseImports, ParseExports, ParseRelocations,
	// ParseResources never abort the aggregate parse on a directory
	// failure; they log and leave that directory unset).
	Logger log.Logger
}

func (o Options) logger() *log.Helper {
	l := o.Logger
	if l == nil {
		l = log.NewFilter(log.NewStdLogger(os.Stderr), log.FilterLevel(log.LevelWarn))
	}
	return log.NewHelper(l)
}

// Image is the root aggregate: every header and directory parsed from a
// single byte source.
type Image struct {
	DOSHeader        DosHeader
	FileHeader       FileHeader
	OptionalHeader32 OptionalHeader32
	OptionalHeader64 OptionalHeader64
	Is64             bool
	Sections         SectionTable

	Imports     *ImportDirectory
	Exports     *ExportDirectory
	Relocations *RelocationDirectory
	Resources   *ResourceDirectory

	source ByteSource
	opts   Options
	log    *log.Helper
}

// Parse runs the DOS → file header → optional header → data directories →
// section table sequence and returns the aggregate. Directory walkers are
// not run; call ParseImports etc. on demand.
func Parse(source ByteSource, opts Options) (*Image, error) {
	img := &Image{source: source, opts: opts, log: opts.logger()}

	dos, err := ParseDosHeader(source, 0)
	if err != nil {
		return nil, err
	}
	img.DOSHeader = dos

	fileHeaderOffset := uint64(dos.AddressOfNewEXEHeader.Value)
	fh, err := ParseFileHeader(source, fileHeaderOffset)
	if err != nil {
		return nil, err
	}
	img.FileHeader = fh

	optHeaderOffset := fileHeaderOffset + fileHeaderSize
	magic, err := PeekOptionalHeaderMagic(source, optHeaderOffset)
	if err != nil {
		return nil, err
	}

	switch magic {
	case ImageNtOptionalHeader64Magic:
		oh, err := ParseOptionalHeader64(source, optHeaderOffset)
		if err != nil {
			return nil, err
		}
		img.OptionalHeader64 = oh
		img.Is64 = true
	case ImageNtOptionalHeader32Magic, ImageROMOptionalHeaderMagic:
		oh, err := ParseOptionalHeader32(source, optHeaderOffset)
		if err != nil {
			return nil, err
		}
		img.OptionalHeader32 = oh
	default:
		return nil, UnsupportedImageType(uint64(magic))
	}

	sectionTableOffset := optHeaderOffset + uint64(fh.OptionalHeaderSize.Value)
	sections, err := ParseSectionTable(source, sectionTableOffset, fh.SectionCount.Value)
	if err != nil {
		return nil, err
	}
	img.Sections = sections

	return img, nil
}

// dataDirectory returns the parsed data directory table, whichever
// optional-header variant produced it.
func (img *Image) dataDirectory() DataDirectory {
	if img.Is64 {
		return img.OptionalHeader64.DataDirectory
	}
	return img.OptionalHeader32.DataDirectory
}

// IsValid reports whether the DOS header, file header, and optional header
// all carry their expected magic.
func (img *Image) IsValid() bool {
	if !img.DOSHeader.IsValid() || !img.FileHeader.IsValid() {
		return false
	}
	if img.Is64 {
		return img.OptionalHeader64.IsValid()
	}
	return img.OptionalHeader32.IsValid()
}

// ParseImports walks the import directory if it has non-zero size. It is
// idempotent: a second call is a no-op once Imports is set.
func (img *Image) ParseImports() error {
	if img.Imports != nil {
		return nil
	}
	entry := img.dataDirectory().Entry(DirectoryImport)
	if entry.Size.Value == 0 {
		return nil
	}
	offset, ok := img.Sections.RVAToOffset(entry.RVA.Value)
	if !ok {
		img.log.Warnf("import directory rva %#x does not map to a file offset", entry.RVA.Value)
		return nil
	}
	dir, err := walkImports(img.source, img.Sections, offset, img.Is64)
	if err != nil {
		img.log.Warnf("import walk failed: %v", err)
		return err
	}
	img.Imports = &dir
	return nil
}

// ParseExports walks the export directory if it has non-zero size.
func (img *Image) ParseExports() error {
	if img.Exports != nil {
		return nil
	}
	entry := img.dataDirectory().Entry(DirectoryExport)
	if entry.Size.Value == 0 {
		return nil
	}
	offset, ok := img.Sections.RVAToOffset(entry.RVA.Value)
	if !ok {
		img.log.Warnf("export directory rva %#x does not map to a file offset", entry.RVA.Value)
		return nil
	}
	dir, err := walkExports(img.source, img.Sections, offset)
	if err != nil {
		img.log.Warnf("export walk failed: %v", err)
		return err
	}
	img.Exports = &dir
	return nil
}

// ParseRelocations walks the base relocation directory if it has non-zero
// size.
func (img *Image) ParseRelocations() error {
	if img.Relocations != nil {
		return nil
	}
	entry := img.dataDirectory().Entry(DirectoryRelocation)
	if entry.Size.Value == 0 {
		return nil
	}
	offset, ok := img.Sections.RVAToOffset(entry.RVA.Value)
	if !ok {
		img.log.Warnf("relocation directory rva %#x does not map to a file offset", entry.RVA.Value)
		return nil
	}
	dir, err := walkRelocations(img.source, offset, entry.Size.Value, entry.RVA.Value)
	if err != nil {
		img.log.Warnf("relocation walk failed: %v", err)
		return err
	}
	img.Relocations = &dir
	return nil
}

// ParseResources walks the resource tree if the directory has non-zero
// size.
func (img *Image) ParseResources() error {
	if img.Resources != nil {
		return nil
	}
	entry := img.dataDirectory().Entry(DirectoryResource)
	if entry.Size.Value == 0 {
		return nil
	}
	offset, ok := img.Sections.RVAToOffset(entry.RVA.Value)
	if !ok {
		img.log.Warnf("resource directory rva %#x does not map to a file offset", entry.RVA.Value)
		return nil
	}
	tree, err := walkResources(img.source, img.Sections, offset)
	if err != nil {
		img.log.Warnf("resource walk failed: %v", err)
		return err
	}
	img.Resources = &tree
	return nil
}

// HasImports reports whether the import directory exists and is non-empty.
func (img *Image) HasImports() bool {
	return img.dataDirectory().Entry(DirectoryImport).Size.Value > 0
}

// HasExports reports whether the export directory exists and is non-empty.
func (img *Image) HasExports() bool {
	return img.dataDirectory().Entry(DirectoryExport).Size.Value > 0
}

// HasRelocations reports whether the relocation directory exists and is
// non-empty.
func (img *Image) HasRelocations() bool {
	return img.dataDirectory().Entry(DirectoryRelocation).Size.Value > 0
}

// HasResources reports whether the resource directory exists and is
// non-empty.
func (img *Image) HasResources() bool {
	return img.dataDirectory().Entry(DirectoryResource).Size.Value > 0
}
