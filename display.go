// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pe

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// Fprint writes a multi-line human-readable dump of img to w: every parsed
// header, the section table, and whichever directories have been walked,
// with the resource tree indented per level. Addresses, RVAs, and offsets
// are rendered in hexadecimal.
func (img *Image) Fprint(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "DOS Header\n")
	fmt.Fprintf(tw, "  magic:\t%s\n", magicString(uint64(img.DOSHeader.Magic.Value), 2))
	fmt.Fprintf(tw, "  e_lfanew:\t%#x\n", img.DOSHeader.AddressOfNewEXEHeader.Value)

	fmt.Fprintf(tw, "File Header\n")
	fmt.Fprintf(tw, "  magic:\t%s\n", magicString(uint64(img.FileHeader.Magic.Value), 4))
	fmt.Fprintf(tw, "  machine:\t%s\n", img.FileHeader.Machine.Value.String())
	fmt.Fprintf(tw, "  number_of_sections:\t%d\n", img.FileHeader.SectionCount.Value)
	if ts, err := img.FileHeader.TimestampUTC(); err == nil {
		fmt.Fprintf(tw, "  timestamp:\t%s\n", ts.Format("2006-01-02T15:04:05Z"))
	}
	fmt.Fprintf(tw, "  characteristics:\t%s\n", joinFlags(img.FileHeader.Characteristics.Value.Names()))

	fmt.Fprintf(tw, "Optional Header\n")
	if img.Is64 {
		oh := img.OptionalHeader64
		fmt.Fprintf(tw, "  magic:\tPE32+\n")
		fmt.Fprintf(tw, "  address_of_entry_point:\t%#x\n", oh.AddressOfEntryPoint.Value)
		fmt.Fprintf(tw, "  image_base:\t%#x\n", oh.ImageBase.Value)
		fmt.Fprintf(tw, "  subsystem:\t%s\n", oh.Subsystem.Value.String())
		fmt.Fprintf(tw, "  dll_characteristics:\t%s\n", joinFlags(oh.DllCharacteristics.Value.Names()))
	} else {
		oh := img.OptionalHeader32
		fmt.Fprintf(tw, "  magic:\t%s\n", optionalHeaderMagicString(oh.IsROM, oh.Magic.Value))
		fmt.Fprintf(tw, "  address_of_entry_point:\t%#x\n", oh.AddressOfEntryPoint.Value)
		fmt.Fprintf(tw, "  image_base:\t%#x\n", oh.ImageBase.Value)
		fmt.Fprintf(tw, "  subsystem:\t%s\n", oh.Subsystem.Value.String())
		fmt.Fprintf(tw, "  dll_characteristics:\t%s\n", joinFlags(oh.DllCharacteristics.Value.Names()))
	}

	fmt.Fprintf(tw, "Data Directory\n")
	for i, e := range img.dataDirectory().Entries {
		if e.Size.Value == 0 {
			continue
		}
		fmt.Fprintf(tw, "  %s:\trva=%#x\tsize=%#x\n", DirectoryType(i).String(), e.RVA.Value, e.Size.Value)
	}

	fmt.Fprintf(tw, "Sections\n")
	for _, s := range img.Sections.Sections {
		fmt.Fprintf(tw, "  %s:\tva=%#x\tvsize=%#x\traw_ptr=%#x\traw_size=%#x\t%s\n",
			s.NameString(), s.VirtualAddress.Value, s.VirtualSize.Value,
			s.RawDataPtr.Value, s.RawSize.Value, sectionCharacteristicsString(s.Characteristics.Value))
	}

	if img.Imports != nil {
		fmt.Fprintf(tw, "Imports\n")
		for _, d := range img.Imports.Descriptors {
			fmt.Fprintf(tw, "  %s\t(%d functions)\n", d.DLLName, len(d.Functions))
			for _, f := range d.Functions {
				if f.IsOrdinal {
					fmt.Fprintf(tw, "    #%d\n", f.Ordinal.Value)
				} else {
					fmt.Fprintf(tw, "    %s\n", f.Name.Value)
				}
			}
		}
	}

	if img.Exports != nil {
		fmt.Fprintf(tw, "Exports\n")
		fmt.Fprintf(tw, "  dll:\t%s\n", img.Exports.DLLName)
		for _, e := range img.Exports.Exports {
			fmt.Fprintf(tw, "  %s:\trva=%#x\tordinal=%d\n", e.Name, e.FunctionRVA.Value, e.Ordinal.Value)
		}
	}

	if img.Relocations != nil {
		fmt.Fprintf(tw, "Relocations\n")
		for _, b := range img.Relocations.Blocks {
			fmt.Fprintf(tw, "  page_va=%#x:\t%d entries\n", b.PageVA.Value, len(b.Entries))
		}
	}

	if img.Resources != nil {
		fmt.Fprintf(tw, "Resources\n")
		printResourceDir(tw, img.Resources, 1)
	}

	return tw.Flush()
}

func printResourceDir(w io.Writer, d *ResourceDirectory, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, e := range d.Entries {
		label := resourceEntryLabel(e.ID)
		if e.Data != nil {
			fmt.Fprintf(w, "%s%s:\tdata_rva=%#x\tsize=%#x\n", indent, label, e.Data.DataRVA.Value, e.Data.Size.Value)
		} else {
			fmt.Fprintf(w, "%s%s\n", indent, label)
		}
		if e.Children != nil {
			printResourceDir(w, e.Children, depth+1)
		}
	}
}

func resourceEntryLabel(id ResourceID) string {
	if id.IsName {
		return id.Name
	}
	if id.Type != 0 {
		return id.Type.String()
	}
	return hexValue(uint64(id.ID))
}

// String renders img the same way Fprint does, returning the result as a
// string.
func (img *Image) String() string {
	var b strings.Builder
	_ = img.Fprint(&b)
	return b.String()
}
