// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pe

// resourceDirectorySize is the fixed 16-byte length of a resource
// directory header.
const resourceDirectorySize = 16

// resourceEntrySize is the fixed 8-byte length of one directory entry.
const resourceEntrySize = 8

// resourceDataSize is the fixed 16-byte length of a resource data leaf.
const resourceDataSize = 16

// maxResourceDepth bounds recursion into the resource tree; a hostile
// directory that points back at an ancestor would otherwise recurse
// forever.
const maxResourceDepth = 32

// maxResourceEntriesPerDirectory bounds named_entry_count + id_entry_count
// for a single directory.
const maxResourceEntriesPerDirectory = 65535

// ResourceID identifies a resource directory entry: either a name string
// or a numeric id. At depth 0 the numeric id additionally names a
// ResourceType.
type ResourceID struct {
	IsName bool
	Name   string
	ID     uint32
	Type   ResourceType
}

// ResourceData is a leaf: the raw data's RVA/size, and the raw bytes
// themselves when the address mapper can resolve them.
type ResourceData struct {
	DataRVA  Field[uint32]
	Size     Field[uint32]
	CodePage Field[uint32]
	Bytes    []byte
}

// ResourceEntry is one entry of a resource directory: either a
// subdirectory (Children non-nil) or a data leaf (Data non-nil).
type ResourceEntry struct {
	ID       ResourceID
	Children *ResourceDirectory
	Data     *ResourceData
}

// ResourceDirectory is one level of the resource tree.
type ResourceDirectory struct {
	Characteristics Field[uint32]
	Timestamp       Field[uint32]
	MajorVersion    Field[uint16]
	MinorVersion    Field[uint16]
	NamedEntryCount Field[uint16]
	IDEntryCount    Field[uint16]
	Entries         []ResourceEntry
}

// walkResources parses the resource tree rooted at base, the resource
// directory's own start offset (the "B" every name-string and subdirectory
// offset is relative to).
func walkResources(src ByteSource, sections SectionTable, base uint64) (ResourceDirectory, error) {
	return parseResourceDirectory(src, sections, base, base, 0)
}

func parseResourceDirectory(src ByteSource, sections SectionTable, base, offset uint64, depth int) (ResourceDirectory, error) {
	if depth > maxResourceDepth {
		return ResourceDirectory{}, MalformedInput("resource tree exceeds maximum depth")
	}

	raw, err := src.ReadExactAt(offset, resourceDirectorySize)
	if err != nil {
		return ResourceDirectory{}, err
	}
	if len(raw) < resourceDirectorySize {
		return ResourceDirectory{}, TruncatedHeader(resourceDirectorySize, len(raw))
	}

	c := newCursor(raw, offset)
	var d ResourceDirectory
	d.Characteristics, _ = readU32(c)
	d.Timestamp, _ = readU32(c)
	d.MajorVersion, _ = readU16(c)
	d.MinorVersion, _ = readU16(c)
	d.NamedEntryCount, _ = readU16(c)
	d.IDEntryCount, _ = readU16(c)

	total := uint32(d.NamedEntryCount.Value) + uint32(d.IDEntryCount.Value)
	if total > maxResourceEntriesPerDirectory {
		return ResourceDirectory{}, MalformedInput("resource directory entry count exceeds cap")
	}

	entryOffset := offset + resourceDirectorySize
	for i := uint32(0); i < total; i++ {
		entryRaw, err := src.ReadExactAt(entryOffset, resourceEntrySize)
		if err != nil {
			return ResourceDirectory{}, err
		}
		if len(entryRaw) < resourceEntrySize {
			return ResourceDirectory{}, TruncatedHeader(resourceEntrySize, len(entryRaw))
		}

		ec := newCursor(entryRaw, entryOffset)
		nameOrID, _ := readU32(ec)
		dataOrSubdir, _ := readU32(ec)

		entry, err := parseResourceEntry(src, sections, base, nameOrID.Value, dataOrSubdir.Value, depth)
		if err != nil {
			return ResourceDirectory{}, err
		}
		d.Entries = append(d.Entries, entry)
		entryOffset += resourceEntrySize
	}

	return d, nil
}

func parseResourceEntry(src ByteSource, sections SectionTable, base uint64, nameOrID, dataOrSubdir uint32, depth int) (ResourceEntry, error) {
	var entry ResourceEntry

	const highBit = uint32(1) << 31

	if nameOrID&highBit != 0 {
		strOffset := base + uint64(nameOrID&0x7FFFFFFF)
		name, err := src.ReadWStringAt(strOffset)
		if err != nil {
			return entry, err
		}
		entry.ID = ResourceID{IsName: true, Name: name}
	} else {
		id := ResourceID{ID: nameOrID}
		if depth == 0 {
			id.Type = ResourceType(nameOrID)
		}
		entry.ID = id
	}

	if dataOrSubdir&highBit != 0 {
		subOffset := base + uint64(dataOrSubdir&0x7FFFFFFF)
		child, err := parseResourceDirectory(src, sections, base, subOffset, depth+1)
		if err != nil {
			return entry, err
		}
		entry.Children = &child
		return entry, nil
	}

	leafOffset := base + uint64(dataOrSubdir)
	raw, err := src.ReadExactAt(leafOffset, resourceDataSize)
	if err != nil {
		return entry, err
	}
	if len(raw) < resourceDataSize {
		return entry, TruncatedHeader(resourceDataSize, len(raw))
	}

	c := newCursor(raw, leafOffset)
	dataRVA, _ := readU32(c)
	size, _ := readU32(c)
	codePage, _ := readU32(c)
	_, _ = readU32(c) // reserved

	data := ResourceData{DataRVA: dataRVA, Size: size, CodePage: codePage}
	if dataOffset, ok := sections.RVAToOffset(dataRVA.Value); ok {
		bytes, err := src.ReadExactAt(dataOffset, uint64(size.Value))
		if err == nil {
			data.Bytes = bytes
		}
	}
	entry.Data = &data

	return entry, nil
}
