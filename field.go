// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pe

// Field wraps every parsed primitive or composite with its byte
// provenance: the value itself, the file offset it was read from, the
// virtual address it corresponds to (once known), and its size in bytes.
//
// Offset is always set at parse time. RVA is either set directly through
// NewField, when the field was parsed from a structure whose RVA is already
// known, or left nil until a
// later "fix RVAs" pass assigns it by mapping Offset through the section
// table. Ported from rustbin's types::HeaderField<T>, the model this
// package's dual serialization derives both its "minimal" and "full" views
// from.
type Field[T any] struct {
	Value  T
	Offset uint64
	RVA    *uint64
	Size   uint64
}

// NewField builds a Field whose RVA is already known, e.g. because it was
// read directly from an address already expressed relative to the image
// base.
func NewField[T any](value T, offset, rva, size uint64) Field[T] {
	r := rva
	return Field[T]{Value: value, Offset: offset, RVA: &r, Size: size}
}

// NewFieldAt builds a Field with only its offset known; RVA is filled in
// later by FixRVA.
func NewFieldAt[T any](value T, offset, size uint64) Field[T] {
	return Field[T]{Value: value, Offset: offset, Size: size}
}

// FixRVA assigns f's RVA by mapping its Offset through sections, unless the
// RVA is already set. Returns InvalidOffset if the offset falls outside
// every section's raw data (header offsets included).
func (f *Field[T]) FixRVA(sections SectionTable) error {
	if f.RVA != nil {
		return nil
	}
	rva, ok := sections.OffsetToRVA(f.Offset)
	if !ok {
		return InvalidOffset(f.Offset)
	}
	f.RVA = &rva
	return nil
}

// HasRVA reports whether f's RVA has been resolved.
func (f Field[T]) HasRVA() bool { return f.RVA != nil }

// RVAOrZero returns f's RVA, or 0 if it hasn't been resolved yet.
func (f Field[T]) RVAOrZero() uint64 {
	if f.RVA == nil {
		return 0
	}
	return *f.RVA
}

// cursor tracks a running offset while a fixed-layout header is parsed
// field by field, stamping each Field with its starting offset.
type cursor struct {
	data   []byte
	pos    int
	offset uint64
}

func newCursor(data []byte, startOffset uint64) *cursor {
	return &cursor{data: data, offset: startOffset}
}

func (c *cursor) remaining() int { return len(c.data) - c.pos }

func (c *cursor) take(n int) ([]byte, uint64, bool) {
	if c.remaining() < n {
		return nil, 0, false
	}
	b := c.data[c.pos : c.pos+n]
	off := c.offset
	c.pos += n
	c.offset += uint64(n)
	return b, off, true
}

