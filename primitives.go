// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pe

import "encoding/binary"

// readU8 reads one byte from c and stamps it as a Field.
func readU8(c *cursor) (Field[uint8], bool) {
	b, off, ok := c.take(1)
	if !ok {
		return Field[uint8]{}, false
	}
	return NewFieldAt(b[0], off, 1), true
}

// readU16 reads a little-endian uint16 from c and stamps it as a Field.
func readU16(c *cursor) (Field[uint16], bool) {
	b, off, ok := c.take(2)
	if !ok {
		return Field[uint16]{}, false
	}
	return NewFieldAt(binary.LittleEndian.Uint16(b), off, 2), true
}

// readU32 reads a little-endian uint32 from c and stamps it as a Field.
func readU32(c *cursor) (Field[uint32], bool) {
	b, off, ok := c.take(4)
	if !ok {
		return Field[uint32]{}, false
	}
	return NewFieldAt(binary.LittleEndian.Uint32(b), off, 4), true
}

// readU64 reads a little-endian uint64 from c and stamps it as a Field.
func readU64(c *cursor) (Field[uint64], bool) {
	b, off, ok := c.take(8)
	if !ok {
		return Field[uint64]{}, false
	}
	return NewFieldAt(binary.LittleEndian.Uint64(b), off, 8), true
}

// readBytes reads n raw bytes from c and stamps them as a Field.
func readBytes(c *cursor, n int) (Field[[]byte], bool) {
	b, off, ok := c.take(n)
	if !ok {
		return Field[[]byte]{}, false
	}
	cp := make([]byte, n)
	copy(cp, b)
	return NewFieldAt(cp, off, uint64(n)), true
}
