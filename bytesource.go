// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pe

import (
	"bytes"
	"encoding/binary"
	"os"

	mmap "github.com/edsrzf/mmap-go"
	"golang.org/x/text/encoding/unicode"
)

// ByteSource is the uniform reader every parser and walker in this package
// is built on: positioned byte, C-string and wide-string reads, backed
// either by a memory-mapped file or by a bounded in-memory fragment.
//
// Implementations must not mutate any externally observable cursor; they
// may keep whatever internal bookkeeping they like.
type ByteSource interface {
	// ReadExactAt returns exactly n bytes starting at offset, or a
	// KindIoFailure PeError if the source cannot satisfy the read.
	ReadExactAt(offset uint64, n uint64) ([]byte, error)

	// ReadCStringAt reads a NUL-terminated ASCII string starting at offset.
	// The terminator is consumed but not included in the result.
	ReadCStringAt(offset uint64) (string, error)

	// ReadWStringAt reads a uint16 length prefix followed by that many
	// UTF-16LE code units, returning the decoded string.
	ReadWStringAt(offset uint64) (string, error)

	// Size returns the total addressable length of the source.
	Size() uint64
}

// outOfRange builds the KindIoFailure PeError returned when a read falls
// outside the bounds a byte source can serve.
func outOfRange() error {
	return &PeError{Kind: KindIoFailure, Detail: "reading data outside boundary"}
}

var utf16le = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

const maxCStringLen = 1 << 16 // generous cap against hostile/unterminated input

// FileSource is a ByteSource backed by a memory-mapped file, the same
// approach the teacher's File.New takes instead of buffered reads.
type FileSource struct {
	f    *os.File
	data mmap.MMap
}

// NewFileSource opens path and memory-maps it read-only.
func NewFileSource(path string) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, IoFailure(err)
	}
	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, IoFailure(err)
	}
	return &FileSource{f: f, data: data}, nil
}

// Close unmaps the file and closes the underlying handle.
func (s *FileSource) Close() error {
	if s.data != nil {
		_ = s.data.Unmap()
	}
	if s.f != nil {
		return s.f.Close()
	}
	return nil
}

// Size implements ByteSource.
func (s *FileSource) Size() uint64 { return uint64(len(s.data)) }

// ReadExactAt implements ByteSource.
func (s *FileSource) ReadExactAt(offset, n uint64) ([]byte, error) {
	if n == 0 {
		return []byte{}, nil
	}
	end := offset + n
	if end < offset || offset >= uint64(len(s.data)) || end > uint64(len(s.data)) {
		return nil, outOfRange()
	}
	out := make([]byte, n)
	copy(out, s.data[offset:end])
	return out, nil
}

// ReadCStringAt implements ByteSource.
func (s *FileSource) ReadCStringAt(offset uint64) (string, error) {
	return readCString(s, offset)
}

// ReadWStringAt implements ByteSource.
func (s *FileSource) ReadWStringAt(offset uint64) (string, error) {
	return readWString(s, offset)
}

// FragmentSource is a ByteSource backed by a bounded in-memory buffer with a
// declared base offset: requests below base or beyond the fragment fail
// with an out-of-range error. Grounded on rustbin's utils::FragmentReader,
// which several directory walker tests construct directly with exactly
// this shape.
type FragmentSource struct {
	data []byte
	base uint64
}

// NewFragmentSource wraps data, declaring its first byte to live at file
// offset base.
func NewFragmentSource(data []byte, base uint64) *FragmentSource {
	return &FragmentSource{data: data, base: base}
}

// Size implements ByteSource.
func (s *FragmentSource) Size() uint64 { return s.base + uint64(len(s.data)) }

// ReadExactAt implements ByteSource.
func (s *FragmentSource) ReadExactAt(offset, n uint64) ([]byte, error) {
	if n == 0 {
		return []byte{}, nil
	}
	if offset < s.base {
		return nil, outOfRange()
	}
	rel := offset - s.base
	end := rel + n
	if end < rel || rel >= uint64(len(s.data)) || end > uint64(len(s.data)) {
		return nil, outOfRange()
	}
	out := make([]byte, n)
	copy(out, s.data[rel:end])
	return out, nil
}

// ReadCStringAt implements ByteSource.
func (s *FragmentSource) ReadCStringAt(offset uint64) (string, error) {
	return readCString(s, offset)
}

// ReadWStringAt implements ByteSource.
func (s *FragmentSource) ReadWStringAt(offset uint64) (string, error) {
	return readWString(s, offset)
}

// readCString implements the shared NUL-scan loop against any ByteSource,
// one byte at a time, stopping at the first NUL or maxCStringLen.
func readCString(s ByteSource, offset uint64) (string, error) {
	var buf []byte
	for i := uint64(0); i < maxCStringLen; i++ {
		b, err := s.ReadExactAt(offset+i, 1)
		if err != nil {
			return "", err
		}
		if b[0] == 0 {
			return string(buf), nil
		}
		buf = append(buf, b[0])
	}
	return string(buf), nil
}

// readWString reads a uint16 length prefix then that many UTF-16LE code
// units, decoding via golang.org/x/text the same way helper.go's
// readUnicodeStringAtRVA does.
func readWString(s ByteSource, offset uint64) (string, error) {
	lb, err := s.ReadExactAt(offset, 2)
	if err != nil {
		return "", err
	}
	length := binary.LittleEndian.Uint16(lb)
	if length == 0 {
		return "", nil
	}
	raw, err := s.ReadExactAt(offset+2, uint64(length)*2)
	if err != nil {
		return "", err
	}
	decoded, err := utf16le.NewDecoder().Bytes(raw)
	if err != nil {
		return "", IoFailure(err)
	}
	return string(bytes.TrimRight(decoded, "\x00")), nil
}
