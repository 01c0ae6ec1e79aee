// Copyright 2024 uadetect authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package uadetect

import (
	"encoding/binary"
	"io"
	"os"
)

// Reader holds a position cursor over a Source and offers fixed-width
// integer reads, byte-run reads, and null-terminated reads (§4.A).
// Readers are not individually thread-safe; each matcher goroutine
// must acquire exclusive use of one via a Pool.
type Reader struct {
	data []byte  // set when backed by a shared byte range (Memory / byte array)
	file *os.File // set when backed by a per-reader file handle (Stream)
	pos  int64
}

func newReader(data []byte) *Reader       { return &Reader{data: data} }
func newFileReader(f *os.File) *Reader    { return &Reader{file: f} }

// Seek moves the cursor to an absolute byte offset.
func (r *Reader) Seek(offset int64) { r.pos = offset }

// Position returns the current cursor offset.
func (r *Reader) Position() int64 { return r.pos }

// Close releases the reader's per-instance file handle, if any. A
// reader backed by a shared byte range has nothing to release.
func (r *Reader) Close() error {
	if r.file != nil {
		return r.file.Close()
	}
	return nil
}

// readN reads exactly n bytes at the current cursor and advances it.
func (r *Reader) readN(n int) ([]byte, error) {
	if r.data != nil {
		end := r.pos + int64(n)
		if r.pos < 0 || end > int64(len(r.data)) {
			return nil, dataFileIOf(io.ErrUnexpectedEOF, "read %d bytes at offset %d (len %d)", n, r.pos, len(r.data))
		}
		b := r.data[r.pos:end]
		r.pos = end
		return b, nil
	}
	buf := make([]byte, n)
	if _, err := r.file.ReadAt(buf, r.pos); err != nil {
		return nil, dataFileIOf(err, "read %d bytes at offset %d", n, r.pos)
	}
	r.pos += int64(n)
	return buf, nil
}

// ReadBytes reads n raw bytes at the cursor.
func (r *Reader) ReadBytes(n int) ([]byte, error) { return r.readN(n) }

// ReadU8 reads an unsigned 8-bit integer.
func (r *Reader) ReadU8() (uint8, error) {
	b, err := r.readN(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadI8 reads a signed 8-bit integer.
func (r *Reader) ReadI8() (int8, error) {
	v, err := r.ReadU8()
	return int8(v), err
}

// ReadU16 reads a little-endian unsigned 16-bit integer.
func (r *Reader) ReadU16() (uint16, error) {
	b, err := r.readN(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// ReadI16 reads a little-endian signed 16-bit integer.
func (r *Reader) ReadI16() (int16, error) {
	v, err := r.ReadU16()
	return int16(v), err
}

// ReadU32 reads a little-endian unsigned 32-bit integer.
func (r *Reader) ReadU32() (uint32, error) {
	b, err := r.readN(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// ReadI32 reads a little-endian signed 32-bit integer.
func (r *Reader) ReadI32() (int32, error) {
	v, err := r.ReadU32()
	return int32(v), err
}

// ReadU64 reads a little-endian unsigned 64-bit integer.
func (r *Reader) ReadU64() (uint64, error) {
	b, err := r.readN(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// ReadI64 reads a little-endian signed 64-bit integer.
func (r *Reader) ReadI64() (int64, error) {
	v, err := r.ReadU64()
	return int64(v), err
}

// ReadCString reads bytes up to (excluding) the next 0x00, advancing
// the cursor past the terminator. Neither the data file nor the trie
// format reads strings this way; both use ReadLengthPrefixedString.
func (r *Reader) ReadCString() ([]byte, error) {
	start := r.pos
	for {
		b, err := r.ReadU8()
		if err != nil {
			return nil, err
		}
		if b == 0 {
			break
		}
	}
	end := r.pos - 1
	return r.sliceBetween(start, end)
}

// sliceBetween returns the bytes between two offsets already visited,
// without moving the cursor. Byte-range-backed readers slice the
// shared range; Stream-mode readers re-read via ReadAt.
func (r *Reader) sliceBetween(start, end int64) ([]byte, error) {
	if r.data != nil {
		return r.data[start:end], nil
	}
	n := int(end - start)
	buf := make([]byte, n)
	if _, err := r.file.ReadAt(buf, start); err != nil {
		return nil, dataFileIOf(err, "re-read %d bytes at offset %d", n, start)
	}
	return buf, nil
}

// ReadLengthPrefixedString reads a 32-bit length prefix followed by
// that many UTF-8/ASCII bytes — the String entity's on-disk form
// (§3).
func (r *Reader) ReadLengthPrefixedString() (string, error) {
	n, err := r.ReadU32()
	if err != nil {
		return "", err
	}
	b, err := r.readN(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}
