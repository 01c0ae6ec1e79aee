// Copyright 2024 uadetect authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package uadetect

import (
	"os"

	mmap "github.com/edsrzf/mmap-go"
)

// Mode selects how a Dataset's Source exposes its bytes.
type Mode int

const (
	// Stream re-opens a file handle per Reader (§4.A: "a file path,
	// re-opened per reader").
	Stream Mode = iota
	// Memory maps or loads the whole file into one shared byte range
	// all Readers read from directly.
	Memory
)

// Source is one of: a file path, a raw byte array, or a memory
// region (§4.A). Every Reader acquired from a Pool wraps exactly one
// Source instance shared across all readers.
type Source interface {
	// newReader returns a fresh cursor over the source's bytes.
	newReader() (*Reader, error)
	// Size is the total addressable length in bytes.
	Size() int64
	// Close releases the source's underlying resources. Safe to call
	// more than once.
	Close() error
}

// byteArraySource wraps an in-memory []byte the caller already owns;
// every Reader shares the same backing slice.
type byteArraySource struct {
	data []byte
}

// NewByteArraySource builds a Source over data without copying it.
// The caller must keep data alive and unmodified for the lifetime of
// the Dataset built over it.
func NewByteArraySource(data []byte) Source {
	return &byteArraySource{data: data}
}

func (s *byteArraySource) newReader() (*Reader, error) { return newReader(s.data), nil }
func (s *byteArraySource) Size() int64                 { return int64(len(s.data)) }
func (s *byteArraySource) Close() error                { return nil }

// fileSource re-opens the file per Reader in Stream mode, or
// memory-maps it once and shares the mapping in Memory mode. If
// temporary is set, the file is removed on Close — used by the
// background watcher (watcher.go) to dispose of a working copy after
// a hot-swap.
type fileSource struct {
	path      string
	mode      Mode
	temporary bool

	size   int64
	shared mmap.MMap // only set in Memory mode
	file   *os.File  // only held open in Memory mode, to keep the mapping valid
}

// NewFileSource opens path in the given Mode. In Memory mode the file
// is mmap'd once and every Reader shares the mapping, exactly as
// file.go's File.New does for the teacher's PE parser.
func NewFileSource(path string, mode Mode, temporary bool) (Source, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, dataFileIOf(err, "stat %s", path)
	}

	s := &fileSource{path: path, mode: mode, temporary: temporary, size: info.Size()}
	if mode == Memory {
		f, err := os.Open(path)
		if err != nil {
			return nil, dataFileIOf(err, "open %s", path)
		}
		data, err := mmap.Map(f, mmap.RDONLY, 0)
		if err != nil {
			f.Close()
			return nil, dataFileIOf(err, "mmap %s", path)
		}
		s.file = f
		s.shared = data
	}
	return s, nil
}

func (s *fileSource) newReader() (*Reader, error) {
	if s.mode == Memory {
		return newReader(s.shared), nil
	}
	f, err := os.Open(s.path)
	if err != nil {
		return nil, dataFileIOf(err, "open %s", s.path)
	}
	return newFileReader(f), nil
}

func (s *fileSource) Size() int64 { return s.size }

func (s *fileSource) Close() error {
	if s.shared != nil {
		_ = s.shared.Unmap()
		s.shared = nil
	}
	if s.file != nil {
		_ = s.file.Close()
		s.file = nil
	}
	if s.temporary {
		return os.Remove(s.path)
	}
	return nil
}
