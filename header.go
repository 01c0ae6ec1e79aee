// Copyright 2024 uadetect authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package uadetect

import "time"

// Magic identifies a uadetect binary data file. All multi-byte
// integers in the file are little-endian (§3).
const Magic = uint32(0x35314442) // bytes "BD15" on disk

// Supported format versions (§3, §6): 3.2 is the primary format;
// 3.1 is read-only backward compatibility (fixed-size signatures, no
// numeric-child node blocks).
const (
	VersionMajor31 = 3
	VersionMinor31 = 1
	VersionMajor32 = 3
	VersionMinor32 = 2
)

// region describes one fixed- or variable-size record region: its
// element count and its byte offset from the start of the file.
type region struct {
	Count  uint32
	Offset int64
}

// Header is the fixed-size file header (§3, §6 item 1): format
// version, publish/next-update dates, copyright offset, age, minimum
// UA length, and every region's count + offset.
type Header struct {
	VersionMajor uint16
	VersionMinor uint16

	Published  time.Time
	NextUpdate time.Time

	CopyrightOffset    int64
	Age                uint8
	MinUserAgentLength uint16

	// MaxSignatureProfiles/MaxSignatureNodes bound the fixed-size
	// signature records of the 3.1 format (§6: "v3.1 differs by:
	// fixed-size signature records"). Unused in 3.2, where signature
	// records are variable-size and self-describe their counts.
	MaxSignatureProfiles uint16
	MaxSignatureNodes    uint16

	Strings               region
	Components            region
	ComponentPropertyIdx  region
	Maps                  region
	MapPropertyIdx        region
	Properties            region
	Values                region
	Profiles              region
	Signatures            region
	RankedSignatureIdx    region
	Nodes                 region
}

// IsV32 reports whether the header declares the 3.2 format (numeric
// node children, variable-size signatures).
func (h *Header) IsV32() bool { return h.VersionMajor == VersionMajor32 && h.VersionMinor == VersionMinor32 }

// readHeader parses the fixed header at the current cursor position,
// validating the magic number and dispatching layout on version per
// §6 ("Readers dispatch on a version field").
func readHeader(r *Reader) (*Header, error) {
	magic, err := r.ReadU32()
	if err != nil {
		return nil, err
	}
	if magic != Magic {
		return nil, datasetFormatf("bad magic 0x%x, want 0x%x", magic, Magic)
	}

	h := &Header{}
	if h.VersionMajor, err = r.ReadU16(); err != nil {
		return nil, err
	}
	if h.VersionMinor, err = r.ReadU16(); err != nil {
		return nil, err
	}
	if (h.VersionMajor != VersionMajor31 || h.VersionMinor != VersionMinor31) &&
		(h.VersionMajor != VersionMajor32 || h.VersionMinor != VersionMinor32) {
		return nil, datasetFormatf("unsupported format version %d.%d", h.VersionMajor, h.VersionMinor)
	}

	published, err := r.ReadI64()
	if err != nil {
		return nil, err
	}
	h.Published = time.Unix(published, 0).UTC()

	nextUpdate, err := r.ReadI64()
	if err != nil {
		return nil, err
	}
	h.NextUpdate = time.Unix(nextUpdate, 0).UTC()

	if h.CopyrightOffset, err = r.ReadI64(); err != nil {
		return nil, err
	}
	if h.Age, err = r.ReadU8(); err != nil {
		return nil, err
	}
	if h.MinUserAgentLength, err = r.ReadU16(); err != nil {
		return nil, err
	}
	if h.MaxSignatureProfiles, err = r.ReadU16(); err != nil {
		return nil, err
	}
	if h.MaxSignatureNodes, err = r.ReadU16(); err != nil {
		return nil, err
	}

	regions := []*region{
		&h.Strings, &h.Components, &h.ComponentPropertyIdx, &h.Maps, &h.MapPropertyIdx,
		&h.Properties, &h.Values, &h.Profiles, &h.Signatures, &h.RankedSignatureIdx, &h.Nodes,
	}
	for _, reg := range regions {
		count, err := r.ReadU32()
		if err != nil {
			return nil, err
		}
		offset, err := r.ReadI64()
		if err != nil {
			return nil, err
		}
		reg.Count = count
		reg.Offset = offset
	}
	return h, nil
}
