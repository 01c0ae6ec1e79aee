// Copyright 2024 uadetect authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package uadetect

import (
	"sort"
	"strconv"
	"strings"
	"sync"
)

// Signature is the canonical fragment set identifying a class of
// User-Agents (§3, GLOSSARY): a set of Profiles (one per component)
// plus the ordered Node offsets whose byte runs must all align with a
// candidate UA for the signature to apply.
type Signature struct {
	ds     *Dataset
	Offset int64

	profileOffsets []int64
	NodeOffsets    []int64
	Rank           int32

	mu       sync.Mutex
	profiles []*Profile
	nodes    []*Node
	deviceID *string
	length   *int
}

// decodeSignatureV32 reads one variable-size v3.2 Signature record
// (§6 region 8) and reports its byte length.
func decodeSignatureV32(ds *Dataset) func(r *Reader, offset int64) (*Signature, int64, error) {
	return func(r *Reader, offset int64) (*Signature, int64, error) {
		s := &Signature{ds: ds, Offset: offset}
		profileCount, err := r.ReadU16()
		if err != nil {
			return nil, 0, err
		}
		s.profileOffsets = make([]int64, profileCount)
		for i := range s.profileOffsets {
			if s.profileOffsets[i], err = r.ReadI64(); err != nil {
				return nil, 0, err
			}
		}
		nodeCount, err := r.ReadU16()
		if err != nil {
			return nil, 0, err
		}
		s.NodeOffsets = make([]int64, nodeCount)
		for i := range s.NodeOffsets {
			if s.NodeOffsets[i], err = r.ReadI64(); err != nil {
				return nil, 0, err
			}
		}
		if s.Rank, err = r.ReadI32(); err != nil {
			return nil, 0, err
		}
		length := int64(2 + 8*len(s.profileOffsets) + 2 + 8*len(s.NodeOffsets) + 4)
		return s, length, nil
	}
}

// decodeSignatureV31 reads one fixed-stride v3.1 Signature record
// (§6: "v3.1 differs by: fixed-size signature records"), padded to
// Header.MaxSignatureProfiles/MaxSignatureNodes slots with -1
// sentinels for unused entries.
func decodeSignatureV31(ds *Dataset) func(r *Reader, offset int64) (*Signature, int64, error) {
	return func(r *Reader, offset int64) (*Signature, int64, error) {
		s := &Signature{ds: ds, Offset: offset}
		maxProfiles := int(ds.header.MaxSignatureProfiles)
		maxNodes := int(ds.header.MaxSignatureNodes)

		for i := 0; i < maxProfiles; i++ {
			off, err := r.ReadI64()
			if err != nil {
				return nil, 0, err
			}
			if off >= 0 {
				s.profileOffsets = append(s.profileOffsets, off)
			}
		}
		for i := 0; i < maxNodes; i++ {
			off, err := r.ReadI64()
			if err != nil {
				return nil, 0, err
			}
			if off >= 0 {
				s.NodeOffsets = append(s.NodeOffsets, off)
			}
		}
		rank, err := r.ReadI32()
		if err != nil {
			return nil, 0, err
		}
		s.Rank = rank
		length := int64(8*maxProfiles + 8*maxNodes + 4)
		return s, length, nil
	}
}

// Profiles resolves every Profile this signature references, one per
// distinct ComponentId present in the dataset (§3 invariant 3).
func (s *Signature) Profiles() ([]*Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.profiles != nil {
		return s.profiles, nil
	}
	profs := make([]*Profile, 0, len(s.profileOffsets))
	for _, off := range s.profileOffsets {
		p, err := s.ds.profiles.GetByOffset(off)
		if err != nil {
			return nil, err
		}
		profs = append(profs, p)
	}
	s.profiles = profs
	return profs, nil
}

// Nodes resolves every Node this signature references, in file order
// (matching NodeOffsets).
func (s *Signature) Nodes() ([]*Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.nodes != nil {
		return s.nodes, nil
	}
	nodes := make([]*Node, 0, len(s.NodeOffsets))
	for _, off := range s.NodeOffsets {
		n, err := s.ds.nodes.GetByOffset(off)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	s.nodes = nodes
	return nodes, nil
}

// Values aggregates the Values of every Profile this signature
// references.
func (s *Signature) Values() ([]*Value, error) {
	profiles, err := s.Profiles()
	if err != nil {
		return nil, err
	}
	var values []*Value
	for _, p := range profiles {
		vs, err := p.Values()
		if err != nil {
			return nil, err
		}
		values = append(values, vs...)
	}
	return values, nil
}

// DeviceId is the '-'-joined ProfileIds of this signature's profiles
// in ascending ComponentId order (§3 invariant 4), stable across
// dataset rebuilds so long as component composition is unchanged.
func (s *Signature) DeviceId() (string, error) {
	// Profiles takes s.mu itself, so resolve them before locking.
	profiles, err := s.Profiles()
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deviceID != nil {
		return *s.deviceID, nil
	}
	sorted := make([]*Profile, len(profiles))
	copy(sorted, profiles)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ComponentId < sorted[j].ComponentId })

	ids := make([]string, len(sorted))
	for i, p := range sorted {
		ids[i] = strconv.FormatInt(int64(p.ProfileId), 10)
	}
	id := strings.Join(ids, "-")
	s.deviceID = &id
	return id, nil
}

// Length is the cached, lazily-computed span of UA positions this
// signature covers: the highest (Position + len(Characters)) among
// its Nodes.
func (s *Signature) Length() (int, error) {
	// Nodes takes s.mu itself, so resolve them before locking.
	nodes, err := s.Nodes()
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.length != nil {
		return *s.length, nil
	}
	max := 0
	for _, n := range nodes {
		end := int(n.Position) + len(n.Characters)
		if end > max {
			max = end
		}
	}
	s.length = &max
	return max, nil
}

// CompareTo orders signatures by their node-offset vectors
// lexicographically; a shorter vector is lesser on an equal prefix.
// This is the total order the matcher's exact-strategy binary search
// relies on (§4.G step 2).
func (s *Signature) CompareTo(other *Signature) int {
	a, b := s.NodeOffsets, other.NodeOffsets
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}

// StartsWith reports whether the first len(nodes) entries of
// s.NodeOffsets equal nodes in order.
func (s *Signature) StartsWith(nodes []int64) bool {
	if len(nodes) > len(s.NodeOffsets) {
		return false
	}
	for i, off := range nodes {
		if s.NodeOffsets[i] != off {
			return false
		}
	}
	return true
}

// String reconstructs the UA characters this signature's nodes
// represent, laying each node's byte run at its Position with 0x00
// gaps rewritten as spaces (§4.F, §8 testable property #4).
func (s *Signature) String() string {
	nodes, err := s.Nodes()
	if err != nil {
		return ""
	}
	length, _ := s.Length()
	buf := make([]byte, length)
	for i := range buf {
		buf[i] = ' '
	}
	for _, n := range nodes {
		pos := int(n.Position)
		for i, c := range n.Characters {
			if pos+i < len(buf) {
				if c == 0 {
					buf[pos+i] = ' '
				} else {
					buf[pos+i] = c
				}
			}
		}
	}
	return string(buf)
}
