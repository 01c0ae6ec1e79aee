// Copyright 2024 uadetect authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package uadetect

import "sync"

// Profile groups Values for a single Component — e.g. all the
// Hardware values for one device model (§3, GLOSSARY).
type Profile struct {
	ds     *Dataset
	Offset int64

	ComponentId int32
	ProfileId   int32

	valueIndices     []int32
	signatureIndices []int32

	mu         sync.Mutex
	values     []*Value
	signatures []*Signature
}

// decodeProfile reads one variable-size Profile record and reports
// its total byte length (§3, §4.C).
func decodeProfile(ds *Dataset) func(r *Reader, offset int64) (*Profile, int64, error) {
	return func(r *Reader, offset int64) (*Profile, int64, error) {
		p := &Profile{ds: ds, Offset: offset}
		var err error
		if p.ComponentId, err = r.ReadI32(); err != nil {
			return nil, 0, err
		}
		if p.ProfileId, err = r.ReadI32(); err != nil {
			return nil, 0, err
		}
		valueCount, err := r.ReadI32()
		if err != nil {
			return nil, 0, err
		}
		sigCount, err := r.ReadI32()
		if err != nil {
			return nil, 0, err
		}
		p.valueIndices = make([]int32, valueCount)
		for i := range p.valueIndices {
			if p.valueIndices[i], err = r.ReadI32(); err != nil {
				return nil, 0, err
			}
		}
		p.signatureIndices = make([]int32, sigCount)
		for i := range p.signatureIndices {
			if p.signatureIndices[i], err = r.ReadI32(); err != nil {
				return nil, 0, err
			}
		}
		length := int64(16 + 4*(len(p.valueIndices)+len(p.signatureIndices)))
		return p, length, nil
	}
}

// Values resolves every Value in this profile.
func (p *Profile) Values() ([]*Value, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.values != nil {
		return p.values, nil
	}
	vals := make([]*Value, 0, len(p.valueIndices))
	for _, idx := range p.valueIndices {
		v, err := p.ds.values.Get(int(idx))
		if err != nil {
			return nil, err
		}
		vals = append(vals, v)
	}
	p.values = vals
	return vals, nil
}

// Signatures resolves every Signature that references this profile.
func (p *Profile) Signatures() ([]*Signature, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.signatures != nil {
		return p.signatures, nil
	}
	sigs := make([]*Signature, 0, len(p.signatureIndices))
	for _, idx := range p.signatureIndices {
		s, err := p.ds.signatureByIndex(int(idx))
		if err != nil {
			return nil, err
		}
		sigs = append(sigs, s)
	}
	p.signatures = sigs
	return sigs, nil
}

// Component resolves the component this profile belongs to.
func (p *Profile) Component() (*Component, error) { return p.ds.componentByID(p.ComponentId) }
