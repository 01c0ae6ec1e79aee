// Copyright 2024 uadetect authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package uadetect

import "sync"

// Property describes one detectable characteristic (§3): a name, a
// value type, and a range of Values it may take. Fields are decoded
// eagerly; Name and the Values slice are resolved lazily and memoised
// under mu, per §3's entity lifecycle. Description, Category, URL and
// JavaScriptName are read through the strings cache on every call.
type Property struct {
	ds    *Dataset
	Index int

	nameOffset     int64
	descOffset     int64
	categoryOffset int64
	urlOffset      int64
	jsNameOffset   int64

	DisplayOrder      int32
	IsList            bool
	IsMandatory       bool
	IsObsolete        bool
	ShowValues        bool
	ValueType         ValueType
	DefaultValueIndex int32
	ComponentId       int32
	MapCount          int32
	FirstMapIndex     int32
	FirstValueIndex   int32
	LastValueIndex    int32

	mu     sync.Mutex
	name   *string
	values []*Value
}

func decodeProperty(ds *Dataset) func(r *Reader, offset int64) (*Property, error) {
	return func(r *Reader, offset int64) (*Property, error) {
		p := &Property{ds: ds, Index: int((offset - ds.header.Properties.Offset) / propertyRecordStride)}
		var err error
		if p.nameOffset, err = r.ReadI64(); err != nil {
			return nil, err
		}
		if p.descOffset, err = r.ReadI64(); err != nil {
			return nil, err
		}
		if p.categoryOffset, err = r.ReadI64(); err != nil {
			return nil, err
		}
		if p.urlOffset, err = r.ReadI64(); err != nil {
			return nil, err
		}
		if p.jsNameOffset, err = r.ReadI64(); err != nil {
			return nil, err
		}
		if p.DisplayOrder, err = r.ReadI32(); err != nil {
			return nil, err
		}
		flags, err := r.ReadU8()
		if err != nil {
			return nil, err
		}
		p.IsList = flags&0x1 != 0
		p.IsMandatory = flags&0x2 != 0
		p.IsObsolete = flags&0x4 != 0
		p.ShowValues = flags&0x8 != 0
		vt, err := r.ReadU8()
		if err != nil {
			return nil, err
		}
		p.ValueType = ValueType(vt)
		if p.DefaultValueIndex, err = r.ReadI32(); err != nil {
			return nil, err
		}
		if p.ComponentId, err = r.ReadI32(); err != nil {
			return nil, err
		}
		if p.MapCount, err = r.ReadI32(); err != nil {
			return nil, err
		}
		if p.FirstMapIndex, err = r.ReadI32(); err != nil {
			return nil, err
		}
		if p.FirstValueIndex, err = r.ReadI32(); err != nil {
			return nil, err
		}
		if p.LastValueIndex, err = r.ReadI32(); err != nil {
			return nil, err
		}
		return p, nil
	}
}

// propertyRecordStride is the fixed byte size of one Property record.
const propertyRecordStride = 5*8 + 4 + 1 + 1 + 4 + 4 + 4 + 4 + 4 + 4

// Name resolves and memoises the property's name string.
func (p *Property) Name() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.name != nil {
		return *p.name, nil
	}
	s, err := p.ds.stringAt(p.nameOffset)
	if err != nil {
		return "", err
	}
	p.name = &s
	return s, nil
}

// Description resolves the property's description string.
func (p *Property) Description() (string, error) { return p.ds.stringAt(p.descOffset) }

// Category resolves the property's category string.
func (p *Property) Category() (string, error) { return p.ds.stringAt(p.categoryOffset) }

// URL resolves the property's documentation URL.
func (p *Property) URL() (string, error) { return p.ds.stringAt(p.urlOffset) }

// JavaScriptName resolves the property's JavaScript-side name.
func (p *Property) JavaScriptName() (string, error) { return p.ds.stringAt(p.jsNameOffset) }

// Values returns every Value in [FirstValueIndex, LastValueIndex],
// memoised after first resolution.
func (p *Property) Values() ([]*Value, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.values != nil {
		return p.values, nil
	}
	vals := make([]*Value, 0, p.LastValueIndex-p.FirstValueIndex+1)
	for i := p.FirstValueIndex; i <= p.LastValueIndex; i++ {
		v, err := p.ds.values.Get(int(i))
		if err != nil {
			return nil, err
		}
		vals = append(vals, v)
	}
	p.values = vals
	return vals, nil
}

// DefaultValue resolves the property's declared default Value.
func (p *Property) DefaultValue() (*Value, error) { return p.ds.values.Get(int(p.DefaultValueIndex)) }

// Component resolves the component this property belongs to.
func (p *Property) Component() (*Component, error) { return p.ds.componentByID(p.ComponentId) }
