// Copyright 2024 uadetect authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package uadetect

import "sync"

// Value is one concrete value a Property may take (§3).
type Value struct {
	ds    *Dataset
	Index int

	nameOffset int64
	descOffset int64
	urlOffset  int64

	PropertyIndex int32

	mu   sync.Mutex
	name *string
}

// valueRecordStride is the fixed byte size of one Value record.
const valueRecordStride = 8 + 8 + 8 + 4

func decodeValue(ds *Dataset) func(r *Reader, offset int64) (*Value, error) {
	return func(r *Reader, offset int64) (*Value, error) {
		v := &Value{ds: ds, Index: int((offset - ds.header.Values.Offset) / valueRecordStride)}
		var err error
		if v.nameOffset, err = r.ReadI64(); err != nil {
			return nil, err
		}
		if v.descOffset, err = r.ReadI64(); err != nil {
			return nil, err
		}
		if v.urlOffset, err = r.ReadI64(); err != nil {
			return nil, err
		}
		if v.PropertyIndex, err = r.ReadI32(); err != nil {
			return nil, err
		}
		return v, nil
	}
}

// Name resolves and memoises the value's name string — this is the
// string returned to callers by Match.Values(property).
func (v *Value) Name() (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.name != nil {
		return *v.name, nil
	}
	s, err := v.ds.stringAt(v.nameOffset)
	if err != nil {
		return "", err
	}
	v.name = &s
	return s, nil
}

// Description resolves the value's description string.
func (v *Value) Description() (string, error) { return v.ds.stringAt(v.descOffset) }

// URL resolves the value's documentation URL.
func (v *Value) URL() (string, error) { return v.ds.stringAt(v.urlOffset) }

// Property resolves the property this value belongs to.
func (v *Value) Property() (*Property, error) { return v.ds.properties.Get(int(v.PropertyIndex)) }
