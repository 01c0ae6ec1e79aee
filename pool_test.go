// Copyright 2024 uadetect authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package uadetect

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPoolElasticCreatesOnDemand(t *testing.T) {
	data, _ := buildTestDataset()
	p := NewPool(NewByteArraySource(data), 0, nil)

	r1, err := p.Acquire()
	require.NoError(t, err)
	r2, err := p.Acquire()
	require.NoError(t, err)
	require.Equal(t, 2, p.ReadersCreated())
	require.Equal(t, 0, p.ReadersQueued())

	p.Release(r1)
	p.Release(r2)
	require.Equal(t, 2, p.ReadersQueued())
}

func TestPoolReleaseIsReused(t *testing.T) {
	data, _ := buildTestDataset()
	p := NewPool(NewByteArraySource(data), 0, nil)

	r1, err := p.Acquire()
	require.NoError(t, err)
	p.Release(r1)

	r2, err := p.Acquire()
	require.NoError(t, err)
	require.Same(t, r1, r2)
	require.Equal(t, 1, p.ReadersCreated())
}

func TestPoolCappedExhaustsAtMaxSize(t *testing.T) {
	data, _ := buildTestDataset()
	p := NewPool(NewByteArraySource(data), 1, nil)

	r1, err := p.Acquire()
	require.NoError(t, err)

	_, err = p.Acquire()
	require.ErrorIs(t, err, ErrPoolExhausted)

	p.Release(r1)
	r2, err := p.Acquire()
	require.NoError(t, err)
	require.Same(t, r1, r2)
}

func TestPoolCloseDrainsIdleReaders(t *testing.T) {
	data, _ := buildTestDataset()
	p := NewPool(NewByteArraySource(data), 0, nil)

	r1, err := p.Acquire()
	require.NoError(t, err)
	p.Release(r1)
	require.Equal(t, 1, p.ReadersQueued())

	require.NoError(t, p.Close())
	require.Equal(t, 0, p.ReadersQueued())
}
