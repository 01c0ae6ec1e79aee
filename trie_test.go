// Copyright 2024 uadetect authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package uadetect

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func openTestTrie(t *testing.T) *TrieProvider {
	t.Helper()
	data := buildTestTrie()
	tp, err := OpenTrie(NewByteArraySource(data), TrieOpenOptions{CacheSize: 8})
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, tp.Close()) })
	return tp
}

func TestTrieMatchFollowsOrdinalToChild(t *testing.T) {
	tp := openTestTrie(t)

	m, err := tp.Match([]byte("A"))
	require.NoError(t, err)
	require.Equal(t, uint32(1), m.DeviceIndex)
	require.Equal(t, 1, m.NodesEvaluated)
	require.True(t, m.IsComplete)
}

func TestTrieMatchStaysAtRootDeviceWhenNoChildMatches(t *testing.T) {
	tp := openTestTrie(t)

	m, err := tp.Match([]byte("Z"))
	require.NoError(t, err)
	require.Equal(t, uint32(0), m.DeviceIndex)
}

func TestTrieMatchEmptyUserAgentUsesRootDevice(t *testing.T) {
	tp := openTestTrie(t)

	m, err := tp.Match(nil)
	require.NoError(t, err)
	require.Equal(t, uint32(0), m.DeviceIndex)
	require.Equal(t, 0, m.NodesEvaluated)
}

func TestTriePropertyValueResolvesByDeviceIndex(t *testing.T) {
	tp := openTestTrie(t)

	v, ok, err := tp.PropertyValue(0, "IsMobile")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "ValueZero", v)

	v, ok, err = tp.PropertyValue(1, "IsMobile")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "ValueOne", v)
}

func TestTriePropertyValueUnknownProperty(t *testing.T) {
	tp := openTestTrie(t)

	_, ok, err := tp.PropertyValue(0, "NoSuchProperty")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestTriePropertyValueDeviceIndexOutOfRange(t *testing.T) {
	tp := openTestTrie(t)

	_, _, err := tp.PropertyValue(99, "IsMobile")
	require.ErrorIs(t, err, ErrDatasetFormat)
}
