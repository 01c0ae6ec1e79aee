// Copyright 2024 uadetect authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package uadetect

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMatcherExactStrategy(t *testing.T) {
	ds, _ := openTestDataset(t)
	m := NewMatcher(ds, 0)

	match, err := m.Match([]byte("Android"))
	require.NoError(t, err)
	require.Equal(t, MethodExact, match.Method)
	require.Equal(t, 0, match.Difference)
	require.True(t, match.IsComplete)
	require.Equal(t, "100", match.DeviceId())
}

func TestMatcherNearestStrategy(t *testing.T) {
	ds, offs := openTestDataset(t)
	m := NewMatcher(ds, 0)

	match, err := m.Match([]byte("AndroidTabletX"))
	require.NoError(t, err)
	require.Equal(t, MethodNearest, match.Method)
	require.Equal(t, 0, match.Difference)
	require.Equal(t, offs.sigTablet, match.Signature.Offset)
}

func TestMatcherClosestStrategy(t *testing.T) {
	ds, offs := openTestDataset(t)
	m := NewMatcher(ds, 0)

	match, err := m.Match([]byte("Zebra"))
	require.NoError(t, err)
	require.Equal(t, MethodClosest, match.Method)
	require.Equal(t, 6, match.Difference)
	require.Equal(t, offs.sigTablet, match.Signature.Offset)
}

func TestMatcherNoneStrategy(t *testing.T) {
	ds, _ := openTestDataset(t)
	m := NewMatcher(ds, 0)

	match, err := m.Match([]byte("Xx"))
	require.NoError(t, err)
	require.Equal(t, MethodNone, match.Method)
	require.Equal(t, 2, match.Difference)
	require.Equal(t, "100", match.DeviceId())
}

func TestMatcherSanitizesNonASCII(t *testing.T) {
	ua := []byte{'A', 'n', 0xff, 'd'}
	got := sanitize(ua)
	require.Equal(t, []byte{'A', 'n', ' ', 'd'}, got)
}

func TestMatcherNodeEvaluationBudget(t *testing.T) {
	ds, _ := openTestDataset(t)
	// A budget of 1 lets discover() evaluate only the first node, so
	// "AndroidTablet" can't walk past Android into Tablet.
	m := NewMatcher(ds, 1)

	match, err := m.Match([]byte("AndroidTabletX"))
	require.NoError(t, err)
	require.False(t, match.IsComplete)
}

func TestMatcherDeterministicAcrossRepeatedCalls(t *testing.T) {
	ds, _ := openTestDataset(t)
	m := NewMatcher(ds, 0)

	first, err := m.Match([]byte("AndroidTabletX"))
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := m.Match([]byte("AndroidTabletX"))
		require.NoError(t, err)
		require.Equal(t, first.Signature.Offset, again.Signature.Offset)
		require.Equal(t, first.Method, again.Method)
	}
}

func TestPickByRankBreaksTiesByOffset(t *testing.T) {
	a := &Signature{Offset: 10, Rank: 3}
	b := &Signature{Offset: 5, Rank: 3}
	c := &Signature{Offset: 1, Rank: 7}
	require.Same(t, b, pickByRank([]*Signature{a, b, c}))
}

func TestParseNumber(t *testing.T) {
	value, digits := parseNumber([]byte("42abc"), 0)
	require.Equal(t, 42, value)
	require.Equal(t, 2, digits)

	value, digits = parseNumber([]byte("abc"), 0)
	require.Equal(t, 0, value)
	require.Equal(t, 0, digits)
}

func TestBestNumericChild(t *testing.T) {
	children := []numericChild{{Low: 1, High: 5, Offset: 100}, {Low: 10, High: 20, Offset: 200}}
	c, diff, found := bestNumericChild(children, 7)
	require.True(t, found)
	require.Equal(t, int64(100), c.Offset)
	require.Equal(t, 2, diff)

	c, diff, found = bestNumericChild(children, 15)
	require.True(t, found)
	require.Equal(t, int64(200), c.Offset)
	require.Equal(t, 0, diff)
}
