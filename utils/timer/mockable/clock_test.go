// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package mockable

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestClockSet(t *testing.T) {
	require := require.New(t)

	clock := Clock{}
	pinned := time.Unix(1_000_000, 0)
	clock.Set(pinned)
	require.Equal(pinned, clock.Time())

	clock.Advance(time.Second)
	require.Equal(pinned.Add(time.Second), clock.Time())
	require.Equal(time.Second, clock.Since(pinned))

	clock.Sync()
	require.True(clock.Time().After(pinned))
}

func TestClockAdvanceUnpinned(t *testing.T) {
	require := require.New(t)

	clock := Clock{}
	before := time.Now()
	clock.Advance(time.Hour)
	require.False(clock.Time().Before(before.Add(time.Hour)))
}
