// Copyright (C) 2024 The Dagu Authors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

package tag

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCompareOrdersByInstantThenMicrostep(t *testing.T) {
	a := Tag{Instant: time.Second, Microstep: 0}
	b := Tag{Instant: time.Second, Microstep: 1}
	c := Tag{Instant: 2 * time.Second, Microstep: 0}

	require.True(t, a.Before(b))
	require.True(t, b.Before(c))
	require.True(t, c.After(a))
	require.Equal(t, 0, a.Compare(Tag{Instant: time.Second}))
}

func TestDelayZeroAdvancesMicrostepOnly(t *testing.T) {
	start := Tag{Instant: 5 * time.Second, Microstep: 2}
	next := start.Delay(0)
	require.Equal(t, start.Instant, next.Instant)
	require.Equal(t, start.Microstep+1, next.Microstep)
}

func TestDelayPositiveResetsMicrostep(t *testing.T) {
	start := Tag{Instant: 5 * time.Second, Microstep: 7}
	next := start.Delay(50 * time.Millisecond)
	require.Equal(t, 5*time.Second+50*time.Millisecond, next.Instant)
	require.Equal(t, uint32(0), next.Microstep)
}
