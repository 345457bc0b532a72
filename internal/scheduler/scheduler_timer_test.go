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

package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/reactorflow/rtr/internal/demo"
	"github.com/stretchr/testify/require"
)

// TestTimerAndActionInterleaveInOrder is the timer-ordering scenario: a
// periodic timer and a logical action it self-schedules each tick must
// interleave by tag instant, not by which trigger kind they are.
func TestTimerAndActionInterleaveInOrder(t *testing.T) {
	b, tk, err := demo.BuildTicker(100*time.Millisecond, 50*time.Millisecond)
	require.NoError(t, err)

	err = RunMain(context.Background(), b, Options{Timeout: 260 * time.Millisecond})
	require.NoError(t, err)

	want := []time.Duration{
		0, 50 * time.Millisecond, 100 * time.Millisecond,
		150 * time.Millisecond, 200 * time.Millisecond, 250 * time.Millisecond,
	}
	require.Equal(t, want, tk.Instants)
}
