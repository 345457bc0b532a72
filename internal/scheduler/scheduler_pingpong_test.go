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

	"github.com/reactorflow/rtr/internal/demo"
	"github.com/stretchr/testify/require"
)

// TestPingPongRunsExactCount drives the ping-pong program to completion
// and asserts Pong's shutdown reaction observed exactly the requested
// number of round trips, proving the self-scheduled logical action keeps
// the loop going one tag at a time without any round going missing or
// double-counted.
func TestPingPongRunsExactCount(t *testing.T) {
	const total = 1000

	b, _, pong, err := demo.BuildPingPong(total)
	require.NoError(t, err)

	done := make(chan int64, 1)
	pong.CountReached = func(final int64) { done <- final }

	require.NoError(t, RunMain(context.Background(), b, Options{}))

	select {
	case final := <-done:
		require.Equal(t, int64(total), final)
	default:
		t.Fatal("pong shutdown reaction never ran")
	}
}

// TestPingPongRunsExactCountParallel repeats the same scenario with a
// worker pool, since batch partitioning must not change the outcome:
// each level batch only ever holds one reaction per reactor here, so
// parallel dispatch should be indistinguishable from
// sequential dispatch.
func TestPingPongRunsExactCountParallel(t *testing.T) {
	const total = 200

	b, _, pong, err := demo.BuildPingPong(total)
	require.NoError(t, err)

	done := make(chan int64, 1)
	pong.CountReached = func(final int64) { done <- final }

	require.NoError(t, RunMain(context.Background(), b, Options{Workers: 4}))

	select {
	case final := <-done:
		require.Equal(t, int64(total), final)
	default:
		t.Fatal("pong shutdown reaction never ran")
	}
}
