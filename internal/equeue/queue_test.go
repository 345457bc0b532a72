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

package equeue

import (
	"testing"
	"time"

	"github.com/reactorflow/rtr/internal/ids"
	"github.com/reactorflow/rtr/internal/tag"
	"github.com/stretchr/testify/require"
)

func TestTakeEarliestOrdersByTag(t *testing.T) {
	q := New()
	r1 := ids.NewGlobalReactionID(0, 1)
	r2 := ids.NewGlobalReactionID(0, 2)

	q.Push(tag.Tag{Instant: 100 * time.Millisecond}, []ids.GlobalReactionID{r2}, nil)
	q.Push(tag.Tag{Instant: 50 * time.Millisecond}, []ids.GlobalReactionID{r1}, nil)

	e, ok := q.TakeEarliest()
	require.True(t, ok)
	require.Equal(t, tag.Tag{Instant: 50 * time.Millisecond}, e.Tag)
	require.True(t, e.Reactions[r1])

	e2, ok := q.TakeEarliest()
	require.True(t, ok)
	require.Equal(t, tag.Tag{Instant: 100 * time.Millisecond}, e2.Tag)

	_, ok = q.TakeEarliest()
	require.False(t, ok)
}

func TestPushMergesEventsAtSameTag(t *testing.T) {
	q := New()
	r1 := ids.NewGlobalReactionID(0, 1)
	r2 := ids.NewGlobalReactionID(0, 2)
	at := tag.Tag{Instant: 10}

	armed := 0
	q.Push(at, []ids.GlobalReactionID{r1}, func() { armed++ })
	q.Push(at, []ids.GlobalReactionID{r2}, func() { armed++ })

	require.Equal(t, 1, q.Len())
	e, ok := q.TakeEarliest()
	require.True(t, ok)
	require.True(t, e.Reactions[r1])
	require.True(t, e.Reactions[r2])
	require.Len(t, e.Arm, 2)
	for _, arm := range e.Arm {
		arm()
	}
	require.Equal(t, 2, armed)
}

func TestPushTerminateFlagsEventWithoutDroppingReactions(t *testing.T) {
	q := New()
	r1 := ids.NewGlobalReactionID(0, 1)
	at := tag.Tag{Instant: 5}

	q.Push(at, []ids.GlobalReactionID{r1}, nil)
	q.PushTerminate(at)

	e, ok := q.TakeEarliest()
	require.True(t, ok)
	require.True(t, e.Terminate)
	require.True(t, e.Reactions[r1])
}

func TestPeekTagDoesNotRemove(t *testing.T) {
	q := New()
	at := tag.Tag{Instant: 1}
	q.Push(at, nil, nil)

	peeked, ok := q.PeekTag()
	require.True(t, ok)
	require.Equal(t, at, peeked)
	require.Equal(t, 1, q.Len())
}
