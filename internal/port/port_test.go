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

package port

import (
	"testing"

	"github.com/reactorflow/rtr/internal/ids"
	"github.com/stretchr/testify/require"
)

func TestBindAndGetFollowsToRoot(t *testing.T) {
	a := New[int](1, Output, "owner")
	b := New[int](2, Input, "owner")
	require.NoError(t, b.Bind(a))

	require.NoError(t, a.Set(42))
	v, present := b.Get()
	require.True(t, present)
	require.Equal(t, 42, v)
}

func TestTransitiveBindingThreeDeep(t *testing.T) {
	a := New[string](1, Output, "owner")
	b := New[string](2, Input, "owner")
	c := New[string](3, Input, "owner")
	require.NoError(t, b.Bind(a))
	require.NoError(t, c.Bind(b))

	require.NoError(t, a.Set("hello"))

	av, _ := a.Get()
	bv, _ := b.Get()
	cv, _ := c.Get()
	require.Equal(t, "hello", av)
	require.Equal(t, "hello", bv)
	require.Equal(t, "hello", cv)

	a.Handle().Clear()
	_, present := c.Get()
	require.False(t, present)
}

func TestCannotSetNonRootPort(t *testing.T) {
	a := New[int](1, Output, "owner")
	b := New[int](2, Input, "owner")
	require.NoError(t, b.Bind(a))

	err := b.Set(1)
	require.ErrorIs(t, err, ErrCannotSet)
}

func TestCannotBindTwice(t *testing.T) {
	a := New[int](1, Output, "owner")
	b := New[int](2, Input, "owner")
	c := New[int](3, Output, "owner")
	require.NoError(t, b.Bind(a))

	err := b.Bind(c)
	require.ErrorIs(t, err, ErrAlreadyBound)
}

func TestAbsentBeforeWrite(t *testing.T) {
	a := New[int](ids.TriggerID(5), Input, "owner")
	_, present := a.Get()
	require.False(t, present)
}
