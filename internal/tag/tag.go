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

// Package tag implements the logical-time coordinate every event and
// reaction is ordered by: an (instant, microstep) pair in lexicographic
// order.
package tag

import (
	"fmt"
	"time"
)

// Tag is a single logical instant: an elapsed duration since the
// program's t0 plus a microstep counter distinguishing successive events
// at the same instant.
type Tag struct {
	Instant   time.Duration
	Microstep uint32
}

// Zero is the tag of the startup wave.
var Zero = Tag{}

// Compare returns -1, 0, or 1 as t orders before, at, or after o.
func (t Tag) Compare(o Tag) int {
	switch {
	case t.Instant < o.Instant:
		return -1
	case t.Instant > o.Instant:
		return 1
	case t.Microstep < o.Microstep:
		return -1
	case t.Microstep > o.Microstep:
		return 1
	default:
		return 0
	}
}

// Before reports whether t orders strictly before o.
func (t Tag) Before(o Tag) bool { return t.Compare(o) < 0 }

// After reports whether t orders strictly after o.
func (t Tag) After(o Tag) bool { return t.Compare(o) > 0 }

// AfterOrEqual reports t >= o.
func (t Tag) AfterOrEqual(o Tag) bool { return t.Compare(o) >= 0 }

// Delay computes the tag produced by scheduling with effective delay d
// (already max'd against an action's min-delay by the caller) from t. If
// d is zero the instant is unchanged and the microstep advances by one;
// otherwise the instant advances by d and the microstep resets to zero.
func (t Tag) Delay(d time.Duration) Tag {
	if d == 0 {
		return Tag{Instant: t.Instant, Microstep: t.Microstep + 1}
	}
	return Tag{Instant: t.Instant + d, Microstep: 0}
}

func (t Tag) String() string {
	return fmt.Sprintf("(%s, %d)", t.Instant, t.Microstep)
}
