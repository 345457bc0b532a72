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

import "errors"

// ErrAsyncChannelClosed is the ChannelDisconnect case from the design:
// the scheduler holds its own sender alive until teardown, so the async
// channel closing while the event loop still waits on it is an
// unreachable invariant violation, not a recoverable condition.
var ErrAsyncChannelClosed = errors.New("scheduler: async event channel closed while scheduler still holds a sender")

// ErrDoubleBorrow names, as a typed error, the condition reactor.Pool
// panics on when a reactor is borrowed twice. Pool.Dispatch panics with a
// plain string, not with this value, so a recovered panic does not match
// it with errors.Is.
var ErrDoubleBorrow = errors.New("scheduler: reactor double-borrow; precedence graph did not keep a batch disjoint")
