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

package demo

import (
	"fmt"
	"sort"
	"time"

	"github.com/reactorflow/rtr/internal/assembly"
)

// Init assembles one of this package's fixture programs and returns the
// finished Builder, discarding the concrete reactor handles the tests
// use for assertions: the CLI harness only needs something to run.
type Init func() (*assembly.Builder, error)

// Registry is the set of programs reactorctl's --program flag can
// select by name, standing in for the surface compiler's generated
// ReactorInitializer registry.
var Registry = map[string]Init{
	"pingpong": func() (*assembly.Builder, error) {
		b, _, _, err := BuildPingPong(1000)
		return b, err
	},
	"precedence": func() (*assembly.Builder, error) {
		b, _, err := BuildPrecedenceFleet(8)
		return b, err
	},
	"ticker": func() (*assembly.Builder, error) {
		b, _, err := BuildTicker(100*time.Millisecond, 50*time.Millisecond)
		return b, err
	},
}

// Names returns the registered program names, sorted for stable --help
// output.
func Names() []string {
	out := make([]string, 0, len(Registry))
	for name := range Registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Lookup resolves name against Registry.
func Lookup(name string) (Init, error) {
	init, ok := Registry[name]
	if !ok {
		return nil, fmt.Errorf("demo: no such program %q (known: %v)", name, Names())
	}
	return init, nil
}
