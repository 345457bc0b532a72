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

package main

import (
	"github.com/spf13/cobra"
)

// cfgFile holds the value of the --config flag. No command reads it and
// no config file is loaded; settings come from command-line flags only.
var cfgFile string

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reactorctl",
		Short: "Run and inspect deterministic reactor programs",
		Long:  `reactorctl assembles a registered reactor program and runs it to completion.`,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (accepted but not read)")

	cmd.AddCommand(newRunCmd())
	return cmd
}
