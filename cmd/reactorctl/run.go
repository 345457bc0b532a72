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
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/reactorflow/rtr/internal/demo"
	"github.com/reactorflow/rtr/internal/scheduler"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Assemble and run a registered reactor program",
		Long:  `reactorctl run --program=<name> [--keep-alive] [--timeout=<duration>] [--workers=<n>]`,
		RunE:  runRun,
	}

	cmd.Flags().String("program", "pingpong", fmt.Sprintf("program to run (one of: %v)", demo.Names()))
	cmd.Flags().Bool("keep-alive", false, "block for async events instead of exiting once the queue drains")
	cmd.Flags().Duration("timeout", 0, "hard shutdown delay from startup; zero means no timeout")
	cmd.Flags().Int("workers", 0, "reaction batch parallelism; zero means sequential unless --auto-workers is set")
	cmd.Flags().Bool("auto-workers", false, "size --workers from the host's logical core count when --workers=0")

	for _, name := range []string{"program", "keep-alive", "timeout", "workers", "auto-workers"} {
		if err := viper.BindPFlag(name, cmd.Flags().Lookup(name)); err != nil {
			panic(fmt.Sprintf("reactorctl: failed to bind flag %s: %v", name, err))
		}
	}

	return cmd
}

func runRun(cmd *cobra.Command, _ []string) error {
	log := slog.Default()

	program := viper.GetString("program")
	initFn, err := demo.Lookup(program)
	if err != nil {
		return err
	}

	b, err := initFn()
	if err != nil {
		return fmt.Errorf("reactorctl: assembly rejected program %q: %w", program, err)
	}

	opts := scheduler.Options{
		KeepAlive:   viper.GetBool("keep-alive"),
		Timeout:     viper.GetDuration("timeout"),
		Workers:     viper.GetInt("workers"),
		AutoWorkers: viper.GetBool("auto-workers"),
		Logger:      log,
	}

	ctx, cancel := withSignalCancel(cmd.Context())
	defer cancel()

	start := time.Now()
	log.Info("reactorctl run starting", "program", program, "keep_alive", opts.KeepAlive, "timeout", opts.Timeout, "workers", opts.Workers)
	if err := scheduler.RunMain(ctx, b, opts); err != nil {
		return fmt.Errorf("reactorctl: run failed: %w", err)
	}
	log.Info("reactorctl run finished", "program", program, "elapsed", time.Since(start))
	return nil
}

// withSignalCancel derives a context that is cancelled on SIGINT/SIGTERM,
// so a --keep-alive run can be stopped cleanly from the terminal.
func withSignalCancel(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sig:
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sig)
	}()
	return ctx, cancel
}
