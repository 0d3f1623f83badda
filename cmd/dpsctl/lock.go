// Copyright (C) 2025 sage-x-project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/streamdps/dps"
)

var lockCmd = &cobra.Command{
	Use:   "lock",
	Short: "Create, acquire, and release distributed locks",
}

var lockLease, lockMaxWait time.Duration

func init() {
	lockAcquireCmd.Flags().DurationVar(&lockLease, "lease", 0, "how long the caller may hold the lock before it may be stolen (0 = config default)")
	lockAcquireCmd.Flags().DurationVar(&lockMaxWait, "wait", 0, "how long to wait for contention to clear (0 = config default)")

	lockCmd.AddCommand(lockCreateCmd, lockAcquireCmd, lockReleaseCmd, lockStatusCmd, lockRmCmd)
	rootCmd.AddCommand(lockCmd)
}

var lockCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Reserve a fresh lock id for name, or return the existing one",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := connect(); err != nil {
			return err
		}
		id, err := dps.Global().CreateOrGetLock(context.Background(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("lock %q: id=%d\n", args[0], id)
		return nil
	},
}

var lockAcquireCmd = &cobra.Command{
	Use:   "acquire <id>",
	Short: "Acquire a lock, waiting up to --wait before giving up",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("parse lock id: %w", err)
		}
		if err := connect(); err != nil {
			return err
		}
		ok, err := dps.Global().AcquireLock(context.Background(), id, lockLease, lockMaxWait)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("timed out waiting for lock")
			return nil
		}
		fmt.Println("acquired")
		return nil
	},
}

var lockReleaseCmd = &cobra.Command{
	Use:   "release <id>",
	Short: "Release a lock unconditionally",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("parse lock id: %w", err)
		}
		if err := connect(); err != nil {
			return err
		}
		if err := dps.Global().ReleaseLock(context.Background(), id); err != nil {
			return err
		}
		fmt.Println("released")
		return nil
	},
}

var lockStatusCmd = &cobra.Command{
	Use:   "status <id>",
	Short: "Print the PID currently holding a lock, if any",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("parse lock id: %w", err)
		}
		if err := connect(); err != nil {
			return err
		}
		pid, held, err := dps.Global().GetPidForLock(context.Background(), id)
		if err != nil {
			return err
		}
		if !held {
			fmt.Println("unheld")
			return nil
		}
		fmt.Printf("held by pid=%d\n", pid)
		return nil
	},
}

var lockRmCmd = &cobra.Command{
	Use:   "rm <name> <id>",
	Short: "Delete a lock and its name index entirely",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("parse lock id: %w", err)
		}
		if err := connect(); err != nil {
			return err
		}
		existed, err := dps.Global().RemoveLock(context.Background(), args[0], id)
		if err != nil {
			return err
		}
		fmt.Println(existed)
		return nil
	},
}
