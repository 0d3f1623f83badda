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
	"fmt"

	"github.com/spf13/cobra"

	"github.com/streamdps/dps"
)

var rootCmd = &cobra.Command{
	Use:   "dpsctl",
	Short: "Serve and administer a distributed process store",
	Long: `dpsctl hosts a dps process over HTTP and gives operators a way to
create and inspect stores and locks against one without writing a Go
program.

Configuration can be provided via:
  - a config file (default: etc/no-sql-kv-store-servers.cfg)
  - DPS_-prefixed environment variables
  - the --config flag`,
}

var cfgPath string

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to the dps config file")
}

// connect initializes the process-wide dps singleton from --config, for
// admin subcommands that need a live backend connection for one call.
func connect() error {
	if dps.Global().IsConnected() {
		return nil
	}
	if err := dps.Global().Initialize(cfgPath); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	return nil
}
