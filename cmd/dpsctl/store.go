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

	"github.com/spf13/cobra"

	"github.com/streamdps/dps"
)

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Create, inspect, and manipulate named stores",
}

var storeKeyTag, storeValueTag string

func init() {
	storeCreateCmd.Flags().StringVar(&storeKeyTag, "key-type", "string", "key type tag: string, int64, float64, bool, blob")
	storeCreateCmd.Flags().StringVar(&storeValueTag, "value-type", "string", "value type tag: string, int64, float64, bool, blob")

	storePutCmd.Flags().StringVar(&storeKeyTag, "key-type", "string", "key type tag")
	storePutCmd.Flags().StringVar(&storeValueTag, "value-type", "string", "value type tag")

	storeGetCmd.Flags().StringVar(&storeKeyTag, "key-type", "string", "key type tag")
	storeGetCmd.Flags().StringVar(&storeValueTag, "value-type", "string", "value type tag")

	storeRmKeyCmd.Flags().StringVar(&storeKeyTag, "key-type", "string", "key type tag")

	storeCmd.AddCommand(storeCreateCmd, storeFindCmd, storeRmCmd, storePutCmd, storeGetCmd, storeRmKeyCmd, storeSizeCmd)
	rootCmd.AddCommand(storeCmd)
}

var storeCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Reserve a fresh store, failing if the name is already taken",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := connect(); err != nil {
			return err
		}
		id, err := dps.Global().CreateStore(context.Background(), args[0], storeKeyTag, storeValueTag)
		if err != nil {
			return err
		}
		fmt.Printf("store %q created: id=%d\n", args[0], id)
		return nil
	},
}

var storeFindCmd = &cobra.Command{
	Use:   "find <name>",
	Short: "Print a store's id, or report that it doesn't exist",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := connect(); err != nil {
			return err
		}
		id, err := dps.Global().FindStore(context.Background(), args[0])
		if err != nil {
			return err
		}
		if id == 0 {
			fmt.Printf("store %q does not exist\n", args[0])
			return nil
		}
		fmt.Printf("store %q: id=%d\n", args[0], id)
		return nil
	},
}

var storeRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a store's header, name index, and every entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("parse store id: %w", err)
		}
		if err := connect(); err != nil {
			return err
		}
		if err := dps.Global().RemoveStore(context.Background(), id); err != nil {
			return err
		}
		fmt.Printf("store %d removed\n", id)
		return nil
	},
}

var storePutCmd = &cobra.Command{
	Use:   "put <id> <key> <value>",
	Short: "Write key/value into a store",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("parse store id: %w", err)
		}
		key, err := parseTyped(args[1], storeKeyTag)
		if err != nil {
			return err
		}
		value, err := parseTyped(args[2], storeValueTag)
		if err != nil {
			return err
		}
		if err := connect(); err != nil {
			return err
		}
		if err := dps.Global().Put(context.Background(), id, key, value, storeKeyTag, storeValueTag); err != nil {
			return err
		}
		fmt.Println("ok")
		return nil
	},
}

var storeGetCmd = &cobra.Command{
	Use:   "get <id> <key>",
	Short: "Read a value from a store",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("parse store id: %w", err)
		}
		key, err := parseTyped(args[1], storeKeyTag)
		if err != nil {
			return err
		}
		if err := connect(); err != nil {
			return err
		}
		value, found, err := dps.Global().Get(context.Background(), id, key, storeKeyTag, storeValueTag)
		if err != nil {
			return err
		}
		if !found {
			fmt.Println("(not found)")
			return nil
		}
		fmt.Println(formatTyped(value))
		return nil
	},
}

var storeRmKeyCmd = &cobra.Command{
	Use:   "rmkey <id> <key>",
	Short: "Delete a key from a store",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("parse store id: %w", err)
		}
		key, err := parseTyped(args[1], storeKeyTag)
		if err != nil {
			return err
		}
		if err := connect(); err != nil {
			return err
		}
		existed, err := dps.Global().Remove(context.Background(), id, key, storeKeyTag)
		if err != nil {
			return err
		}
		fmt.Println(existed)
		return nil
	},
}

var storeSizeCmd = &cobra.Command{
	Use:   "size <id>",
	Short: "Print a store's element count",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("parse store id: %w", err)
		}
		if err := connect(); err != nil {
			return err
		}
		n, err := dps.Global().Size(context.Background(), id)
		if err != nil {
			return err
		}
		fmt.Println(n)
		return nil
	},
}
