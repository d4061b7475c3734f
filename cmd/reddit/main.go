// Reddit-scheduler is a service that submits scheduled posts to Reddit.
// Copyright (C) 2026 Reddit-scheduler contributors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// reddit is the command-line client for the scheduler daemon.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"reddit-scheduler/internal/config"
	"reddit-scheduler/internal/rpc"
)

var version = "dev"

var (
	flagPort   uint16
	flagConfig string
	flagYes    bool
)

var rootCmd = &cobra.Command{
	Use:           "reddit",
	Short:         "Schedule posts to Reddit",
	Long:          "reddit talks to the reddit-scheduler daemon to queue, inspect, and remove scheduled posts.",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().Uint16Var(&flagPort, "port", 0, "daemon port (default: from the config file)")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file path (default: standard search path)")
	rootCmd.PersistentFlags().BoolVarP(&flagYes, "yes", "y", false, "answer yes to all confirmation prompts")

	rootCmd.AddCommand(postCmd, listCmd, deleteCmd, flairsCmd, sampleFileCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// daemonPort resolves the port from the --port flag or the config file.
func daemonPort() (uint16, error) {
	if flagPort != 0 {
		return flagPort, nil
	}
	var (
		cfg *config.Config
		err error
	)
	if flagConfig != "" {
		cfg, err = config.LoadFile(flagConfig)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return 0, fmt.Errorf("cannot determine daemon port (pass --port or fix the config): %w", err)
	}
	return cfg.Port, nil
}

// connect dials the daemon and verifies it answers.
func connect() (*rpc.Client, error) {
	port, err := daemonPort()
	if err != nil {
		return nil, err
	}
	client, err := rpc.Dial(port)
	if err == nil {
		if err = client.Ping(); err != nil {
			client.Close()
		}
	}
	if err != nil {
		return nil, fmt.Errorf("the scheduler service is not reachable on port %d.\n"+
			"Is it running? Try `systemctl --user start reddit-scheduler`", port)
	}
	return client, nil
}

// confirm asks a yes/no question on the terminal. --yes short-circuits.
func confirm(prompt string) bool {
	if flagYes {
		return true
	}
	fmt.Printf("%s [y/N]: ", prompt)
	var answer string
	if _, err := fmt.Scanln(&answer); err != nil {
		return false
	}
	return answer == "y" || answer == "Y" || answer == "yes"
}
