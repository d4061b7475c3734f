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

package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a scheduled post",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid post id %q", args[0])
		}

		client, err := connect()
		if err != nil {
			return err
		}
		defer client.Close()

		if !confirm(fmt.Sprintf("Delete post %d?", id)) {
			fmt.Println("Aborted.")
			return nil
		}
		if err := client.DeletePost(id); err != nil {
			return err
		}
		fmt.Println("Post deleted.")
		return nil
	},
}

var flairsCmd = &cobra.Command{
	Use:   "flairs <subreddit>",
	Short: "List the selectable link flairs of a subreddit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := connect()
		if err != nil {
			return err
		}
		defer client.Close()

		flairs, err := client.ListFlairs(args[0])
		if err != nil {
			return err
		}
		if len(flairs) == 0 {
			fmt.Printf("r/%s has no selectable flairs (or they could not be fetched).\n", args[0])
			return nil
		}

		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"ID", "Text"})
		for _, flair := range flairs {
			table.Append([]string{flair.ID, flair.Text})
		}
		table.Render()
		return nil
	},
}

var sampleFileCmd = &cobra.Command{
	Use:   "sample-file",
	Short: "Print a sample YAML post file",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Print(sampleFile)
	},
}
