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
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"reddit-scheduler/pkg/post"
)

var (
	flagListFilter string
	flagListPostID int64
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List scheduled posts",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	listCmd.Flags().StringVar(&flagListFilter, "filter", "all", "show all, posted, or unposted entries")
	listCmd.Flags().Int64Var(&flagListPostID, "post-id", 0, "show the full detail of one entry")
}

func runList(cmd *cobra.Command, _ []string) error {
	client, err := connect()
	if err != nil {
		return err
	}
	defer client.Close()

	entries, err := client.ListPosts()
	if err != nil {
		return err
	}

	if flagListPostID != 0 {
		for _, e := range entries {
			if e.ID == flagListPostID {
				printDetail(e)
				return nil
			}
		}
		return fmt.Errorf("no post with id %d", flagListPostID)
	}

	filtered, err := filterEntries(entries, flagListFilter)
	if err != nil {
		return err
	}
	if len(filtered) == 0 {
		fmt.Println("No posts.")
		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"ID", "Title", "Subreddit", "Scheduled", "Status", "Error"})
	for _, e := range filtered {
		table.Append([]string{
			strconv.FormatInt(e.ID, 10),
			truncate(e.Post.Title, 40),
			e.Post.Subreddit,
			time.Unix(e.Post.ScheduledTime, 0).Format("2006-01-02 15:04"),
			strings.ToUpper(string(e.Status)),
			truncate(firstLine(e.Error), 40),
		})
	}
	table.Render()
	return nil
}

func filterEntries(entries []post.Entry, filter string) ([]post.Entry, error) {
	switch filter {
	case "all":
		return entries, nil
	case "posted", "unposted":
	default:
		return nil, fmt.Errorf("unknown filter %q (want all, posted or unposted)", filter)
	}

	var filtered []post.Entry
	for _, e := range entries {
		posted := e.Status == post.StatusPosted
		if (filter == "posted") == posted {
			filtered = append(filtered, e)
		}
	}
	return filtered, nil
}

func printDetail(e post.Entry) {
	fmt.Printf("ID:         %d\n", e.ID)
	fmt.Printf("Title:      %s\n", e.Post.Title)
	fmt.Printf("Subreddit:  r/%s\n", e.Post.Subreddit)
	fmt.Printf("Scheduled:  %s\n", time.Unix(e.Post.ScheduledTime, 0).Format(time.RFC1123))
	fmt.Printf("Status:     %s\n", strings.ToUpper(string(e.Status)))
	if e.Post.FlairID != "" {
		fmt.Printf("Flair:      %s\n", e.Post.FlairID)
	}

	switch {
	case e.Post.Data.Text != nil:
		fmt.Printf("Type:       text\nBody:\n%s\n", e.Post.Data.Text.Body)
	case e.Post.Data.Poll != nil:
		poll := e.Post.Data.Poll
		fmt.Printf("Type:       poll\nOptions:    %s\n", strings.Join(poll.Options, ", "))
		if poll.DurationDays != 0 {
			fmt.Printf("Duration:   %d days\n", poll.DurationDays)
		}
		if poll.Selftext != "" {
			fmt.Printf("Body:\n%s\n", poll.Selftext)
		}
	case e.Post.Data.Image != nil:
		img := e.Post.Data.Image
		fmt.Printf("Type:       image (%s, %d bytes, nsfw=%t)\n", img.Extension, len(img.ImageBytes), img.NSFW)
	case e.Post.Data.URL != nil:
		fmt.Printf("Type:       url\nURL:        %s\n", e.Post.Data.URL.URL)
	}

	if e.Error != "" {
		fmt.Printf("Last error:\n%s\n", e.Error)
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
