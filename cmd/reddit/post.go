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
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"reddit-scheduler/internal/rpc"
	"reddit-scheduler/pkg/post"
)

var flagPostFile string

var postCmd = &cobra.Command{
	Use:   "post",
	Short: "Schedule a new post",
	Long: "Schedule a new post, either interactively or from a YAML file.\n" +
		"Generate a starting file with `reddit sample-file`.",
	Args: cobra.NoArgs,
	RunE: runPost,
}

func init() {
	postCmd.Flags().StringVarP(&flagPostFile, "file", "f", "", "YAML post file (skip the interactive prompt)")
}

func runPost(cmd *cobra.Command, _ []string) error {
	client, err := connect()
	if err != nil {
		return err
	}
	defer client.Close()

	var p post.Post
	if flagPostFile != "" {
		p, err = loadPostFile(flagPostFile)
	} else {
		p, err = promptPost(client)
	}
	if err != nil {
		return err
	}

	if p.ScheduledTime < time.Now().Unix() {
		if !confirm("The scheduled time is in the past; it will be posted immediately. Continue?") {
			fmt.Println("Aborted.")
			return nil
		}
	}

	if err := client.SchedulePost(p); err != nil {
		return err
	}
	fmt.Println("Post scheduled.")
	return nil
}

// promptPost builds a post by asking on the terminal, mirroring the
// fields of the YAML file format.
func promptPost(client *rpc.Client) (post.Post, error) {
	in := bufio.NewReader(os.Stdin)

	spec := postSpec{}
	var err error
	if spec.Title, err = ask(in, "Title"); err != nil {
		return post.Post{}, err
	}
	if spec.Subreddit, err = ask(in, "Subreddit (without r/)"); err != nil {
		return post.Post{}, err
	}
	if spec.ScheduledTime, err = ask(in, "Scheduled time (YYYY-MM-DD HH:MM)"); err != nil {
		return post.Post{}, err
	}
	if spec.Type, err = ask(in, "Type (text, poll, image, url)"); err != nil {
		return post.Post{}, err
	}

	switch spec.Type {
	case "text":
		if spec.Body, err = ask(in, "Body"); err != nil {
			return post.Post{}, err
		}
	case "poll":
		if spec.Selftext, err = ask(in, "Description (optional)"); err != nil {
			return post.Post{}, err
		}
		options, err := ask(in, "Options (comma-separated)")
		if err != nil {
			return post.Post{}, err
		}
		for _, opt := range strings.Split(options, ",") {
			if opt = strings.TrimSpace(opt); opt != "" {
				spec.Options = append(spec.Options, opt)
			}
		}
		days, err := ask(in, "Duration in days (empty for default)")
		if err != nil {
			return post.Post{}, err
		}
		if days != "" {
			parsed, err := strconv.ParseInt(days, 10, 32)
			if err != nil {
				return post.Post{}, fmt.Errorf("invalid duration %q", days)
			}
			spec.DurationDays = int32(parsed)
		}
	case "image":
		if spec.ImagePath, err = ask(in, "Image file path"); err != nil {
			return post.Post{}, err
		}
		nsfw, err := ask(in, "NSFW? (y/N)")
		if err != nil {
			return post.Post{}, err
		}
		spec.NSFW = nsfw == "y" || nsfw == "Y"
	case "url":
		if spec.URL, err = ask(in, "URL"); err != nil {
			return post.Post{}, err
		}
	default:
		return post.Post{}, fmt.Errorf("unknown post type %q (want text, poll, image or url)", spec.Type)
	}

	spec.FlairID, err = chooseFlair(in, client, spec.Subreddit)
	if err != nil {
		return post.Post{}, err
	}
	return buildPost(spec)
}

// chooseFlair lists the subreddit's selectable flairs and lets the user
// pick one. Subreddits without flairs skip the prompt.
func chooseFlair(in *bufio.Reader, client *rpc.Client, subreddit string) (string, error) {
	flairs, err := client.ListFlairs(subreddit)
	if err != nil {
		return "", err
	}
	if len(flairs) == 0 {
		return "", nil
	}

	fmt.Println("Available flairs:")
	for i, flair := range flairs {
		fmt.Printf("  %d) %s\n", i+1, flair.Text)
	}
	answer, err := ask(in, "Flair number (empty for none)")
	if err != nil {
		return "", err
	}
	if answer == "" {
		return "", nil
	}
	n, err := strconv.Atoi(answer)
	if err != nil || n < 1 || n > len(flairs) {
		return "", fmt.Errorf("invalid flair choice %q", answer)
	}
	return flairs[n-1].ID, nil
}

func ask(in *bufio.Reader, prompt string) (string, error) {
	fmt.Printf("%s: ", prompt)
	line, err := in.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}
