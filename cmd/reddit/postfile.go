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
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"reddit-scheduler/pkg/post"
)

// scheduleTimeLayout is the human format accepted next to unix seconds
// and RFC 3339. Interpreted in local time.
const scheduleTimeLayout = "2006-01-02 15:04"

// postSpec is the YAML shape of a post file. Exactly one type's fields
// apply; Type selects which.
type postSpec struct {
	Title         string `yaml:"title"`
	Subreddit     string `yaml:"subreddit"`
	ScheduledTime string `yaml:"scheduled_time"`
	Type          string `yaml:"type"`
	FlairID       string `yaml:"flair_id"`

	// text
	Body string `yaml:"body"`

	// poll
	Selftext     string   `yaml:"selftext"`
	Options      []string `yaml:"options"`
	DurationDays int32    `yaml:"duration_days"`

	// image
	ImagePath string `yaml:"image_path"`
	NSFW      bool   `yaml:"nsfw"`

	// url
	URL string `yaml:"url"`
}

// loadPostFile reads and converts a YAML post file.
func loadPostFile(path string) (post.Post, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return post.Post{}, err
	}
	var spec postSpec
	if err := yaml.Unmarshal(raw, &spec); err != nil {
		return post.Post{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return buildPost(spec)
}

// buildPost converts a spec into the wire model, reading the image file
// if one is referenced.
func buildPost(spec postSpec) (post.Post, error) {
	when, err := parseScheduleTime(spec.ScheduledTime)
	if err != nil {
		return post.Post{}, err
	}
	p := post.Post{
		Title:         spec.Title,
		Subreddit:     spec.Subreddit,
		ScheduledTime: when,
		FlairID:       spec.FlairID,
	}

	switch spec.Type {
	case "text":
		p.Data.Text = &post.TextData{Body: spec.Body}
	case "poll":
		p.Data.Poll = &post.PollData{
			Selftext:     spec.Selftext,
			Options:      spec.Options,
			DurationDays: spec.DurationDays,
		}
	case "image":
		raw, err := os.ReadFile(spec.ImagePath)
		if err != nil {
			return post.Post{}, fmt.Errorf("read image file: %w", err)
		}
		ext := strings.TrimPrefix(filepath.Ext(spec.ImagePath), ".")
		if ext == "" {
			return post.Post{}, fmt.Errorf("image file %s has no extension", spec.ImagePath)
		}
		p.Data.Image = &post.ImageData{ImageBytes: raw, Extension: ext, NSFW: spec.NSFW}
	case "url":
		p.Data.URL = &post.URLData{URL: spec.URL}
	case "":
		return post.Post{}, fmt.Errorf("post file is missing the type field")
	default:
		return post.Post{}, fmt.Errorf("unknown post type %q (want text, poll, image or url)", spec.Type)
	}
	return p, nil
}

// parseScheduleTime accepts unix seconds, RFC 3339, or a local
// "YYYY-MM-DD HH:MM" timestamp.
func parseScheduleTime(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("scheduled_time is required")
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return unix, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.Unix(), nil
	}
	if t, err := time.ParseInLocation(scheduleTimeLayout, s, time.Local); err == nil {
		return t.Unix(), nil
	}
	return 0, fmt.Errorf("cannot parse scheduled_time %q (want unix seconds, RFC 3339, or %q)", s, scheduleTimeLayout)
}

const sampleFile = `# reddit-scheduler post file.
# Submit with: reddit post --file <path>

title: "My scheduled post"
subreddit: "golang"

# Unix seconds, RFC 3339, or local "YYYY-MM-DD HH:MM".
scheduled_time: "2026-09-01 18:00"

# Optional flair template id; list them with: reddit flairs <subreddit>
# flair_id: "abc123"

# One of: text, poll, image, url.
type: text
body: |
  Post body in Markdown.

# --- poll ---
# type: poll
# selftext: "Optional description"
# options: ["first", "second"]
# duration_days: 3

# --- image ---
# type: image
# image_path: "/path/to/picture.png"
# nsfw: false

# --- url ---
# type: url
# url: "https://example.com"
`
