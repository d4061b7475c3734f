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

// Package rpc carries the control protocol between the CLI and the
// daemon: newline-delimited JSON request/response frames over TCP.
package rpc

import (
	"encoding/json"

	"reddit-scheduler/pkg/post"
)

// Operations understood by the daemon.
const (
	OpPing         = "ping"
	OpListPosts    = "list_posts"
	OpSchedulePost = "schedule_post"
	OpEditPost     = "edit_post"
	OpListFlairs   = "list_flairs"
)

// Edit operations accepted by OpEditPost.
const EditDelete = "delete"

// Request is one frame from client to daemon.
type Request struct {
	Operation string          `json:"operation"`
	Args      json.RawMessage `json:"args,omitempty"`
}

// Response is one frame from daemon to client. Error carries either a
// validation message or the opaque internal-error text; it is always
// safe to show to the user.
type Response struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// ScheduleArgs carries the post to enqueue.
type ScheduleArgs struct {
	Post post.Post `json:"post"`
}

// EditArgs names an existing entry and the change to make.
type EditArgs struct {
	Operation string `json:"operation"`
	ID        int64  `json:"id"`
}

// FlairArgs selects the subreddit to list flairs for.
type FlairArgs struct {
	Subreddit string `json:"subreddit"`
}

// ListPostsResult is the payload of a successful list_posts.
type ListPostsResult struct {
	Posts []post.Entry `json:"posts"`
}

// FlairsResult is the payload of a successful list_flairs.
type FlairsResult struct {
	Flairs []post.Flair `json:"flairs"`
}
