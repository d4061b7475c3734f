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

package rpc

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"reddit-scheduler/pkg/post"
)

const dialTimeout = 5 * time.Second

// Client is the CLI side of the protocol. Not safe for concurrent use;
// the CLI issues one request at a time.
type Client struct {
	conn   net.Conn
	reader *bufio.Reader
}

// Dial connects to a daemon on the local host.
func Dial(port uint16) (*Client, error) {
	return DialAddr(net.JoinHostPort("localhost", strconv.Itoa(int(port))))
}

// DialAddr connects to a daemon at an explicit address.
func DialAddr(addr string) (*Client, error) {
	conn, err := net.DialTimeout("tcp", addr, dialTimeout)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", addr, err)
	}
	reader := bufio.NewReaderSize(conn, 64*1024)
	return &Client{conn: conn, reader: reader}, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

// call sends one frame and decodes the reply. A response with
// success=false comes back as an error carrying the server's message.
func (c *Client) call(operation string, args any, result any) error {
	req := Request{Operation: operation}
	if args != nil {
		raw, err := json.Marshal(args)
		if err != nil {
			return fmt.Errorf("encode %s args: %w", operation, err)
		}
		req.Args = raw
	}
	frame, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", operation, err)
	}
	frame = append(frame, '\n')
	if _, err := c.conn.Write(frame); err != nil {
		return fmt.Errorf("send %s request: %w", operation, err)
	}

	line, err := c.reader.ReadBytes('\n')
	if err != nil {
		return fmt.Errorf("read %s response: %w", operation, err)
	}
	var resp Response
	if err := json.Unmarshal(line, &resp); err != nil {
		return fmt.Errorf("decode %s response: %w", operation, err)
	}
	if !resp.Success {
		return errors.New(resp.Error)
	}
	if result != nil {
		if err := json.Unmarshal(resp.Data, result); err != nil {
			return fmt.Errorf("decode %s result: %w", operation, err)
		}
	}
	return nil
}

// Ping checks that the daemon answers.
func (c *Client) Ping() error {
	return c.call(OpPing, nil, nil)
}

// ListPosts fetches every queue entry.
func (c *Client) ListPosts() ([]post.Entry, error) {
	var result ListPostsResult
	if err := c.call(OpListPosts, nil, &result); err != nil {
		return nil, err
	}
	return result.Posts, nil
}

// SchedulePost enqueues a post. Validation rejections come back as an
// error with the server's message.
func (c *Client) SchedulePost(p post.Post) error {
	return c.call(OpSchedulePost, ScheduleArgs{Post: p}, nil)
}

// DeletePost removes an entry. Absent IDs are a no-op.
func (c *Client) DeletePost(id int64) error {
	return c.call(OpEditPost, EditArgs{Operation: EditDelete, ID: id}, nil)
}

// ListFlairs fetches the selectable link flairs of a subreddit. An
// unreachable remote yields an empty list, not an error.
func (c *Client) ListFlairs(subreddit string) ([]post.Flair, error) {
	var result FlairsResult
	if err := c.call(OpListFlairs, FlairArgs{Subreddit: subreddit}, &result); err != nil {
		return nil, err
	}
	return result.Flairs, nil
}
