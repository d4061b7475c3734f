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
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"golang.org/x/sync/semaphore"

	"reddit-scheduler/internal/metrics"
	"reddit-scheduler/pkg/post"
)

const (
	// maxWorkers bounds requests handled concurrently across all
	// connections.
	maxWorkers = 10

	// maxFrameSize caps one request line. Image posts embed the raw
	// bytes base64-encoded, so frames can be tens of megabytes.
	maxFrameSize = 64 << 20

	// flairTimeout bounds the remote flair lookup so a slow upstream
	// cannot hold a worker slot indefinitely.
	flairTimeout = 15 * time.Second
)

// ErrInternal is shown to clients for any failure that is not a
// validation message. The detail stays in the service log.
var ErrInternal = errors.New("internal error. See service logs via `systemctl --user status reddit-scheduler`")

// Queue is the slice of the store the server drives.
type Queue interface {
	Add(p post.Post) (string, error)
	ListAll() ([]post.Entry, error)
	Delete(id int64) error
}

// FlairLister fetches selectable link flairs from the remote API.
// Satisfied by *reddit.Client.
type FlairLister interface {
	UserSelectableFlairs(ctx context.Context, subreddit string) ([]post.Flair, error)
}

// Server accepts CLI connections and executes their requests against
// the queue and the flair capability.
type Server struct {
	queue    Queue
	flairs   FlairLister
	logger   *slog.Logger
	workers  *semaphore.Weighted
	listener net.Listener
}

func NewServer(queue Queue, flairs FlairLister, logger *slog.Logger) *Server {
	return &Server{
		queue:   queue,
		flairs:  flairs,
		logger:  logger.With(slog.String("component", "rpc")),
		workers: semaphore.NewWeighted(maxWorkers),
	}
}

// Listen binds the TCP listener on all interfaces. Call before Serve so
// readiness can be signaled once the port is actually open.
func (s *Server) Listen(port uint16) error {
	listener, err := net.Listen("tcp", fmt.Sprintf("[::]:%d", port))
	if err != nil {
		return fmt.Errorf("bind rpc listener: %w", err)
	}
	s.listener = listener
	s.logger.Info("listening", slog.String("addr", listener.Addr().String()))
	return nil
}

// Addr returns the bound listener address. Only valid after Listen.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Serve accepts connections until the context is canceled. Each
// connection gets its own goroutine; request handling inside it is
// bounded by the shared worker semaphore.
func (s *Server) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		_ = s.listener.Close()
	}()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				s.logger.Info("rpc server stopping")
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}
		go s.handleConn(ctx, conn)
	}
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	logger := s.logger.With(slog.String("remote", conn.RemoteAddr().String()))
	logger.Debug("connection opened")

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 64*1024), maxFrameSize)
	writer := bufio.NewWriter(conn)

	for scanner.Scan() {
		if err := s.workers.Acquire(ctx, 1); err != nil {
			return
		}
		resp := s.handle(ctx, logger, scanner.Bytes())
		s.workers.Release(1)

		frame, err := json.Marshal(resp)
		if err != nil {
			logger.Error("encoding response failed", slog.Any("error", err))
			return
		}
		frame = append(frame, '\n')
		if _, err := writer.Write(frame); err != nil {
			return
		}
		if err := writer.Flush(); err != nil {
			return
		}
	}
	if err := scanner.Err(); err != nil {
		logger.Debug("connection read ended", slog.Any("error", err))
	}
	logger.Debug("connection closed")
}

// handle executes one request frame. It never lets a panic escape to
// the accept loop; a handler panic is answered with the internal error.
func (s *Server) handle(ctx context.Context, logger *slog.Logger, frame []byte) (resp Response) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("request handler panicked", slog.Any("panic", r))
			resp = fail(ErrInternal.Error())
		}
	}()

	var req Request
	if err := json.Unmarshal(frame, &req); err != nil {
		logger.Warn("undecodable request frame", slog.Any("error", err))
		return fail("malformed request")
	}
	metrics.IncRPCRequest(req.Operation)
	logger.Debug("request", slog.String("operation", req.Operation))

	switch req.Operation {
	case OpPing:
		return ok(nil)
	case OpListPosts:
		return s.listPosts(logger)
	case OpSchedulePost:
		return s.schedulePost(logger, req.Args)
	case OpEditPost:
		return s.editPost(logger, req.Args)
	case OpListFlairs:
		return s.listFlairs(ctx, logger, req.Args)
	}
	return fail(fmt.Sprintf("unknown operation %q", req.Operation))
}

func (s *Server) listPosts(logger *slog.Logger) Response {
	entries, err := s.queue.ListAll()
	if err != nil {
		logger.Error("list_posts failed", slog.Any("error", err))
		return fail(err.Error())
	}
	return ok(ListPostsResult{Posts: entries})
}

func (s *Server) schedulePost(logger *slog.Logger, args json.RawMessage) Response {
	var sched ScheduleArgs
	if err := json.Unmarshal(args, &sched); err != nil {
		logger.Warn("undecodable schedule_post args", slog.Any("error", err))
		return fail("malformed request")
	}
	msg, err := s.queue.Add(sched.Post)
	if err != nil {
		logger.Error("schedule_post failed", slog.Any("error", err))
		return fail(err.Error())
	}
	if msg != "" {
		return fail(msg)
	}
	return ok(nil)
}

func (s *Server) editPost(logger *slog.Logger, args json.RawMessage) Response {
	var edit EditArgs
	if err := json.Unmarshal(args, &edit); err != nil {
		logger.Warn("undecodable edit_post args", slog.Any("error", err))
		return fail("malformed request")
	}
	switch edit.Operation {
	case EditDelete:
		if err := s.queue.Delete(edit.ID); err != nil {
			logger.Error("edit_post delete failed", slog.Int64("id", edit.ID), slog.Any("error", err))
			return fail(err.Error())
		}
		return ok(nil)
	}
	return fail(fmt.Sprintf("unknown edit operation %q", edit.Operation))
}

// listFlairs talks to the remote API. A remote failure is not the
// client's problem to untangle, so it degrades to an empty list.
func (s *Server) listFlairs(ctx context.Context, logger *slog.Logger, args json.RawMessage) Response {
	var flairArgs FlairArgs
	if err := json.Unmarshal(args, &flairArgs); err != nil {
		logger.Warn("undecodable list_flairs args", slog.Any("error", err))
		return fail("malformed request")
	}

	ctx, cancel := context.WithTimeout(ctx, flairTimeout)
	defer cancel()
	flairs, err := s.flairs.UserSelectableFlairs(ctx, flairArgs.Subreddit)
	if err != nil {
		logger.Warn("flair lookup failed",
			slog.String("subreddit", flairArgs.Subreddit), slog.Any("error", err))
		flairs = nil
	}
	return ok(FlairsResult{Flairs: flairs})
}

func ok(data any) Response {
	if data == nil {
		return Response{Success: true}
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return fail(ErrInternal.Error())
	}
	return Response{Success: true, Data: raw}
}

func fail(msg string) Response {
	return Response{Success: false, Error: msg}
}
