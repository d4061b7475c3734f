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

// Package store owns the embedded SQLite queue of scheduled posts. All
// reads and writes are serialized through a bounded command channel
// consumed by a single goroutine that holds the database handle, so the
// logical post collection has linearizable semantics and the driver never
// sees concurrent access.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"reddit-scheduler/internal/metrics"
	"reddit-scheduler/pkg/post"
)

const (
	// LockTimeout bounds every wait on the command queue and on reply
	// channels. A full queue or a wedged loop surfaces as ErrTimeout
	// instead of blocking callers forever.
	LockTimeout = 10 * time.Second

	queueCapacity      = 100
	defaultBusyTimeout = 5 * time.Second
)

var (
	// ErrTimeout is returned when the command queue stays saturated for
	// the whole lock timeout.
	ErrTimeout = errors.New("service timeout: service may be overloaded")

	// ErrInternal is the opaque error handed to clients for any
	// infrastructure failure. Detail goes to the service logs only.
	ErrInternal = errors.New("internal error. See service logs via `systemctl --user status reddit-scheduler`")
)

// Queue table. Status is not a column: it is derived at read time from
// (posted, error), which keeps the eligibility query a plain posted=0
// check and lets errored rows fall back to pending semantics for retry.
const queryCreateTable = `
CREATE TABLE IF NOT EXISTS Queue (
    id INTEGER PRIMARY KEY,
    type TEXT NOT NULL,
    title TEXT NOT NULL,
    subreddit TEXT NOT NULL,
    data BLOB NOT NULL,
    scheduled_time INTEGER NOT NULL,
    posted INTEGER NOT NULL,
    flair_id TEXT,
    error TEXT
);`

const (
	queryInsert = `INSERT INTO Queue (type, title, subreddit, data, scheduled_time, posted, flair_id)
VALUES (?, ?, ?, ?, ?, ?, ?);`

	queryAll = `SELECT id, title, subreddit, data, scheduled_time, posted, flair_id, error FROM Queue;`

	queryEligible = `SELECT id, title, subreddit, data, scheduled_time, posted, flair_id, error FROM Queue
WHERE scheduled_time < strftime('%s','now') AND posted = 0;`

	queryDelete = `DELETE FROM Queue WHERE id = ?;`

	// mark_posted clears any earlier submission error, so a retried row
	// reads back as posted rather than errored.
	queryMarkPosted = `UPDATE Queue SET posted = 1, error = NULL WHERE id = ?;`
	queryMarkError  = `UPDATE Queue SET error = ? WHERE id = ?;`
)

// kind enumerates the supported store commands. The set is closed; the
// dispatch switch in handle is exhaustive.
type kind int

const (
	kindAdd kind = iota
	kindListAll
	kindListEligible
	kindDelete
	kindMarkPosted
	kindMarkError
	kindQuit
)

func (k kind) String() string {
	switch k {
	case kindAdd:
		return "add"
	case kindListAll:
		return "list_all"
	case kindListEligible:
		return "list_eligible"
	case kindDelete:
		return "delete"
	case kindMarkPosted:
		return "mark_posted"
	case kindMarkError:
		return "mark_error"
	case kindQuit:
		return "quit"
	default:
		return "unknown"
	}
}

// reply is what the loop sends back on a command's oneshot channel. The
// loop fills the reply on every control path, so callers never wait past
// the lock timeout.
type reply struct {
	msg     string // non-empty on add validation failure; a user error, not err
	entries []post.Entry
	err     error
}

type command struct {
	kind  kind
	post  post.Post
	id    int64
	text  string // mark_error message
	reply chan reply
}

// Store serializes all database access through its command queue.
type Store struct {
	path        string
	db          *sql.DB
	cmds        chan command
	logger      *slog.Logger
	lockTimeout time.Duration
}

// Open opens (or creates) the SQLite database at path and creates the
// schema idempotently. Run must be started before commands are submitted.
func Open(path string, logger *slog.Logger) (*Store, error) {
	// Same pragma set the embedded single-node case wants: back off on
	// locks, WAL journaling, reasonable sync level.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)",
		path, int(defaultBusyTimeout.Milliseconds()))

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite at %s: %w", path, err)
	}
	// The command loop is the only user of this handle.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec(queryCreateTable); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create Queue table: %w", err)
	}

	return &Store{
		path:        path,
		db:          db,
		cmds:        make(chan command, queueCapacity),
		logger:      logger,
		lockTimeout: LockTimeout,
	}, nil
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// Run consumes commands until a quit command arrives, then closes the
// database. It is intended to run on its own goroutine; commands queued
// before quit are handled in FIFO order.
func (s *Store) Run() error {
	s.logger.Debug("store loop starting", slog.String("path", s.path))
	for cmd := range s.cmds {
		start := time.Now()
		quit := s.handle(cmd)
		metrics.ObserveCommand(cmd.kind.String(), time.Since(start))
		metrics.SetQueueDepth(len(s.cmds))
		if quit {
			s.logger.Debug("store loop stopping")
			return s.db.Close()
		}
	}
	return nil
}

// handle executes one command and always fills its reply channel.
// Reports whether the command was quit.
func (s *Store) handle(cmd command) bool {
	s.logger.Debug("store handling command", slog.String("kind", cmd.kind.String()))
	switch cmd.kind {
	case kindQuit:
		cmd.reply <- reply{}
		return true
	case kindAdd:
		msg, err := s.addPost(cmd.post)
		if err != nil {
			s.logger.Error("failed to insert post", slog.String("title", cmd.post.Title), slog.Any("err", err))
			cmd.reply <- reply{err: ErrInternal}
			return false
		}
		cmd.reply <- reply{msg: msg}
	case kindListAll:
		entries, err := s.entriesFromQuery(queryAll)
		if err != nil {
			s.logger.Error("failed to list posts", slog.Any("err", err))
			cmd.reply <- reply{err: ErrInternal}
			return false
		}
		cmd.reply <- reply{entries: entries}
	case kindListEligible:
		entries, err := s.entriesFromQuery(queryEligible)
		if err != nil {
			s.logger.Error("failed to list eligible posts", slog.Any("err", err))
			cmd.reply <- reply{err: ErrInternal}
			return false
		}
		cmd.reply <- reply{entries: entries}
	case kindDelete:
		if _, err := s.db.Exec(queryDelete, cmd.id); err != nil {
			s.logger.Error("failed to delete post", slog.Int64("id", cmd.id), slog.Any("err", err))
			cmd.reply <- reply{err: ErrInternal}
			return false
		}
		cmd.reply <- reply{}
	case kindMarkPosted:
		if _, err := s.db.Exec(queryMarkPosted, cmd.id); err != nil {
			s.logger.Error("failed to mark post as posted", slog.Int64("id", cmd.id), slog.Any("err", err))
			cmd.reply <- reply{err: ErrInternal}
			return false
		}
		cmd.reply <- reply{}
	case kindMarkError:
		if _, err := s.db.Exec(queryMarkError, cmd.text, cmd.id); err != nil {
			s.logger.Error("failed to mark post as errored",
				slog.Int64("id", cmd.id), slog.String("error_text", cmd.text), slog.Any("err", err))
			cmd.reply <- reply{err: ErrInternal}
			return false
		}
		cmd.reply <- reply{}
	}
	return false
}

// addPost validates and inserts a post. A non-empty msg is a user-facing
// validation rejection; err is an infrastructure failure.
func (s *Store) addPost(p post.Post) (msg string, err error) {
	kind, kerr := p.Data.Kind()
	if kerr != nil {
		// Clients are never expected to produce a variantless post, but
		// it is still their error, not ours.
		return "could not determine type of post to add", nil
	}
	if msg, verr := p.Validate(); verr != nil || msg != "" {
		return msg, verr
	}

	blob, err := p.Data.Encode()
	if err != nil {
		return "", err
	}
	_, err = s.db.Exec(queryInsert,
		string(kind), p.Title, p.Subreddit, blob, p.ScheduledTime, 0, nullIfEmpty(p.FlairID))
	if err != nil {
		return "", fmt.Errorf("insert post: %w", err)
	}
	return "", nil
}

func (s *Store) entriesFromQuery(query string) ([]post.Entry, error) {
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("query posts: %w", err)
	}
	defer rows.Close()

	entries := []post.Entry{}
	for rows.Next() {
		var (
			id            int64
			title         string
			subreddit     string
			blob          []byte
			scheduledTime int64
			posted        int
			flairID       sql.NullString
			errText       sql.NullString
		)
		if err := rows.Scan(&id, &title, &subreddit, &blob, &scheduledTime, &posted, &flairID, &errText); err != nil {
			return nil, fmt.Errorf("scan post row: %w", err)
		}
		data, err := post.DecodeData(blob)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", id, err)
		}

		entry := post.Entry{
			ID: id,
			Post: post.Post{
				Title:         title,
				Subreddit:     subreddit,
				ScheduledTime: scheduledTime,
				Data:          data,
				FlairID:       fromNullString(flairID),
			},
			Status: post.StatusPending,
		}
		// error wins over posted. mark_posted clears the error column,
		// so the two never disagree in practice.
		switch {
		case errText.Valid:
			entry.Status = post.StatusError
			entry.Error = errText.String
		case posted != 0:
			entry.Status = post.StatusPosted
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate post rows: %w", err)
	}
	return entries, nil
}

// submit enqueues a command and waits for its reply, each wait bounded by
// the lock timeout. The reply channel is buffered, so a late reply after
// a caller timeout never blocks the loop.
func (s *Store) submit(cmd command) (reply, error) {
	cmd.reply = make(chan reply, 1)
	metrics.SetQueueDepth(len(s.cmds))

	timer := time.NewTimer(s.lockTimeout)
	defer timer.Stop()
	select {
	case s.cmds <- cmd:
	case <-timer.C:
		return reply{}, ErrTimeout
	}

	if !timer.Stop() {
		<-timer.C
	}
	timer.Reset(s.lockTimeout)
	select {
	case r := <-cmd.reply:
		return r, r.err
	case <-timer.C:
		return reply{}, ErrTimeout
	}
}

// Add validates and inserts p. The returned string is empty on success
// and a human-readable rejection otherwise; error reports infrastructure
// failure (including queue timeout).
func (s *Store) Add(p post.Post) (string, error) {
	r, err := s.submit(command{kind: kindAdd, post: p})
	return r.msg, err
}

// ListAll returns every entry in the queue.
func (s *Store) ListAll() ([]post.Entry, error) {
	r, err := s.submit(command{kind: kindListAll})
	return r.entries, err
}

// ListEligible returns entries whose scheduled time has passed and which
// have not been posted, including previously errored ones.
func (s *Store) ListEligible() ([]post.Entry, error) {
	r, err := s.submit(command{kind: kindListEligible})
	return r.entries, err
}

// Delete removes the entry with the given id. Deleting an absent id is a
// no-op.
func (s *Store) Delete(id int64) error {
	_, err := s.submit(command{kind: kindDelete, id: id})
	return err
}

// MarkPosted flips the posted flag for id. Idempotent; a missing id is a
// no-op update.
func (s *Store) MarkPosted(id int64) error {
	_, err := s.submit(command{kind: kindMarkPosted, id: id})
	return err
}

// MarkError records a submission failure message for id. The entry stays
// eligible and will be retried.
func (s *Store) MarkError(id int64, text string) error {
	_, err := s.submit(command{kind: kindMarkError, id: id, text: text})
	return err
}

// Quit stops the command loop and closes the database. Commands already
// queued are drained first.
func (s *Store) Quit() error {
	_, err := s.submit(command{kind: kindQuit})
	return err
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func fromNullString(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}
