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

// Package poster runs the periodic dispatch loop: it scans the queue for
// entries whose scheduled time has passed and submits each one, recording
// the outcome back into the queue. Submission is at-least-once; an entry
// that fails stays eligible and is retried on a later pass.
package poster

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"reddit-scheduler/internal/metrics"
	"reddit-scheduler/internal/reddit"
	"reddit-scheduler/pkg/post"
)

// DefaultScratchDir is where image payloads are written out before upload.
const DefaultScratchDir = "/tmp/reddit-scheduler"

// Submitter is the remote capability the poster drives. Satisfied by
// *reddit.Client.
type Submitter interface {
	SubmitText(ctx context.Context, subreddit, title, body, flairID string) error
	SubmitPoll(ctx context.Context, subreddit, title string, options []string, selftext string, durationDays int32, flairID string) error
	SubmitImage(ctx context.Context, subreddit, title, imagePath string, nsfw bool, flairID string) error
	SubmitURL(ctx context.Context, subreddit, title, link, flairID string) error
}

// Queue is the slice of the store the poster needs.
type Queue interface {
	ListEligible() ([]post.Entry, error)
	MarkPosted(id int64) error
	MarkError(id int64, text string) error
}

// Config holds the poster's tunables.
type Config struct {
	// Interval between queue scans.
	Interval time.Duration
	// DryRun logs what would be submitted and marks the entry posted
	// without touching the remote API.
	DryRun bool
	// ScratchDir for materialized image files. Empty means
	// DefaultScratchDir.
	ScratchDir string
}

// Poster owns the dispatch loop.
type Poster struct {
	cfg       Config
	queue     Queue
	submitter Submitter
	logger    *slog.Logger
}

func New(cfg Config, queue Queue, submitter Submitter, logger *slog.Logger) *Poster {
	if cfg.ScratchDir == "" {
		cfg.ScratchDir = DefaultScratchDir
	}
	return &Poster{
		cfg:       cfg,
		queue:     queue,
		submitter: submitter,
		logger:    logger.With(slog.String("component", "poster")),
	}
}

// Run scans immediately, then on every tick, until the context is
// canceled. It only returns the context's cause; per-entry failures are
// handled inside the pass.
func (p *Poster) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	p.step(ctx)
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("poster stopping")
			return nil
		case <-ticker.C:
			p.step(ctx)
		}
	}
}

// step runs one dispatch pass. A failure on one entry never prevents the
// remaining entries from being attempted.
func (p *Poster) step(ctx context.Context) {
	entries, err := p.queue.ListEligible()
	if err != nil {
		p.logger.Error("listing eligible posts failed", slog.Any("error", err))
		return
	}
	if len(entries) == 0 {
		return
	}
	p.logger.Debug("dispatch pass", slog.Int("eligible", len(entries)))

	for _, entry := range entries {
		if ctx.Err() != nil {
			return
		}
		p.dispatch(ctx, entry)
	}
}

func (p *Poster) dispatch(ctx context.Context, entry post.Entry) {
	kind, err := entry.Post.Data.Kind()
	if err != nil {
		// A row with no decodable variant cannot ever succeed; park it
		// with an error so it stops being retried blindly.
		p.logger.Error("undecodable queue entry", slog.Int64("id", entry.ID), slog.Any("error", err))
		p.markError(entry.ID, "-> INTERNAL: "+err.Error())
		metrics.ObserveSubmission("unknown", metrics.OutcomeError)
		return
	}
	logger := p.logger.With(
		slog.Int64("id", entry.ID),
		slog.String("type", string(kind)),
		slog.String("subreddit", entry.Post.Subreddit),
	)

	if p.cfg.DryRun {
		logger.Info("dry run, would have submitted", slog.String("title", entry.Post.Title))
		p.markPosted(entry.ID)
		metrics.ObserveSubmission(string(kind), metrics.OutcomeDryRun)
		return
	}

	err = p.submit(ctx, entry.Post, kind)
	if err == nil {
		logger.Info("submitted", slog.String("title", entry.Post.Title))
		p.markPosted(entry.ID)
		metrics.ObserveSubmission(string(kind), metrics.OutcomeOK)
		return
	}

	metrics.ObserveSubmission(string(kind), metrics.OutcomeError)
	var apiErr *reddit.APIError
	if errors.As(err, &apiErr) {
		logger.Warn("submission rejected", slog.Any("error", apiErr))
		p.markError(entry.ID, formatAPIError(apiErr))
		return
	}
	// Transient failure (network, token endpoint down). The entry stays
	// untouched and eligible, so the next pass retries it.
	logger.Error("submission failed", slog.Any("error", err))
}

func (p *Poster) submit(ctx context.Context, pst post.Post, kind post.Kind) error {
	switch kind {
	case post.KindText:
		return p.submitter.SubmitText(ctx, pst.Subreddit, pst.Title, pst.Data.Text.Body, pst.FlairID)
	case post.KindPoll:
		poll := pst.Data.Poll
		return p.submitter.SubmitPoll(ctx, pst.Subreddit, pst.Title, poll.Options, poll.Selftext, poll.DurationDays, pst.FlairID)
	case post.KindImage:
		img := pst.Data.Image
		path, err := p.materializeImage(img)
		if err != nil {
			return err
		}
		return p.submitter.SubmitImage(ctx, pst.Subreddit, pst.Title, path, img.NSFW, pst.FlairID)
	case post.KindURL:
		return p.submitter.SubmitURL(ctx, pst.Subreddit, pst.Title, pst.Data.URL.URL, pst.FlairID)
	}
	return fmt.Errorf("no submit handler for post type %q", kind)
}

// materializeImage writes the stored image bytes to a scratch file the
// upload path can read. The file is left behind for inspection.
func (p *Poster) materializeImage(img *post.ImageData) (string, error) {
	if err := os.MkdirAll(p.cfg.ScratchDir, 0o700); err != nil {
		return "", fmt.Errorf("create scratch dir: %w", err)
	}
	path := filepath.Join(p.cfg.ScratchDir, uuid.NewString()+"."+img.Extension)
	if err := os.WriteFile(path, img.ImageBytes, 0o600); err != nil {
		return "", fmt.Errorf("write scratch image: %w", err)
	}
	return path, nil
}

func (p *Poster) markPosted(id int64) {
	if err := p.queue.MarkPosted(id); err != nil {
		p.logger.Error("mark_posted failed", slog.Int64("id", id), slog.Any("error", err))
	}
}

func (p *Poster) markError(id int64, text string) {
	if err := p.queue.MarkError(id, text); err != nil {
		p.logger.Error("mark_error failed", slog.Int64("id", id), slog.Any("error", err))
	}
}

// formatAPIError renders the structured remote errors into the shape the
// CLI shows users, one "-> TYPE: message" line per item.
func formatAPIError(apiErr *reddit.APIError) string {
	lines := make([]string, 0, len(apiErr.Items))
	for _, item := range apiErr.Items {
		lines = append(lines, fmt.Sprintf("-> %s: %s", item.Type, item.Message))
	}
	return strings.Join(lines, "\n")
}
