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

// End-to-end exercise of the daemon components wired the way main wires
// them: store loop, poster, and RPC server over a real TCP socket.

package integration

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reddit-scheduler/internal/poster"
	"reddit-scheduler/internal/reddit"
	"reddit-scheduler/internal/rpc"
	"reddit-scheduler/internal/store"
	"reddit-scheduler/pkg/post"
)

// recordingSubmitter stands in for the remote API.
type recordingSubmitter struct {
	mu        sync.Mutex
	submitted []string
	failWith  error
}

func (s *recordingSubmitter) record(title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}
	s.submitted = append(s.submitted, title)
	return nil
}

func (s *recordingSubmitter) setFailure(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWith = err
}

func (s *recordingSubmitter) titles() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.submitted...)
}

func (s *recordingSubmitter) SubmitText(_ context.Context, _, title, _, _ string) error {
	return s.record(title)
}

func (s *recordingSubmitter) SubmitPoll(_ context.Context, _, title string, _ []string, _ string, _ int32, _ string) error {
	return s.record(title)
}

func (s *recordingSubmitter) SubmitImage(_ context.Context, _, title, _ string, _ bool, _ string) error {
	return s.record(title)
}

func (s *recordingSubmitter) SubmitURL(_ context.Context, _, title, _, _ string) error {
	return s.record(title)
}

func (s *recordingSubmitter) UserSelectableFlairs(_ context.Context, _ string) ([]post.Flair, error) {
	return []post.Flair{{ID: "f1", Text: "Discussion"}}, nil
}

type testDaemon struct {
	client    *rpc.Client
	submitter *recordingSubmitter
}

// setupDaemon wires store, poster, and rpc server like the daemon's
// bootstrap does and returns a connected client.
func setupDaemon(t *testing.T) *testDaemon {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	st, err := store.Open(filepath.Join(t.TempDir(), "queue.sqlite"), logger)
	require.NoError(t, err)
	storeDone := make(chan error, 1)
	go func() { storeDone <- st.Run() }()

	submitter := &recordingSubmitter{}
	p := poster.New(poster.Config{
		Interval:   10 * time.Millisecond,
		ScratchDir: t.TempDir(),
	}, st, submitter, logger)

	server := rpc.NewServer(st, submitter, logger)
	require.NoError(t, server.Listen(0))

	ctx, cancel := context.WithCancel(context.Background())
	posterDone := make(chan error, 1)
	serveDone := make(chan error, 1)
	go func() { posterDone <- p.Run(ctx) }()
	go func() { serveDone <- server.Serve(ctx) }()

	client, err := rpc.DialAddr(server.Addr().String())
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, client.Close())
		cancel()
		require.NoError(t, <-serveDone)
		require.NoError(t, <-posterDone)
		require.NoError(t, st.Quit())
		require.NoError(t, <-storeDone)
	})
	return &testDaemon{client: client, submitter: submitter}
}

func waitForStatus(t *testing.T, client *rpc.Client, id int64, want post.Status) post.Entry {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		entries, err := client.ListPosts()
		require.NoError(t, err)
		for _, e := range entries {
			if e.ID == id && e.Status == want {
				return e
			}
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("post %d never reached status %s", id, want)
	return post.Entry{}
}

func TestScheduledPostIsSubmitted(t *testing.T) {
	d := setupDaemon(t)

	require.NoError(t, d.client.SchedulePost(post.Post{
		Title:         "due now",
		Subreddit:     "golang",
		ScheduledTime: time.Now().Add(-time.Minute).Unix(),
		Data:          post.Data{Text: &post.TextData{Body: "b"}},
	}))

	e := waitForStatus(t, d.client, 1, post.StatusPosted)
	assert.Empty(t, e.Error)
	assert.Equal(t, []string{"due now"}, d.submitter.titles())
}

func TestFuturePostStaysPending(t *testing.T) {
	d := setupDaemon(t)

	require.NoError(t, d.client.SchedulePost(post.Post{
		Title:         "later",
		Subreddit:     "golang",
		ScheduledTime: time.Now().Add(time.Hour).Unix(),
		Data:          post.Data{Text: &post.TextData{Body: "b"}},
	}))

	// Give the poster a few passes.
	time.Sleep(50 * time.Millisecond)
	entries, err := d.client.ListPosts()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, post.StatusPending, entries[0].Status)
	assert.Empty(t, d.submitter.titles())
}

func TestRejectedPostRecoversAfterRetry(t *testing.T) {
	d := setupDaemon(t)
	d.submitter.setFailure(&reddit.APIError{Items: []reddit.APIErrorItem{
		{Type: "RATELIMIT", Message: "you are doing that too much"},
	}})

	require.NoError(t, d.client.SchedulePost(post.Post{
		Title:         "bumpy",
		Subreddit:     "golang",
		ScheduledTime: time.Now().Add(-time.Minute).Unix(),
		Data:          post.Data{Text: &post.TextData{Body: "b"}},
	}))

	e := waitForStatus(t, d.client, 1, post.StatusError)
	assert.Equal(t, "-> RATELIMIT: you are doing that too much", e.Error)

	// The remote recovers; the next pass retries and succeeds.
	d.submitter.setFailure(nil)
	e = waitForStatus(t, d.client, 1, post.StatusPosted)
	assert.Empty(t, e.Error, "the stale error is cleared on success")
}

func TestFlairsOverRPC(t *testing.T) {
	d := setupDaemon(t)

	flairs, err := d.client.ListFlairs("golang")
	require.NoError(t, err)
	assert.Equal(t, []post.Flair{{ID: "f1", Text: "Discussion"}}, flairs)
}
