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
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reddit-scheduler/internal/store"
	"reddit-scheduler/pkg/post"
)

type fakeFlairs struct {
	flairs []post.Flair
	err    error
}

func (f *fakeFlairs) UserSelectableFlairs(_ context.Context, _ string) ([]post.Flair, error) {
	return f.flairs, f.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestServer wires a real store and a fake flair lister behind a
// listener on an ephemeral port, and returns a connected client.
func newTestServer(t *testing.T, flairs FlairLister) *Client {
	t.Helper()

	s, err := store.Open(filepath.Join(t.TempDir(), "test.sqlite"), testLogger())
	require.NoError(t, err)
	storeDone := make(chan error, 1)
	go func() { storeDone <- s.Run() }()

	srv := NewServer(s, flairs, testLogger())
	require.NoError(t, srv.Listen(0))

	ctx, cancel := context.WithCancel(context.Background())
	serveDone := make(chan error, 1)
	go func() { serveDone <- srv.Serve(ctx) }()

	client, err := DialAddr(srv.Addr().String())
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, client.Close())
		cancel()
		select {
		case err := <-serveDone:
			require.NoError(t, err)
		case <-time.After(time.Second):
			t.Error("server did not stop")
		}
		require.NoError(t, s.Quit())
		require.NoError(t, <-storeDone)
	})
	return client
}

func testPost(title string) post.Post {
	return post.Post{
		Title:         title,
		Subreddit:     "golang",
		ScheduledTime: 123,
		Data:          post.Data{Text: &post.TextData{Body: "hello"}},
	}
}

func TestPing(t *testing.T) {
	client := newTestServer(t, &fakeFlairs{})
	require.NoError(t, client.Ping())
}

func TestScheduleListDeleteRoundTrip(t *testing.T) {
	client := newTestServer(t, &fakeFlairs{})

	require.NoError(t, client.SchedulePost(testPost("first")))
	require.NoError(t, client.SchedulePost(testPost("second")))

	entries, err := client.ListPosts()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "first", entries[0].Post.Title)
	assert.Equal(t, post.StatusPending, entries[0].Status)
	require.NotNil(t, entries[1].Post.Data.Text)
	assert.Equal(t, "hello", entries[1].Post.Data.Text.Body)

	require.NoError(t, client.DeletePost(entries[0].ID))
	entries, err = client.ListPosts()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "second", entries[0].Post.Title)
}

func TestScheduleValidationMessageReachesClient(t *testing.T) {
	client := newTestServer(t, &fakeFlairs{})

	p := testPost("ok title")
	p.ScheduledTime = 0
	err := client.SchedulePost(p)
	require.Error(t, err)
	assert.Equal(t, post.MsgInvalidPost, err.Error())

	entries, err := client.ListPosts()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestListFlairs(t *testing.T) {
	client := newTestServer(t, &fakeFlairs{flairs: []post.Flair{
		{ID: "f1", Text: "Discussion"},
	}})

	flairs, err := client.ListFlairs("golang")
	require.NoError(t, err)
	assert.Equal(t, []post.Flair{{ID: "f1", Text: "Discussion"}}, flairs)
}

func TestListFlairsRemoteFailureYieldsEmptyList(t *testing.T) {
	client := newTestServer(t, &fakeFlairs{err: errors.New("upstream down")})

	flairs, err := client.ListFlairs("golang")
	require.NoError(t, err, "remote failure must not fail the rpc")
	assert.Empty(t, flairs)
}

func TestUnknownOperation(t *testing.T) {
	client := newTestServer(t, &fakeFlairs{})

	err := client.call("frobnicate", nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown operation")
}

func TestUnknownEditOperation(t *testing.T) {
	client := newTestServer(t, &fakeFlairs{})

	err := client.call(OpEditPost, EditArgs{Operation: "promote", ID: 1}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown edit operation")
}

func TestImageFrameRoundTrip(t *testing.T) {
	client := newTestServer(t, &fakeFlairs{})

	payload := make([]byte, 1<<20)
	for i := range payload {
		payload[i] = byte(i)
	}
	p := post.Post{
		Title:         "big image",
		Subreddit:     "pics",
		ScheduledTime: 123,
		Data:          post.Data{Image: &post.ImageData{ImageBytes: payload, Extension: "png"}},
	}
	require.NoError(t, client.SchedulePost(p))

	entries, err := client.ListPosts()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.NotNil(t, entries[0].Post.Data.Image)
	assert.Equal(t, payload, entries[0].Post.Data.Image.ImageBytes)
}
