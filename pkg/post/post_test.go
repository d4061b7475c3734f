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

package post

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func textPost(title, subreddit string, when int64) Post {
	return Post{
		Title:         title,
		Subreddit:     subreddit,
		ScheduledTime: when,
		Data:          Data{Text: &TextData{Body: "b"}},
	}
}

func TestDataKind(t *testing.T) {
	tests := []struct {
		name string
		data Data
		want Kind
	}{
		{"text", Data{Text: &TextData{Body: "b"}}, KindText},
		{"poll", Data{Poll: &PollData{Options: []string{"a", "b"}}}, KindPoll},
		{"image", Data{Image: &ImageData{ImageBytes: []byte{1}, Extension: "png"}}, KindImage},
		{"url", Data{URL: &URLData{URL: "https://example.com"}}, KindURL},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.data.Kind()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDataKindNoVariant(t *testing.T) {
	_, err := Data{}.Kind()
	assert.ErrorIs(t, err, ErrNoVariant)
}

func TestDataKindMultipleVariants(t *testing.T) {
	d := Data{
		Text: &TextData{Body: "b"},
		URL:  &URLData{URL: "https://example.com"},
	}
	_, err := d.Kind()
	assert.Error(t, err)
}

func TestDataRoundTrip(t *testing.T) {
	variants := []Data{
		{Text: &TextData{Body: "hello\nworld"}},
		{Poll: &PollData{Selftext: "x", DurationDays: 2, Options: []string{"a", "b", "c"}}},
		{Image: &ImageData{ImageBytes: []byte{0x89, 0x50, 0x4e, 0x47}, Extension: "png", NSFW: true}},
		{URL: &URLData{URL: "https://example.com/a?b=c"}},
	}
	for _, d := range variants {
		blob, err := d.Encode()
		require.NoError(t, err)
		got, err := DecodeData(blob)
		require.NoError(t, err)
		assert.Equal(t, d, got)
	}
}

func TestDecodeDataIgnoresUnknownFields(t *testing.T) {
	blob := []byte(`{"text":{"body":"b","future_field":1},"other_future":true}`)
	d, err := DecodeData(blob)
	require.NoError(t, err)
	require.NotNil(t, d.Text)
	assert.Equal(t, "b", d.Text.Body)
}

func TestEncodeRejectsNoVariant(t *testing.T) {
	_, err := Data{}.Encode()
	assert.ErrorIs(t, err, ErrNoVariant)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		post Post
		want string
	}{
		{"ok", textPost("T", "s", 1), ""},
		{"missing title", textPost("", "s", 1), MsgInvalidPost},
		{"missing subreddit", textPost("T", "", 1), MsgInvalidPost},
		{"zero time", textPost("T", "s", 0), MsgInvalidPost},
		{
			"empty image",
			Post{Title: "T", Subreddit: "s", ScheduledTime: 1,
				Data: Data{Image: &ImageData{ImageBytes: nil, Extension: "png"}}},
			MsgEmptyImage,
		},
		{
			"one poll option",
			Post{Title: "T", Subreddit: "s", ScheduledTime: 1,
				Data: Data{Poll: &PollData{Options: []string{"a"}}}},
			MsgTooFewOptions,
		},
		{
			"empty url",
			Post{Title: "T", Subreddit: "s", ScheduledTime: 1,
				Data: Data{URL: &URLData{}}},
			MsgInvalidPost,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := tt.post.Validate()
			require.NoError(t, err)
			assert.Equal(t, tt.want, msg)
		})
	}
}

func TestValidateNoVariantIsError(t *testing.T) {
	p := Post{Title: "T", Subreddit: "s", ScheduledTime: 1}
	_, err := p.Validate()
	assert.ErrorIs(t, err, ErrNoVariant)
}
