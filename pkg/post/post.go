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

// Package post contains the shared data model for scheduled posts: the
// Post intent submitted by clients, its tagged data variants, and the
// persisted Entry with its derived status. The types are used by the
// store, the poster, the RPC layer, and the CLI.
package post

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Status is the lifecycle state of a queued post.
// Transitions are pending → posted or pending → error → posted;
// posted is terminal.
type Status string

const (
	StatusUnknown Status = "unknown"
	StatusPending Status = "pending"
	StatusPosted  Status = "posted"
	StatusError   Status = "error"
)

// Valid reports whether the status is one of the allowed states.
func (s Status) Valid() bool {
	switch s {
	case StatusUnknown, StatusPending, StatusPosted, StatusError:
		return true
	default:
		return false
	}
}

// String returns the string value of the Status.
func (s Status) String() string { return string(s) }

// Kind is the denormalized tag of a post's data variant, persisted in the
// "type" column for ad-hoc queries.
type Kind string

const (
	KindText  Kind = "text"
	KindPoll  Kind = "poll"
	KindImage Kind = "image"
	KindURL   Kind = "url"
)

// TextData is the body of a self post.
type TextData struct {
	Body string `json:"body"`
}

// PollData describes a poll post. DurationDays of 0 means "use the remote
// default". Options must contain at least two entries.
type PollData struct {
	Selftext     string   `json:"selftext"`
	DurationDays int32    `json:"duration_days"`
	Options      []string `json:"options"`
}

// ImageData carries the raw image bytes to upload, the file extension
// (without dot), and the NSFW marker.
type ImageData struct {
	ImageBytes []byte `json:"image_bytes"`
	Extension  string `json:"extension"`
	NSFW       bool   `json:"nsfw"`
}

// URLData is a plain link post.
type URLData struct {
	URL string `json:"url"`
}

// Data is the tagged union of post content. Exactly one field must be set.
// It is persisted as an opaque JSON blob in the "data" column; unknown
// fields in old blobs are ignored on decode, which keeps the encoding
// forward compatible.
type Data struct {
	Text  *TextData  `json:"text,omitempty"`
	Poll  *PollData  `json:"poll,omitempty"`
	Image *ImageData `json:"image,omitempty"`
	URL   *URLData   `json:"url,omitempty"`
}

// ErrNoVariant indicates a Data with no variant set.
var ErrNoVariant = errors.New("post data has no variant set")

// Kind returns the tag of the variant present, or ErrNoVariant.
// A Data with more than one variant set is rejected as well.
func (d Data) Kind() (Kind, error) {
	var (
		kind Kind
		n    int
	)
	if d.Text != nil {
		kind, n = KindText, n+1
	}
	if d.Poll != nil {
		kind, n = KindPoll, n+1
	}
	if d.Image != nil {
		kind, n = KindImage, n+1
	}
	if d.URL != nil {
		kind, n = KindURL, n+1
	}
	switch n {
	case 0:
		return "", ErrNoVariant
	case 1:
		return kind, nil
	default:
		return "", fmt.Errorf("post data has %d variants set, want exactly 1", n)
	}
}

// Encode serializes the data variant to its stable blob form.
func (d Data) Encode() ([]byte, error) {
	if _, err := d.Kind(); err != nil {
		return nil, err
	}
	b, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("encode post data: %w", err)
	}
	return b, nil
}

// DecodeData deserializes a blob produced by Encode.
func DecodeData(b []byte) (Data, error) {
	var d Data
	if err := json.Unmarshal(b, &d); err != nil {
		return Data{}, fmt.Errorf("decode post data: %w", err)
	}
	return d, nil
}

// Post is a user-authored content intent.
type Post struct {
	Title         string `json:"title"`
	Subreddit     string `json:"subreddit"`
	ScheduledTime int64  `json:"scheduled_time"`
	Data          Data   `json:"data"`
	FlairID       string `json:"flair_id,omitempty"`
	FlairText     string `json:"flair_text,omitempty"`
}

// Validation messages returned verbatim to clients. These are user errors,
// not infrastructure errors.
const (
	MsgInvalidPost   = "invalid post, client should not have sent this"
	MsgEmptyImage    = "cannot post empty image post"
	MsgTooFewOptions = "poll posts need at least 2 options"
)

// Validate checks a Post for completeness. It returns a non-empty,
// human-readable message when the post must be rejected and "" when the
// post is acceptable. A Data with no variant at all is reported through
// the error return instead, since clients are never expected to produce it.
func (p Post) Validate() (string, error) {
	kind, err := p.Data.Kind()
	if err != nil {
		return "", err
	}
	if p.Title == "" || p.Subreddit == "" || p.ScheduledTime == 0 {
		return MsgInvalidPost, nil
	}
	switch kind {
	case KindImage:
		if len(p.Data.Image.ImageBytes) == 0 {
			return MsgEmptyImage, nil
		}
	case KindPoll:
		if len(p.Data.Poll.Options) < 2 {
			return MsgTooFewOptions, nil
		}
	case KindURL:
		if p.Data.URL.URL == "" {
			return MsgInvalidPost, nil
		}
	}
	return "", nil
}

// Entry is a Post plus persistence metadata. Status is derived at read
// time from the (posted, error) columns; Error is populated only when
// Status is StatusError.
type Entry struct {
	ID     int64  `json:"id"`
	Post   Post   `json:"post"`
	Status Status `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Flair is a community-specific selectable label.
type Flair struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}
