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
// GNU Affero General PubIic License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package reddit implements the remote-content-API capability consumed
// by the poster and the flair-listing RPC path: script-app OAuth, the
// four submit operations, and user-selectable flair listing. The client
// is safe for concurrent use.
package reddit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"reddit-scheduler/pkg/post"
)

const (
	defaultBaseURL = "https://oauth.reddit.com"
	defaultAuthURL = "https://www.reddit.com"

	// Reddit's UI default for poll duration, used when the post leaves
	// it unspecified.
	defaultPollDurationDays = 3

	tokenExpirySlack = 30 * time.Second
)

// Credentials identify a script-type Reddit OAuth application and the
// account it posts as.
type Credentials struct {
	Username     string
	Password     string
	ClientID     string
	ClientSecret string
}

// APIErrorItem is one structured error returned by the Reddit API.
type APIErrorItem struct {
	Type    string
	Message string
}

// APIError is the structured failure surfaced by submit operations. The
// poster persists its items into the entry's error column.
type APIError struct {
	Items []APIErrorItem
}

func (e *APIError) Error() string {
	parts := make([]string, 0, len(e.Items))
	for _, item := range e.Items {
		parts = append(parts, fmt.Sprintf("%s: %s", item.Type, item.Message))
	}
	return "reddit api error: " + strings.Join(parts, "; ")
}

// Client talks to the Reddit API on behalf of one account.
type Client struct {
	creds     Credentials
	userAgent string
	httpc     *http.Client
	baseURL   string // oauth API host
	authURL   string // token endpoint host

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// New builds a client. The user agent follows Reddit's recommended
// format for script apps.
func New(creds Credentials) *Client {
	return &Client{
		creds:     creds,
		userAgent: fmt.Sprintf("desktop:%s:v0.1.0 (by /u/%s)", creds.ClientID, creds.Username),
		httpc:     &http.Client{Timeout: 30 * time.Second},
		baseURL:   defaultBaseURL,
		authURL:   defaultAuthURL,
	}
}

// SubmitText submits a self post.
func (c *Client) SubmitText(ctx context.Context, subreddit, title, body, flairID string) error {
	form := url.Values{
		"kind":  {"self"},
		"sr":    {subreddit},
		"title": {title},
		"text":  {body},
	}
	if flairID != "" {
		form.Set("flair_id", flairID)
	}
	_, err := c.postForm(ctx, "/api/submit", form)
	return err
}

// SubmitURL submits a link post.
func (c *Client) SubmitURL(ctx context.Context, subreddit, title, link, flairID string) error {
	form := url.Values{
		"kind":  {"link"},
		"sr":    {subreddit},
		"title": {title},
		"url":   {link},
	}
	if flairID != "" {
		form.Set("flair_id", flairID)
	}
	_, err := c.postForm(ctx, "/api/submit", form)
	return err
}

// SubmitPoll submits a poll post. durationDays of 0 falls back to the
// remote default.
func (c *Client) SubmitPoll(ctx context.Context, subreddit, title string, options []string, selftext string, durationDays int32, flairID string) error {
	if durationDays == 0 {
		durationDays = defaultPollDurationDays
	}
	payload := map[string]any{
		"sr":            subreddit,
		"title":         title,
		"text":          selftext,
		"options":       options,
		"duration_days": durationDays,
		"api_type":      "json",
	}
	if flairID != "" {
		payload["flair_id"] = flairID
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode poll payload: %w", err)
	}
	_, err = c.postJSON(ctx, "/api/submit_poll_post", body)
	return err
}

// SubmitImage uploads the image at imagePath to Reddit's media store and
// submits it as an image post.
func (c *Client) SubmitImage(ctx context.Context, subreddit, title, imagePath string, nsfw bool, flairID string) error {
	assetURL, err := c.uploadMedia(ctx, imagePath)
	if err != nil {
		return err
	}

	form := url.Values{
		"kind":  {"image"},
		"sr":    {subreddit},
		"title": {title},
		"url":   {assetURL},
	}
	if nsfw {
		form.Set("nsfw", "true")
	}
	if flairID != "" {
		form.Set("flair_id", flairID)
	}
	_, err = c.postForm(ctx, "/api/submit", form)
	return err
}

// UserSelectableFlairs lists the link flair templates the account may
// choose in a subreddit. Templates with empty display text are skipped.
func (c *Client) UserSelectableFlairs(ctx context.Context, subreddit string) ([]post.Flair, error) {
	body, err := c.get(ctx, "/r/"+subreddit+"/api/link_flair_v2?raw_json=1")
	if err != nil {
		return nil, err
	}

	var templates []struct {
		ID   string `json:"id"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(body, &templates); err != nil {
		return nil, fmt.Errorf("decode flair list for r/%s: %w", subreddit, err)
	}

	flairs := make([]post.Flair, 0, len(templates))
	for _, tpl := range templates {
		if tpl.Text == "" {
			continue
		}
		flairs = append(flairs, post.Flair{ID: tpl.ID, Text: tpl.Text})
	}
	return flairs, nil
}

// ------------- token handling -------------

type tokenResponse struct {
	AccessToken string  `json:"access_token"`
	ExpiresIn   float64 `json:"expires_in"`
	Err         string  `json:"error"`
}

// accessToken returns a cached bearer token, fetching a fresh one via the
// password grant when missing or near expiry. Transient failures are
// retried with exponential backoff.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" && time.Now().Before(c.tokenExpiry.Add(-tokenExpirySlack)) {
		return c.token, nil
	}

	fetch := func() (string, error) {
		form := url.Values{
			"grant_type": {"password"},
			"username":   {c.creds.Username},
			"password":   {c.creds.Password},
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			c.authURL+"/api/v1/access_token", strings.NewReader(form.Encode()))
		if err != nil {
			return "", backoff.Permanent(err)
		}
		req.SetBasicAuth(c.creds.ClientID, c.creds.ClientSecret)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("User-Agent", c.userAgent)

		resp, err := c.httpc.Do(req)
		if err != nil {
			return "", err
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return "", err
		}
		if resp.StatusCode >= 500 {
			return "", fmt.Errorf("token endpoint returned %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			return "", backoff.Permanent(fmt.Errorf("token endpoint returned %d: %s", resp.StatusCode, body))
		}
		var tok tokenResponse
		if err := json.Unmarshal(body, &tok); err != nil {
			return "", backoff.Permanent(fmt.Errorf("decode token response: %w", err))
		}
		if tok.Err != "" || tok.AccessToken == "" {
			return "", backoff.Permanent(fmt.Errorf("token request rejected: %q", tok.Err))
		}
		c.tokenExpiry = time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)
		return tok.AccessToken, nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	token, err := backoff.RetryWithData(fetch, policy)
	if err != nil {
		return "", fmt.Errorf("fetch access token: %w", err)
	}
	c.token = token
	return token, nil
}

// ------------- transport helpers -------------

// jsonEnvelope is Reddit's api_type=json response wrapper. Errors come
// as [type, message, field] triples.
type jsonEnvelope struct {
	JSON struct {
		Errors [][]any         `json:"errors"`
		Data   json.RawMessage `json:"data"`
	} `json:"json"`
}

func (env *jsonEnvelope) apiError() *APIError {
	if len(env.JSON.Errors) == 0 {
		return nil
	}
	apiErr := &APIError{}
	for _, triple := range env.JSON.Errors {
		var item APIErrorItem
		if len(triple) > 0 {
			item.Type = fmt.Sprint(triple[0])
		}
		if len(triple) > 1 && triple[1] != nil {
			item.Message = fmt.Sprint(triple[1])
		}
		apiErr.Items = append(apiErr.Items, item)
	}
	return apiErr
}

func (c *Client) postForm(ctx context.Context, path string, form url.Values) (*jsonEnvelope, error) {
	form.Set("api_type", "json")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.doEnvelope(ctx, req)
}

func (c *Client) postJSON(ctx context.Context, path string, body []byte) (*jsonEnvelope, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.doEnvelope(ctx, req)
}

func (c *Client) doEnvelope(ctx context.Context, req *http.Request) (*jsonEnvelope, error) {
	body, err := c.do(ctx, req)
	if err != nil {
		return nil, err
	}
	var env jsonEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode api response: %w", err)
	}
	if apiErr := env.apiError(); apiErr != nil {
		return nil, apiErr
	}
	return &env, nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	return c.do(ctx, req)
}

func (c *Client) do(ctx context.Context, req *http.Request) ([]byte, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s %s returned %d: %s", req.Method, req.URL.Path, resp.StatusCode, truncate(body, 256))
	}
	return body, nil
}

// ------------- media upload -------------

type mediaLease struct {
	Args struct {
		Action string `json:"action"`
		Fields []struct {
			Name  string `json:"name"`
			Value string `json:"value"`
		} `json:"fields"`
	} `json:"args"`
	Asset struct {
		AssetID string `json:"asset_id"`
	} `json:"asset"`
}

// uploadMedia obtains an upload lease for the file and pushes it to the
// returned storage endpoint, mirroring what Reddit's own clients do.
// It returns the asset URL to reference from the submit call.
func (c *Client) uploadMedia(ctx context.Context, imagePath string) (string, error) {
	mimetype := mime.TypeByExtension(filepath.Ext(imagePath))
	if mimetype == "" {
		mimetype = "application/octet-stream"
	}
	form := url.Values{
		"filepath": {filepath.Base(imagePath)},
		"mimetype": {mimetype},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/media/asset.json", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	body, err := c.do(ctx, req)
	if err != nil {
		return "", fmt.Errorf("request media lease: %w", err)
	}

	var lease mediaLease
	if err := json.Unmarshal(body, &lease); err != nil {
		return "", fmt.Errorf("decode media lease: %w", err)
	}
	action := lease.Args.Action
	if strings.HasPrefix(action, "//") {
		action = "https:" + action
	}

	file, err := os.Open(imagePath)
	if err != nil {
		return "", fmt.Errorf("open image %s: %w", imagePath, err)
	}
	defer file.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	var key string
	for _, field := range lease.Args.Fields {
		if field.Name == "key" {
			key = field.Value
		}
		if err := writer.WriteField(field.Name, field.Value); err != nil {
			return "", err
		}
	}
	part, err := writer.CreateFormFile("file", filepath.Base(imagePath))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", fmt.Errorf("read image %s: %w", imagePath, err)
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	upReq, err := http.NewRequestWithContext(ctx, http.MethodPost, action, &buf)
	if err != nil {
		return "", err
	}
	upReq.Header.Set("Content-Type", writer.FormDataContentType())
	upReq.Header.Set("User-Agent", c.userAgent)
	resp, err := c.httpc.Do(upReq)
	if err != nil {
		return "", fmt.Errorf("upload image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("media upload returned %d", resp.StatusCode)
	}

	if key == "" {
		return "", fmt.Errorf("media lease missing key field for asset %s", lease.Asset.AssetID)
	}
	return action + "/" + key, nil
}

func truncate(b []byte, max int) string {
	if len(b) <= max {
		return string(b)
	}
	return string(b[:max]) + "... (" + strconv.Itoa(len(b)) + " bytes)"
}
