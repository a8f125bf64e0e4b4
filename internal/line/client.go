// Package line is a small client for the LINE Messaging API: replying to a
// conversation, downloading message content and fetching user profiles. It
// also verifies webhook signatures and caches profiles in the database.
package line

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/tbourn/chat-archiver/internal/config"
)

// ErrNoToken is returned when no channel access token is configured.
var ErrNoToken = errors.New("line: channel access token is not configured")

// ErrContentTooLarge is returned when an attachment exceeds the client's
// MaxContentBytes limit.
var ErrContentTooLarge = errors.New("line: content exceeds size limit")

// maxErrorBody caps how much of a failed response is kept in APIError.
const maxErrorBody = 4 << 10

// TokenFunc returns the bearer token used for each call.
type TokenFunc func(ctx context.Context) (string, error)

// APIError is a non-2xx response from the API.
type APIError struct {
	Op     string
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("line %s: status %d: %s", e.Op, e.Status, e.Body)
}

// Client calls the Messaging API over net/http.
type Client struct {
	APIBaseURL     string
	DataAPIBaseURL string
	Token          TokenFunc
	HTTP           *http.Client

	// MaxContentBytes caps Content downloads; zero uses the config default.
	MaxContentBytes int64
}

// NewClient builds a client from process config.
func NewClient(cfg config.LineConfig, token TokenFunc) *Client {
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		APIBaseURL:     cfg.APIBaseURL,
		DataAPIBaseURL: cfg.DataAPIBaseURL,
		Token:          token,
		HTTP:           &http.Client{Timeout: timeout},

		MaxContentBytes: cfg.MaxContentSize,
	}
}

// Content is a downloaded message attachment.
type Content struct {
	Data        []byte
	ContentType string
}

// Profile is a user's public profile.
type Profile struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	PictureURL  string `json:"pictureUrl"`
	Language    string `json:"language,omitempty"`
}

type textMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type replyRequest struct {
	ReplyToken string        `json:"replyToken"`
	Messages   []textMessage `json:"messages"`
}

// Reply sends a single text message using a reply token.
func (c *Client) Reply(ctx context.Context, replyToken, text string) error {
	body, err := json.Marshal(replyRequest{
		ReplyToken: replyToken,
		Messages:   []textMessage{{Type: "text", Text: text}},
	})
	if err != nil {
		return fmt.Errorf("marshal reply: %w", err)
	}
	resp, err := c.do(ctx, "reply", http.MethodPost, c.APIBaseURL+"/v2/bot/message/reply", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// Content downloads the binary content of a message.
func (c *Client) Content(ctx context.Context, messageID string) (*Content, error) {
	u := c.DataAPIBaseURL + "/v2/bot/message/" + url.PathEscape(messageID) + "/content"
	resp, err := c.do(ctx, "content", http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	limit := c.MaxContentBytes
	if limit <= 0 {
		limit = config.DefaultMaxAttachmentBytes
	}
	if resp.ContentLength > limit {
		return nil, fmt.Errorf("%w: %d > %d bytes", ErrContentTooLarge, resp.ContentLength, limit)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("line content read: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrContentTooLarge, limit)
	}
	return &Content{Data: data, ContentType: resp.Header.Get("Content-Type")}, nil
}

// Profile fetches a user profile, through the group member endpoint when
// groupID is set.
func (c *Client) Profile(ctx context.Context, userID, groupID string) (*Profile, error) {
	u := c.APIBaseURL + "/v2/bot/profile/" + url.PathEscape(userID)
	if groupID != "" {
		u = c.APIBaseURL + "/v2/bot/group/" + url.PathEscape(groupID) + "/member/" + url.PathEscape(userID)
	}
	resp, err := c.do(ctx, "profile", http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var p Profile
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, fmt.Errorf("line profile decode: %w", err)
	}
	return &p, nil
}

// do performs an authenticated request and turns non-2xx responses into
// *APIError. On success the caller owns resp.Body.
func (c *Client) do(ctx context.Context, op, method, u string, body io.Reader) (*http.Response, error) {
	if c.Token == nil {
		return nil, ErrNoToken
	}
	token, err := c.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("line %s token: %w", op, err)
	}
	if token == "" {
		return nil, ErrNoToken
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json; charset=utf-8")
	}

	hc := c.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("line %s %s: %w", op, u, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &APIError{Op: op, Status: resp.StatusCode, Body: string(msg)}
	}
	return resp, nil
}
