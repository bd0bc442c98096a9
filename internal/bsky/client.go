package bsky

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rmc8/shosha-poster/internal/model"
)

// DefaultPDS is the hosted entryway most accounts live on.
const DefaultPDS = "https://bsky.social"

// AuthError is a failed session creation; the platform's publish is
// aborted, nothing else is affected.
type AuthError struct {
	Status int
	Err    error
}

func (e *AuthError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("bsky auth: status %d: %v", e.Status, e.Err)
	}
	return fmt.Sprintf("bsky auth: %v", e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// PublishError is a failed record submission.
type PublishError struct {
	Status  int
	Message string
	Err     error
}

func (e *PublishError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("bsky publish: %s: %v", e.Message, e.Err)
	}
	return "bsky publish: " + e.Message
}

func (e *PublishError) Unwrap() error { return e.Err }

// Session is the result of com.atproto.server.createSession. Did doubles
// as the repo identifier for record writes.
type Session struct {
	AccessJwt string `json:"accessJwt"`
	Did       string `json:"did"`
	Handle    string `json:"handle"`
}

// Client talks to one PDS. Now is injectable for record-timestamp tests.
type Client struct {
	HTTPClient *http.Client
	PDS        string
	Now        func() time.Time
}

func NewClient() *Client {
	return &Client{HTTPClient: http.DefaultClient, PDS: DefaultPDS}
}

func (c *Client) xrpc(method string) string {
	return c.PDS + "/xrpc/" + method
}

func (c *Client) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// CreateSession authenticates with an identifier and app password. A
// fresh session is created per publish call; nothing is cached.
func (c *Client) CreateSession(ctx context.Context, creds model.BskyCredentials) (*Session, error) {
	payload, err := json.Marshal(map[string]string{
		"identifier": creds.Identifier,
		"password":   creds.Password,
	})
	if err != nil {
		return nil, &AuthError{Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.xrpc("com.atproto.server.createSession"), bytes.NewReader(payload))
	if err != nil {
		return nil, &AuthError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, &AuthError{Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &AuthError{
			Status: resp.StatusCode,
			Err:    fmt.Errorf("createSession: %s", strings.TrimSpace(string(body))),
		}
	}
	var sess Session
	if err := json.NewDecoder(resp.Body).Decode(&sess); err != nil {
		return nil, &AuthError{Err: err}
	}
	if sess.AccessJwt == "" || sess.Did == "" {
		return nil, &AuthError{Err: errors.New("createSession: response missing accessJwt or did")}
	}
	return &sess, nil
}
