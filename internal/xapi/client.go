package xapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rmc8/shosha-poster/internal/model"
)

const tweetEndpoint = "https://api.twitter.com/2/tweets"

// PublishError is any failure to create a tweet: transport, non-201
// status, or an unusable response body.
type PublishError struct {
	Status  int
	Message string
	Err     error
}

func (e *PublishError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("x publish: %s: %v", e.Message, e.Err)
	}
	return "x publish: " + e.Message
}

func (e *PublishError) Unwrap() error { return e.Err }

// Client posts tweets through the v2 API with one-legged OAuth signing.
type Client struct {
	HTTPClient *http.Client
	BaseURL    string
	Signer     *Signer
}

func NewClient(creds model.XCredentials) *Client {
	return &Client{
		HTTPClient: http.DefaultClient,
		BaseURL:    tweetEndpoint,
		Signer:     NewSigner(creds),
	}
}

// CreateTweet posts text and returns the new tweet ID. Success is 201.
// Oversized text is not truncated client-side; the platform rejects it.
func (c *Client) CreateTweet(ctx context.Context, text string) (string, error) {
	payload, err := json.Marshal(model.TweetReq{Text: text})
	if err != nil {
		return "", &PublishError{Message: "encode tweet", Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL, bytes.NewReader(payload))
	if err != nil {
		return "", &PublishError{Message: "build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.Signer.AuthorizationHeader(http.MethodPost, c.BaseURL, nil))

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", &PublishError{Message: "post tweet", Err: err}
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusCreated {
		return "", &PublishError{Status: resp.StatusCode, Message: diagnoseHTTPError(resp.StatusCode, body)}
	}
	var out model.TweetResp
	if err := json.Unmarshal(body, &out); err != nil {
		return "", &PublishError{Message: "decode response", Err: err}
	}
	if out.Data.ID == "" {
		return "", &PublishError{Message: "response missing tweet id"}
	}
	return out.Data.ID, nil
}

// diagnoseHTTPError pulls the useful part out of a v2 error body, falling
// back to the raw body when it is not the documented problem shape.
func diagnoseHTTPError(status int, body []byte) string {
	var v2 struct {
		Title  string `json:"title"`
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &v2); err == nil && v2.Title != "" {
		return fmt.Sprintf("status %d: %s: %s", status, v2.Title, v2.Detail)
	}
	return fmt.Sprintf("status %d: %s", status, strings.TrimSpace(string(body)))
}
