package bsky

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
)

// UploadBlobFromURL downloads an image and re-uploads it as a repo blob,
// returning the blob reference verbatim from the response. Every failure
// returns nil: a missing thumbnail degrades the link preview, it never
// fails the post.
func (c *Client) UploadBlobFromURL(ctx context.Context, sess *Session, imageURL string) json.RawMessage {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil || len(data) == 0 {
		return nil
	}
	mime := resp.Header.Get("Content-Type")
	if mime == "" {
		mime = "image/jpeg"
	}

	up, err := http.NewRequestWithContext(ctx, http.MethodPost, c.xrpc("com.atproto.repo.uploadBlob"), bytes.NewReader(data))
	if err != nil {
		return nil
	}
	up.Header.Set("Content-Type", mime)
	up.Header.Set("Authorization", "Bearer "+sess.AccessJwt)
	upResp, err := c.HTTPClient.Do(up)
	if err != nil {
		return nil
	}
	defer upResp.Body.Close()
	if upResp.StatusCode != http.StatusOK {
		return nil
	}
	var out struct {
		Blob json.RawMessage `json:"blob"`
	}
	if err := json.NewDecoder(upResp.Body).Decode(&out); err != nil {
		return nil
	}
	if len(out.Blob) == 0 {
		return nil
	}
	return out.Blob
}
