package bsky

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rmc8/shosha-poster/internal/model"
)

const (
	typeFeedPost      = "app.bsky.feed.post"
	typeEmbedExternal = "app.bsky.embed.external"
)

// PostArgs is everything the publisher needs for one post. ShareURL being
// non-empty attaches a link-preview embed; ImageURL additionally sources
// its thumbnail.
type PostArgs struct {
	Text        string
	ShareURL    string
	Title       string
	Description string
	ImageURL    string
}

// PostRecord is an app.bsky.feed.post record. Facets is omitted from the
// wire form when empty; the protocol distinguishes a missing field from
// an empty list.
type PostRecord struct {
	Type      string         `json:"$type"`
	Text      string         `json:"text"`
	CreatedAt string         `json:"createdAt"`
	Facets    []Facet        `json:"facets,omitempty"`
	Embed     *ExternalEmbed `json:"embed,omitempty"`
}

// ExternalEmbed is an app.bsky.embed.external link preview.
type ExternalEmbed struct {
	Type     string       `json:"$type"`
	External ExternalCard `json:"external"`
}

type ExternalCard struct {
	URI         string          `json:"uri"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Thumb       json.RawMessage `json:"thumb,omitempty"`
}

type createRecordReq struct {
	Repo       string     `json:"repo"`
	Collection string     `json:"collection"`
	Record     PostRecord `json:"record"`
}

// Publish authenticates, extracts facets from the text, optionally
// attaches a link preview (with thumbnail when the image can be uploaded),
// and writes the record to the account's repo.
func (c *Client) Publish(ctx context.Context, creds model.BskyCredentials, args PostArgs) error {
	sess, err := c.CreateSession(ctx, creds)
	if err != nil {
		return err
	}
	record := c.buildRecord(args)
	if record.Embed != nil && args.ImageURL != "" {
		record.Embed.External.Thumb = c.UploadBlobFromURL(ctx, sess, args.ImageURL)
	}
	return c.createRecord(ctx, sess, record)
}

func (c *Client) buildRecord(args PostArgs) PostRecord {
	record := PostRecord{
		Type:      typeFeedPost,
		Text:      args.Text,
		CreatedAt: c.now().UTC().Format(time.RFC3339),
		Facets:    ExtractFacets(args.Text),
	}
	if args.ShareURL != "" {
		record.Embed = &ExternalEmbed{
			Type: typeEmbedExternal,
			External: ExternalCard{
				URI:         args.ShareURL,
				Title:       args.Title,
				Description: args.Description,
			},
		}
	}
	return record
}

func (c *Client) createRecord(ctx context.Context, sess *Session, record PostRecord) error {
	payload, err := json.Marshal(createRecordReq{
		Repo:       sess.Did,
		Collection: typeFeedPost,
		Record:     record,
	})
	if err != nil {
		return &PublishError{Message: "encode record", Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.xrpc("com.atproto.repo.createRecord"), bytes.NewReader(payload))
	if err != nil {
		return &PublishError{Message: "build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+sess.AccessJwt)
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return &PublishError{Message: "create record", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &PublishError{
			Status:  resp.StatusCode,
			Message: fmt.Sprintf("createRecord: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
		}
	}
	return nil
}
