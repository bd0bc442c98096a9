package bsky

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmc8/shosha-poster/internal/model"
)

func testBskyCreds() model.BskyCredentials {
	return model.BskyCredentials{Identifier: "shosha.example.com", Password: "app-pass-word"}
}

func newTestBskyClient(handler http.Handler) (*Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	c := NewClient()
	c.PDS = srv.URL
	c.Now = func() time.Time { return time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC) }
	return c, srv
}

func sessionOK(w http.ResponseWriter) {
	w.Write([]byte(`{"accessJwt":"jwt-token","did":"did:plc:abc123","handle":"shosha.example.com"}`))
}

func TestCreateSession_Success(t *testing.T) {
	c, srv := newTestBskyClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/xrpc/com.atproto.server.createSession", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "shosha.example.com", body["identifier"])
		assert.Equal(t, "app-pass-word", body["password"])
		sessionOK(w)
	}))
	defer srv.Close()

	sess, err := c.CreateSession(context.Background(), testBskyCreds())
	require.NoError(t, err)
	assert.Equal(t, "jwt-token", sess.AccessJwt)
	assert.Equal(t, "did:plc:abc123", sess.Did)
}

func TestCreateSession_Unauthorized(t *testing.T) {
	c, srv := newTestBskyClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"AuthenticationRequired"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := c.CreateSession(context.Background(), testBskyCreds())
	var ae *AuthError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, http.StatusUnauthorized, ae.Status)
}

func TestBuildRecord_OmitsEmptyFacets(t *testing.T) {
	c, srv := newTestBskyClient(http.NewServeMux())
	defer srv.Close()

	record := c.buildRecord(PostArgs{Text: "plain text, nothing to annotate"})
	raw, err := json.Marshal(record)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "app.bsky.feed.post", decoded["$type"])
	assert.Equal(t, "2026-08-31T12:00:00Z", decoded["createdAt"])
	_, hasFacets := decoded["facets"]
	assert.False(t, hasFacets, "facets key must be absent, not an empty list")
	_, hasEmbed := decoded["embed"]
	assert.False(t, hasEmbed)
}

func TestBuildRecord_WithShareURL(t *testing.T) {
	c, srv := newTestBskyClient(http.NewServeMux())
	defer srv.Close()

	record := c.buildRecord(PostArgs{
		Text:        "読む https://rmc-8.com/shosha/random_shosha/?book_id=meian-natsume&sentence_id=12 #ランダム書写",
		ShareURL:    "https://rmc-8.com/shosha/random_shosha/?book_id=meian-natsume&sentence_id=12",
		Title:       "「明暗」夏目漱石 著",
		Description: "ランダムに選ばれた文章を書写しましょう。",
	})
	require.NotNil(t, record.Embed)
	assert.Equal(t, "app.bsky.embed.external", record.Embed.Type)
	assert.Equal(t, "「明暗」夏目漱石 著", record.Embed.External.Title)
	assert.Len(t, record.Facets, 2)
}

func publishHandler(t *testing.T, imageStatus int, captured *map[string]any, blobUploads *int) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/xrpc/com.atproto.server.createSession", func(w http.ResponseWriter, r *http.Request) {
		sessionOK(w)
	})
	mux.HandleFunc("/img", func(w http.ResponseWriter, r *http.Request) {
		if imageStatus != http.StatusOK {
			w.WriteHeader(imageStatus)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte{0x89, 'P', 'N', 'G'})
	})
	mux.HandleFunc("/xrpc/com.atproto.repo.uploadBlob", func(w http.ResponseWriter, r *http.Request) {
		*blobUploads++
		assert.Equal(t, "image/png", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer jwt-token", r.Header.Get("Authorization"))
		w.Write([]byte(`{"blob":{"$type":"blob","ref":{"$link":"bafyreib2rxk3rh6kzwq"},"mimeType":"image/png","size":4}}`))
	})
	mux.HandleFunc("/xrpc/com.atproto.repo.createRecord", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer jwt-token", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(captured))
		w.Write([]byte(`{"uri":"at://did:plc:abc123/app.bsky.feed.post/3k","cid":"bafy"}`))
	})
	return mux
}

func TestPublish_FullFlowWithThumbnail(t *testing.T) {
	var captured map[string]any
	var blobUploads int
	c, srv := newTestBskyClient(publishHandler(t, http.StatusOK, &captured, &blobUploads))
	defer srv.Close()

	err := c.Publish(context.Background(), testBskyCreds(), PostArgs{
		Text:        "それほど世の中は。\n#ランダム書写\nhttps://rmc-8.com/s",
		ShareURL:    "https://rmc-8.com/s",
		Title:       "「明暗」夏目漱石 著",
		Description: "ランダムに選ばれた文章を書写しましょう。",
		ImageURL:    srv.URL + "/img",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, blobUploads)

	assert.Equal(t, "did:plc:abc123", captured["repo"])
	assert.Equal(t, "app.bsky.feed.post", captured["collection"])

	record := captured["record"].(map[string]any)
	assert.Equal(t, "app.bsky.feed.post", record["$type"])
	require.Contains(t, record, "facets")

	embed := record["embed"].(map[string]any)
	assert.Equal(t, "app.bsky.embed.external", embed["$type"])
	external := embed["external"].(map[string]any)
	assert.Equal(t, "https://rmc-8.com/s", external["uri"])
	require.Contains(t, external, "thumb", "uploaded blob must ride along as thumb")
	thumb := external["thumb"].(map[string]any)
	assert.Equal(t, "image/png", thumb["mimeType"])
}

func TestPublish_ThumbnailFailureDegrades(t *testing.T) {
	var captured map[string]any
	var blobUploads int
	c, srv := newTestBskyClient(publishHandler(t, http.StatusInternalServerError, &captured, &blobUploads))
	defer srv.Close()

	err := c.Publish(context.Background(), testBskyCreds(), PostArgs{
		Text:     "degraded preview",
		ShareURL: "https://rmc-8.com/s",
		Title:    "Random Shosha",
		ImageURL: srv.URL + "/img",
	})
	require.NoError(t, err, "a dead thumbnail must not fail the post")
	assert.Equal(t, 0, blobUploads)

	record := captured["record"].(map[string]any)
	external := record["embed"].(map[string]any)["external"].(map[string]any)
	_, hasThumb := external["thumb"]
	assert.False(t, hasThumb, "embed must omit thumb when the upload fails")
}

func TestPublish_SessionFailureAborts(t *testing.T) {
	recordCalls := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/xrpc/com.atproto.server.createSession", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	})
	mux.HandleFunc("/xrpc/com.atproto.repo.createRecord", func(w http.ResponseWriter, r *http.Request) {
		recordCalls++
	})
	c, srv := newTestBskyClient(mux)
	defer srv.Close()

	err := c.Publish(context.Background(), testBskyCreds(), PostArgs{Text: "hello"})
	var ae *AuthError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, 0, recordCalls)
}

func TestPublish_CreateRecordFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/xrpc/com.atproto.server.createSession", func(w http.ResponseWriter, r *http.Request) {
		sessionOK(w)
	})
	mux.HandleFunc("/xrpc/com.atproto.repo.createRecord", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"InvalidRequest"}`, http.StatusBadRequest)
	})
	c, srv := newTestBskyClient(mux)
	defer srv.Close()

	err := c.Publish(context.Background(), testBskyCreds(), PostArgs{Text: "hello"})
	var pe *PublishError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, http.StatusBadRequest, pe.Status)
}

func TestUploadBlobFromURL_DefaultsToJPEG(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/img", func(w http.ResponseWriter, r *http.Request) {
		w.Header()["Content-Type"] = nil // suppress sniffing
		w.Write([]byte("raw-image-bytes"))
	})
	mux.HandleFunc("/xrpc/com.atproto.repo.uploadBlob", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "image/jpeg", r.Header.Get("Content-Type"))
		w.Write([]byte(`{"blob":{"$type":"blob","mimeType":"image/jpeg","size":15}}`))
	})
	c, srv := newTestBskyClient(mux)
	defer srv.Close()

	sess := &Session{AccessJwt: "jwt-token", Did: "did:plc:abc123"}
	blob := c.UploadBlobFromURL(context.Background(), sess, srv.URL+"/img")
	require.NotNil(t, blob)
	assert.Contains(t, string(blob), `"mimeType":"image/jpeg"`)
}

func TestUploadBlobFromURL_DownloadFailure(t *testing.T) {
	c, srv := newTestBskyClient(http.NewServeMux())
	srv.Close()

	sess := &Session{AccessJwt: "jwt-token"}
	assert.Nil(t, c.UploadBlobFromURL(context.Background(), sess, srv.URL+"/img"))
}
