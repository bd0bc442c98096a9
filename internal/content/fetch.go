package content

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rmc8/shosha-poster/internal/model"
)

// Language selects which corpus the content API serves.
type Language string

const (
	Japanese Language = "ja"
	English  Language = "en"
)

const (
	jaSentenceEndpoint = "https://api.rmc-8.com/random_shosha/sentence"
	enSentenceEndpoint = "https://api.rmc-8.com/random_shosha_en/sentence"
)

// FetchError is any failure to obtain a valid sentence: transport, bad
// status, or a response that does not match the expected shape.
type FetchError struct {
	Endpoint string
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("content fetch %s: %v", e.Endpoint, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Fetcher retrieves one sentence per call from the content API. No
// retries; a failure surfaces immediately.
type Fetcher struct {
	HTTPClient *http.Client
	JaEndpoint string
	EnEndpoint string
}

func NewFetcher() *Fetcher {
	return &Fetcher{
		HTTPClient: http.DefaultClient,
		JaEndpoint: jaSentenceEndpoint,
		EnEndpoint: enSentenceEndpoint,
	}
}

func (f *Fetcher) Fetch(ctx context.Context, lang Language) (*model.SentenceRecord, error) {
	endpoint := f.JaEndpoint
	if lang == English {
		endpoint = f.EnEndpoint
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &FetchError{Endpoint: endpoint, Err: err}
	}
	resp, err := f.HTTPClient.Do(req)
	if err != nil {
		return nil, &FetchError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &FetchError{
			Endpoint: endpoint,
			Err:      fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
		}
	}
	var rec model.SentenceRecord
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		return nil, &FetchError{Endpoint: endpoint, Err: err}
	}
	if err := validate(&rec); err != nil {
		return nil, &FetchError{Endpoint: endpoint, Err: err}
	}
	return &rec, nil
}

func validate(rec *model.SentenceRecord) error {
	switch {
	case rec.Text == "":
		return fmt.Errorf("response missing text")
	case rec.BookID == "":
		return fmt.Errorf("response missing book_id")
	case rec.Title == "":
		return fmt.Errorf("response missing title")
	case rec.SentenceID < 0:
		return fmt.Errorf("negative sentence_id %d", rec.SentenceID)
	}
	return nil
}
