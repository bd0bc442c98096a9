// Package poster glues the pipeline together: resolve credentials, fetch
// one sentence, format it, publish per platform. Failures turn into log
// lines and returned errors; nothing panics past this boundary.
package poster

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/rmc8/shosha-poster/internal/bsky"
	"github.com/rmc8/shosha-poster/internal/content"
	"github.com/rmc8/shosha-poster/internal/model"
	"github.com/rmc8/shosha-poster/internal/xapi"
)

type Poster struct {
	Log     *zap.Logger
	Fetcher *content.Fetcher
	Bsky    *bsky.Client
	DryRun  bool

	// NewXClient is an override hook for tests; nil means xapi.NewClient.
	NewXClient func(model.XCredentials) *xapi.Client
}

func New(log *zap.Logger) *Poster {
	return &Poster{
		Log:     log,
		Fetcher: content.NewFetcher(),
		Bsky:    bsky.NewClient(),
	}
}

// Run fetches one sentence and publishes it to both platforms in
// sequence. The channels are independent: one failing never suppresses
// the other's attempt. A fetch failure aborts before any publish.
func (p *Poster) Run(ctx context.Context, lang content.Language) error {
	rec, err := p.fetch(ctx, lang)
	if err != nil {
		return err
	}
	share := content.BuildShareContent(rec, lang)
	xErr := p.publishX(ctx, lang, share)
	bskyErr := p.publishBluesky(ctx, lang, rec, share)
	return errors.Join(xErr, bskyErr)
}

// RunX posts one sentence to X only.
func (p *Poster) RunX(ctx context.Context, lang content.Language) error {
	rec, err := p.fetch(ctx, lang)
	if err != nil {
		return err
	}
	return p.publishX(ctx, lang, content.BuildShareContent(rec, lang))
}

// RunBluesky posts one sentence to Bluesky only.
func (p *Poster) RunBluesky(ctx context.Context, lang content.Language) error {
	rec, err := p.fetch(ctx, lang)
	if err != nil {
		return err
	}
	return p.publishBluesky(ctx, lang, rec, content.BuildShareContent(rec, lang))
}

func (p *Poster) fetch(ctx context.Context, lang content.Language) (*model.SentenceRecord, error) {
	rec, err := p.Fetcher.Fetch(ctx, lang)
	if err != nil {
		p.Log.Error("content fetch failed", zap.String("lang", string(lang)), zap.Error(err))
		return nil, err
	}
	p.Log.Info("fetched sentence",
		zap.String("lang", string(lang)),
		zap.String("book_id", rec.BookID),
		zap.Int("sentence_id", rec.SentenceID))
	return rec, nil
}

func (p *Poster) publishX(ctx context.Context, lang content.Language, share model.ShareContent) error {
	creds, err := xCredentialsFromEnv(lang)
	if err != nil {
		p.Log.Error("x credentials unavailable", zap.String("lang", string(lang)), zap.Error(err))
		return err
	}
	if p.DryRun {
		p.Log.Info("dry run: skipping x post", zap.String("lang", string(lang)), zap.String("text", share.Text))
		return nil
	}
	id, err := p.newXClient(creds).CreateTweet(ctx, share.Text)
	if err != nil {
		p.Log.Error("x publish failed", zap.String("lang", string(lang)), zap.Error(err))
		return err
	}
	p.Log.Info("posted to x", zap.String("lang", string(lang)), zap.String("tweet_id", id))
	return nil
}

func (p *Poster) publishBluesky(ctx context.Context, lang content.Language, rec *model.SentenceRecord, share model.ShareContent) error {
	creds, err := bskyCredentialsFromEnv(lang)
	if err != nil {
		p.Log.Error("bsky credentials unavailable", zap.String("lang", string(lang)), zap.Error(err))
		return err
	}
	if p.DryRun {
		p.Log.Info("dry run: skipping bsky post", zap.String("lang", string(lang)), zap.String("text", share.Text))
		return nil
	}
	args := bsky.PostArgs{
		Text:        share.Text,
		ShareURL:    share.URL,
		Title:       content.AttributionLine(rec, lang),
		Description: content.EmbedDescription(lang),
		ImageURL:    content.OGPImageURL(rec, lang),
	}
	if args.Title == "" {
		args.Title = content.EmbedTitle(lang)
	}
	if err := p.Bsky.Publish(ctx, creds, args); err != nil {
		p.Log.Error("bsky publish failed", zap.String("lang", string(lang)), zap.Error(err))
		return err
	}
	p.Log.Info("posted to bluesky", zap.String("lang", string(lang)))
	return nil
}

func (p *Poster) newXClient(creds model.XCredentials) *xapi.Client {
	if p.NewXClient != nil {
		return p.NewXClient(creds)
	}
	return xapi.NewClient(creds)
}

// xCredentialsFromEnv reads one account's X credential group (X_JA_* or
// X_EN_*). Credentials are borrowed for a single publish call and never
// logged.
func xCredentialsFromEnv(lang content.Language) (model.XCredentials, error) {
	prefix := "X_JA_"
	if lang == content.English {
		prefix = "X_EN_"
	}
	creds := model.XCredentials{
		APIKey:            os.Getenv(prefix + "API_KEY"),
		APISecret:         os.Getenv(prefix + "API_SECRET"),
		AccessToken:       os.Getenv(prefix + "ACCESS_TOKEN"),
		AccessTokenSecret: os.Getenv(prefix + "ACCESS_TOKEN_SECRET"),
	}
	if creds.APIKey == "" || creds.APISecret == "" || creds.AccessToken == "" || creds.AccessTokenSecret == "" {
		return model.XCredentials{}, fmt.Errorf("incomplete credential group %s{API_KEY,API_SECRET,ACCESS_TOKEN,ACCESS_TOKEN_SECRET}", prefix)
	}
	return creds, nil
}

// bskyCredentialsFromEnv reads the per-language group (BSKY_JA_* /
// BSKY_EN_*), falling back to the shared BSKY_IDENTIFIER/BSKY_PASSWORD
// account.
func bskyCredentialsFromEnv(lang content.Language) (model.BskyCredentials, error) {
	prefix := "BSKY_JA_"
	if lang == content.English {
		prefix = "BSKY_EN_"
	}
	creds := model.BskyCredentials{
		Identifier: envOr(prefix+"IDENTIFIER", os.Getenv("BSKY_IDENTIFIER")),
		Password:   envOr(prefix+"PASSWORD", os.Getenv("BSKY_PASSWORD")),
	}
	if creds.Identifier == "" || creds.Password == "" {
		return model.BskyCredentials{}, fmt.Errorf("incomplete credential group %s{IDENTIFIER,PASSWORD} (no shared BSKY_* fallback set)", prefix)
	}
	return creds, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
