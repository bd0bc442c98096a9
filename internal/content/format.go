package content

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/rmc8/shosha-poster/internal/model"
)

const (
	shareBaseJa = "https://rmc-8.com/shosha/random_shosha/"
	shareBaseEn = "https://rmc-8.com/shosha/random_shosha_en/"
	ogpEndpoint = "https://ogp.rmc-8.com/api/card"

	primaryTagJa = "#ランダム書写"
	primaryTagEn = "#RandomShosha"
)

// ShareURL returns the transcription page URL for one sentence. Distinct
// (book_id, sentence_id, lang) inputs always yield distinct URLs.
func ShareURL(bookID string, sentenceID int, lang Language) string {
	base := shareBaseJa
	if lang == English {
		base = shareBaseEn
	}
	return fmt.Sprintf("%s?book_id=%s&sentence_id=%d", base, url.QueryEscape(bookID), sentenceID)
}

// HashtagLine is the language's primary tag followed by the per-sentence
// work tag (book_id with hyphens stripped, underscore, sentence_id).
func HashtagLine(bookID string, sentenceID int, lang Language) string {
	primary := primaryTagJa
	if lang == English {
		primary = primaryTagEn
	}
	work := strings.ReplaceAll(bookID, "-", "")
	return fmt.Sprintf("%s #%s_%d", primary, work, sentenceID)
}

// AttributionLine names the work and its author in the language's
// convention.
func AttributionLine(rec *model.SentenceRecord, lang Language) string {
	if lang == English {
		return fmt.Sprintf("%q by %s", rec.Title, rec.Author)
	}
	return fmt.Sprintf("「%s」%s 著", rec.Title, rec.Author)
}

// BuildShareContent composes the post body for one sentence: the sentence,
// a blank line, attribution, the hashtag line, and the share URL, each on
// its own line. Deterministic.
func BuildShareContent(rec *model.SentenceRecord, lang Language) model.ShareContent {
	shareURL := ShareURL(rec.BookID, rec.SentenceID, lang)
	text := strings.Join([]string{
		strings.TrimSpace(rec.Text),
		"",
		AttributionLine(rec, lang),
		HashtagLine(rec.BookID, rec.SentenceID, lang),
		shareURL,
	}, "\n")
	return model.ShareContent{Text: text, URL: shareURL}
}

// OGPImageURL is the card-image source for a sentence's link preview.
// Japanese records that already carry a rendered card use it as-is.
func OGPImageURL(rec *model.SentenceRecord, lang Language) string {
	if rec.CardURL != "" {
		return rec.CardURL
	}
	q := url.Values{}
	q.Set("sentence", rec.Text)
	q.Set("title", rec.Title)
	q.Set("author", rec.Author)
	q.Set("lang", string(lang))
	return ogpEndpoint + "?" + q.Encode()
}

// EmbedTitle is the link-preview title used when the caller supplies none.
func EmbedTitle(lang Language) string {
	if lang == English {
		return "Random Shosha"
	}
	return "ランダム書写"
}

// EmbedDescription is the link-preview description used when the caller
// supplies none.
func EmbedDescription(lang Language) string {
	if lang == English {
		return "Transcribe a randomly selected literary passage by hand."
	}
	return "ランダムに選ばれた文章を書写しましょう。"
}
