package model

// SentenceRecord is one sentence fetched from the content API. Japanese
// records carry CharCount and (sometimes) CardURL; English records carry
// WordCount instead.
type SentenceRecord struct {
	Text       string `json:"text"`
	BookID     string `json:"book_id"`
	SentenceID int    `json:"sentence_id"`
	Title      string `json:"title"`
	Author     string `json:"author"`
	CharCount  int    `json:"char_count,omitempty"`
	WordCount  int    `json:"word_count,omitempty"`
	CardURL    string `json:"card_url,omitempty"`
}

// ShareContent is a fully composed post body plus the share URL it embeds.
// URL is always a verbatim substring of Text.
type ShareContent struct {
	Text string
	URL  string
}

// XCredentials is a one-legged OAuth 1.0a credential set for the X API.
// Secrets; never log these.
type XCredentials struct {
	APIKey            string
	APISecret         string
	AccessToken       string
	AccessTokenSecret string
}

// BskyCredentials authenticates against a Bluesky PDS. Password is an app
// password, not the account password.
type BskyCredentials struct {
	Identifier string
	Password   string
}

// --- v2 create tweet ---

type TweetReq struct {
	Text string `json:"text"`
}

type TweetResp struct {
	Data struct {
		ID   string `json:"id"`
		Text string `json:"text"`
	} `json:"data"`
}
