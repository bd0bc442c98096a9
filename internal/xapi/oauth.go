package xapi

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rmc8/shosha-poster/internal/model"
)

// Clock and Noncer are the two non-deterministic inputs of an OAuth 1.0a
// signature; tests pin both to get reproducible headers.
type Clock func() time.Time

type Noncer func() string

// Signer builds one-legged OAuth 1.0a Authorization headers (HMAC-SHA1)
// from a pre-obtained consumer/token credential pair.
type Signer struct {
	ConsumerKey    string
	ConsumerSecret string
	Token          string
	TokenSecret    string
	Clock          Clock
	Noncer         Noncer
}

func NewSigner(creds model.XCredentials) *Signer {
	return &Signer{
		ConsumerKey:    creds.APIKey,
		ConsumerSecret: creds.APISecret,
		Token:          creds.AccessToken,
		TokenSecret:    creds.AccessTokenSecret,
		Clock:          time.Now,
		Noncer: func() string {
			return strings.ReplaceAll(uuid.NewString(), "-", "")
		},
	}
}

// AuthorizationHeader signs method + rawURL + params and returns the
// Authorization header value. params are the request parameters that
// participate in the signature (query or form); a JSON body contributes
// nothing and may be passed as nil.
func (s *Signer) AuthorizationHeader(method, rawURL string, params map[string]string) string {
	oauth := map[string]string{
		"oauth_consumer_key":     s.ConsumerKey,
		"oauth_token":            s.Token,
		"oauth_signature_method": "HMAC-SHA1",
		"oauth_timestamp":        strconv.FormatInt(s.Clock().Unix(), 10),
		"oauth_nonce":            s.Noncer(),
		"oauth_version":          "1.0",
	}

	all := make(map[string]string, len(oauth)+len(params))
	for k, v := range params {
		all[k] = v
	}
	for k, v := range oauth {
		all[k] = v
	}

	base := strings.ToUpper(method) + "&" + percentEncode(rawURL) + "&" + percentEncode(normalizeParams(all))
	key := percentEncode(s.ConsumerSecret) + "&" + percentEncode(s.TokenSecret)
	mac := hmac.New(sha1.New, []byte(key))
	mac.Write([]byte(base))
	oauth["oauth_signature"] = base64.StdEncoding.EncodeToString(mac.Sum(nil))

	keys := make([]string, 0, len(oauth))
	for k := range oauth {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%q", percentEncode(k), percentEncode(oauth[k])))
	}
	return "OAuth " + strings.Join(parts, ", ")
}

// normalizeParams percent-encodes keys and values, sorts by encoded key
// and then by encoded value, and joins the key=value pairs with
// ampersands (RFC 5849 §3.4.1.3.2). Sorting the joined pairs instead
// would misorder a key that prefixes another ('a' vs 'a0': '0' sorts
// below '=').
func normalizeParams(params map[string]string) string {
	type pair struct {
		key, value string
	}
	pairs := make([]pair, 0, len(params))
	for k, v := range params {
		pairs = append(pairs, pair{percentEncode(k), percentEncode(v)})
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].key != pairs[j].key {
			return pairs[i].key < pairs[j].key
		}
		return pairs[i].value < pairs[j].value
	})
	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		parts = append(parts, p.key+"="+p.value)
	}
	return strings.Join(parts, "&")
}

// percentEncode escapes everything outside the RFC 3986 unreserved set.
// url.QueryEscape is close but turns spaces into '+', which breaks
// signatures.
func percentEncode(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') ||
			c == '-' || c == '.' || c == '_' || c == '~' {
			b.WriteByte(c)
		} else {
			fmt.Fprintf(&b, "%%%02X", c)
		}
	}
	return b.String()
}
