package bsky

import "regexp"

const (
	featureLink = "app.bsky.richtext.facet#link"
	featureTag  = "app.bsky.richtext.facet#tag"
)

// Facet is a byte-range rich-text annotation on post text
// (app.bsky.richtext.facet). Offsets index into the UTF-8 encoding of the
// text, not codepoints.
type Facet struct {
	Index    ByteSlice      `json:"index"`
	Features []FacetFeature `json:"features"`
}

type ByteSlice struct {
	ByteStart int `json:"byteStart"`
	ByteEnd   int `json:"byteEnd"`
}

type FacetFeature struct {
	Type string `json:"$type"`
	URI  string `json:"uri,omitempty"`
	Tag  string `json:"tag,omitempty"`
}

var (
	urlPattern = regexp.MustCompile(`https?://[^\s]+`)
	// '#' then ASCII alphanumerics, underscore, Hiragana, Katakana
	// (including the prolonged sound mark) or CJK ideographs.
	tagPattern = regexp.MustCompile(`#[0-9A-Za-z_\x{3041}-\x{3096}\x{30A1}-\x{30FA}\x{30FC}\x{4E00}-\x{9FFF}]+`)
)

// ExtractFacets scans text for URLs, then hashtags. Go regexp match
// indices are byte offsets over the UTF-8 string, which is exactly what
// the protocol wants; no further conversion happens. The two patterns are
// assumed disjoint (a hashtag cannot open with a URL scheme), so no
// overlap resolution is performed. Returns nil when nothing matches.
func ExtractFacets(text string) []Facet {
	var facets []Facet
	for _, m := range urlPattern.FindAllStringIndex(text, -1) {
		facets = append(facets, Facet{
			Index:    ByteSlice{ByteStart: m[0], ByteEnd: m[1]},
			Features: []FacetFeature{{Type: featureLink, URI: text[m[0]:m[1]]}},
		})
	}
	for _, m := range tagPattern.FindAllStringIndex(text, -1) {
		facets = append(facets, Facet{
			Index:    ByteSlice{ByteStart: m[0], ByteEnd: m[1]},
			Features: []FacetFeature{{Type: featureTag, Tag: text[m[0]+1 : m[1]]}},
		})
	}
	return facets
}
