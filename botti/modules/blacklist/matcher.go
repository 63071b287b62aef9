package blacklist

import (
	"net/url"
	"strings"
)

// File identifies a blacklisted attachment by its dimensions and byte
// size. Discord strips no metadata, so the triple is stable across
// reposts of the same file.
type File struct {
	Width  int `json:"width"`
	Height int `json:"height"`
	Size   int `json:"size"`
}

// Attachment is the subset of an uploaded file the matcher cares about.
type Attachment struct {
	Width  int
	Height int
	Size   int
}

func (f File) Matches(a Attachment) bool {
	return f.Width == a.Width && f.Height == a.Height && f.Size == a.Size
}

// Matcher holds the three blacklist shapes: exact strings, all-of
// substring lists and file triples.
type Matcher struct {
	strings []string
	lists   [][]string
	files   []File
}

// AddString records an exact-content entry, lowercased. Returns false
// when the entry already exists.
func (m *Matcher) AddString(text string) bool {
	text = strings.ToLower(text)
	for _, s := range m.strings {
		if s == text {
			return false
		}
	}
	m.strings = append(m.strings, text)
	return true
}

// AddList records a set of substrings that must all appear in a message
// for it to match.
func (m *Matcher) AddList(parts []string) {
	m.lists = append(m.lists, parts)
}

// AddFile records a file triple. Returns false when already present.
func (m *Matcher) AddFile(f File) bool {
	for _, existing := range m.files {
		if existing == f {
			return false
		}
	}
	m.files = append(m.files, f)
	return true
}

// Match reports whether the content or any attachment is blacklisted,
// and describes what matched.
func (m *Matcher) Match(content string, attachments []Attachment) (bool, string) {
	lower := strings.ToLower(content)
	unquoted := lower
	if u, err := url.QueryUnescape(lower); err == nil {
		unquoted = u
	}
	for _, s := range m.strings {
		if s == lower || s == unquoted {
			return true, content
		}
	}
	for _, parts := range m.lists {
		if matchesAll(lower, parts) {
			return true, content
		}
	}
	for _, a := range attachments {
		for _, f := range m.files {
			if f.Matches(a) {
				return true, describeFile(f)
			}
		}
	}
	return false, ""
}

func matchesAll(lower string, parts []string) bool {
	if len(parts) == 0 {
		return false
	}
	for _, part := range parts {
		if !strings.Contains(lower, strings.ToLower(part)) {
			return false
		}
	}
	return true
}

// hostedMediaSlug extracts the media identifier from gfycat and imgur
// links so renamed reuploads still match. Empty when the content is not
// such a link.
func hostedMediaSlug(content string) string {
	unquoted := content
	if u, err := url.QueryUnescape(content); err == nil {
		unquoted = u
	}
	if !strings.Contains(unquoted, "gfycat") && !strings.Contains(unquoted, "imgur") {
		return ""
	}
	slug := content
	if i := strings.LastIndexByte(slug, '/'); i >= 0 {
		slug = slug[i+1:]
	}
	if i := strings.IndexByte(slug, '.'); i >= 0 {
		slug = slug[:i]
	}
	if u, err := url.QueryUnescape(slug); err == nil {
		slug = u
	}
	return slug
}
