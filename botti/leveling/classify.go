package leveling

import (
	"regexp"
	"strings"
)

// Message classification. Scoring works on a normalized shadow of the
// content: links, emojis and mentions collapse to fixed-width
// placeholders so they cannot be farmed for length.

const (
	urlPlaceholder     = "{url}"
	emojiPlaceholder   = "{e}"
	mentionPlaceholder = "{m}"

	maxScoredLength = 128
	attachmentBonus = 10
	botCommandLen   = 5
)

var (
	urlRe        = regexp.MustCompile(`(?m)^https?://.*[\r\n]*`)
	customEmoji  = regexp.MustCompile(`<:.*>`)
	namedEmoji   = regexp.MustCompile(`:[a-zA-Z]+:`)
	mentionRe    = regexp.MustCompile(`<[a-zA-Z0-9@!]+>`)
	multiSpaceRe = regexp.MustCompile(` +`)
)

// IsBotCommand reports whether the text addresses some bot: a leading
// command rune followed by actual content, or the "pls " prefix bots of
// a certain era listen for. A bare run of punctuation ("!!!") is not a
// command.
func IsBotCommand(text string) bool {
	if len(text) >= 2 && strings.ContainsRune("?.!/", rune(text[0])) {
		if text != strings.Repeat(text[:1], len(text)) {
			return true
		}
	}
	return strings.Contains(text, "pls ")
}

// IsGif reports whether the content is a bare link to an animated image.
func IsGif(content string) bool {
	text := urlRe.ReplaceAllString(content, urlPlaceholder)
	return text == urlPlaceholder &&
		(strings.Contains(content, "gif") || strings.Contains(content, "GIF") || strings.Contains(content, "tenor"))
}

// HasEmoji reports whether the content contains a custom or named emoji.
func HasEmoji(content string) bool {
	text := namedEmoji.ReplaceAllString(content, emojiPlaceholder)
	if strings.Contains(text, emojiPlaceholder) {
		return true
	}
	text = customEmoji.ReplaceAllString(text, emojiPlaceholder)
	return strings.Contains(text, emojiPlaceholder)
}

// Normalize collapses the content to its scoreable form: placeholder
// substitution, repeated-string collapse, whitespace folding and a hard
// truncation. The same form feeds both the length calculation and the
// per-bucket duplicate cache.
func Normalize(content string) string {
	text := urlRe.ReplaceAllString(content, urlPlaceholder)
	text = customEmoji.ReplaceAllString(text, emojiPlaceholder)
	text = namedEmoji.ReplaceAllString(text, emojiPlaceholder)
	text = mentionRe.ReplaceAllString(text, mentionPlaceholder)
	text = collapseRepeat(text)
	text = strings.TrimSpace(text)
	text = multiSpaceRe.ReplaceAllString(text, " ")
	if runes := []rune(text); len(runes) > maxScoredLength {
		text = string(runes[:maxScoredLength])
	}
	return text
}

// collapseRepeat reduces a string that is a whole-string repetition
// ("hahahaha") to its repeating unit ("ha"). The rotation trick: text
// occurs inside (text+text) at an interior offset exactly when text has
// a period shorter than itself, and that offset is the period.
func collapseRepeat(text string) string {
	if len(text) < 2 {
		return text
	}
	doubled := text + text
	i := strings.Index(doubled[1:len(doubled)-1], text)
	if i == -1 {
		return text
	}
	return text[:i+1]
}

// ScoredLength is the content-derived length the point formula uses.
func ScoredLength(normalized string, attachments int, isBotCommand bool) int {
	length := len([]rune(normalized))
	if attachments > 0 {
		length += attachmentBonus
	}
	if isBotCommand {
		length = botCommandLen
	}
	return length
}

// CandidatePoints converts a scored length to the points a message asks
// for, before the bucket cap is applied.
func CandidatePoints(length int) int {
	return length/2 + 3
}
