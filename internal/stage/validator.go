package stage

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/mkrogh/eventtag/internal/domain"
)

// minTitleLen is the minimum accepted title length after trimming.
const minTitleLen = 3

// defaultSensitiveKeywords screens out events that must not be forwarded to
// an external model. Matches are case-insensitive substring matches over the
// combined free-text fields.
var defaultSensitiveKeywords = []string{
	"klassificeret",
	"hemmeligt",
	"fortroligt",
	"personfølsomme",
	"gdpr",
	"databeskyttelse",
}

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	htmlTagRe    = regexp.MustCompile(`<[^>]+>`)
)

// CleaningValidator is the default InputValidator. It enforces required
// fields, strips leftover HTML, collapses whitespace, and screens for
// sensitive keywords.
type CleaningValidator struct {
	sensitiveKeywords []string
}

// NewCleaningValidator builds a validator with the given keyword screen.
// A nil slice selects the default keyword list; an empty non-nil slice
// disables screening.
func NewCleaningValidator(sensitiveKeywords []string) *CleaningValidator {
	if sensitiveKeywords == nil {
		sensitiveKeywords = defaultSensitiveKeywords
	}
	return &CleaningValidator{sensitiveKeywords: sensitiveKeywords}
}

// Validate implements InputValidator. The input record is never mutated;
// a cleaned copy is returned.
func (v *CleaningValidator) Validate(rec domain.EventRecord) (domain.EventRecord, error) {
	if len(strings.TrimSpace(rec.Title)) < minTitleLen {
		return domain.EventRecord{}, fmt.Errorf("%w: title must be at least %d characters", domain.ErrInvalidEvent, minTitleLen)
	}

	cleaned := rec
	cleaned.Title = cleanText(rec.Title)
	cleaned.Organizer = cleanText(rec.Organizer)
	cleaned.Subtype = cleanText(rec.Subtype)
	cleaned.Teaser = cleanText(rec.Teaser)
	cleaned.Description = cleanText(rec.Description)

	if err := cleaned.Validate(); err != nil {
		return domain.EventRecord{}, fmt.Errorf("%w: %w", domain.ErrInvalidEvent, err)
	}

	if keyword := v.findSensitive(cleaned); keyword != "" {
		return domain.EventRecord{}, fmt.Errorf("%w: matched keyword %q", domain.ErrSensitiveContent, keyword)
	}

	return cleaned, nil
}

func (v *CleaningValidator) findSensitive(rec domain.EventRecord) string {
	text := rec.CombinedText()
	for _, keyword := range v.sensitiveKeywords {
		if strings.Contains(text, strings.ToLower(keyword)) {
			return keyword
		}
	}
	return ""
}

// cleanText strips HTML tags, unescapes common entities, and collapses
// whitespace runs to single spaces.
func cleanText(text string) string {
	if text == "" {
		return text
	}
	text = htmlTagRe.ReplaceAllString(text, "")
	text = strings.NewReplacer(
		"&nbsp;", " ",
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
	).Replace(text)
	return whitespaceRe.ReplaceAllString(strings.TrimSpace(text), " ")
}
