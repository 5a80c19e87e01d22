package stage

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mkrogh/eventtag/internal/registry"

	"github.com/mkrogh/eventtag/internal/domain"
)

// JSONOutputParser is the default OutputParser. It expects the model to
// answer with a single JSON object carrying TAG1..TAG3, CONFIDENCE, and
// REASONING. A one-shot transport repair strips markdown code fences before
// decoding; anything that still fails to decode, names a tag outside the
// vocabulary, or omits TAG1 yields an invalid result rather than an error.
type JSONOutputParser struct{}

// NewJSONOutputParser builds the default parser.
func NewJSONOutputParser() *JSONOutputParser { return &JSONOutputParser{} }

// tagAnswer mirrors the JSON shape the prompt asks the model for.
type tagAnswer struct {
	Tag1       string  `json:"TAG1"`
	Tag2       string  `json:"TAG2"`
	Tag3       string  `json:"TAG3"`
	Confidence float64 `json:"CONFIDENCE"`
	Reasoning  string  `json:"REASONING"`
}

// Parse implements OutputParser.
func (p *JSONOutputParser) Parse(content string, availableTags []string) domain.ParsedTagResult {
	text := stripCodeFences(strings.TrimSpace(content))
	if text == "" {
		return domain.InvalidTagResult("empty model output")
	}

	var answer tagAnswer
	if err := json.Unmarshal([]byte(text), &answer); err != nil {
		return domain.InvalidTagResult(fmt.Sprintf("could not parse JSON: %v", err))
	}

	if strings.TrimSpace(answer.Tag1) == "" {
		return domain.InvalidTagResult("no TAG1 in model output")
	}

	allowed := make(map[string]struct{}, len(availableTags))
	for _, t := range availableTags {
		allowed[t] = struct{}{}
	}

	// Duplicates keep their best rank; later repeats are dropped so a
	// prediction never counts the same tag twice.
	tags := make([]string, 0, 3)
	seen := make(map[string]struct{}, 3)
	for i, raw := range []string{answer.Tag1, answer.Tag2, answer.Tag3} {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		tag := registry.Normalize(raw)
		if _, ok := allowed[tag]; !ok {
			return domain.InvalidTagResult(fmt.Sprintf("TAG%d %q is not an available tag", i+1, raw))
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}
	for len(tags) < 3 {
		tags = append(tags, "")
	}

	return domain.ParsedTagResult{
		Tag1:       tags[0],
		Tag2:       tags[1],
		Tag3:       tags[2],
		Confidence: clamp01(answer.Confidence),
		Reasoning:  strings.TrimSpace(answer.Reasoning),
		IsValid:    true,
	}
}

// stripCodeFences removes a surrounding markdown code fence, with or without
// a language hint. Models frequently wrap JSON in ```json fences despite
// being told not to.
func stripCodeFences(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	trimmed := strings.TrimPrefix(text, "```")
	if idx := strings.Index(trimmed, "\n"); idx >= 0 {
		trimmed = trimmed[idx+1:]
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
