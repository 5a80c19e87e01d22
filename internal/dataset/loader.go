// Package dataset loads tag rules and labeled events from the workshop CSV
// exports. The exports are semicolon-delimited by default but some tooling
// re-saves them comma-delimited, so the delimiter is sniffed per file.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mkrogh/eventtag/internal/domain"
	"github.com/mkrogh/eventtag/internal/registry"
)

// ErrMissingColumn indicates a required header column is absent.
var ErrMissingColumn = errors.New("missing column")

// Tag rule export columns.
const (
	colMainCategory = "Hovedkategori"
	colSubCategory  = "Underkategori"
	colDescription  = "Beskrivelse"
	colExamples     = "Relevante tilbudseksempler"
)

// Labeled event export columns.
const (
	colEventID    = "ArrangementNummer"
	colEventTitle = "ArrangementTitel"
	colOrganizer  = "arrangør"
	colTeaser     = "nc_Teaser"
	colCleanText  = "CleanText"
	colSubtype    = "ArrangementUndertype"
	colTruthTag1  = "Underkategori1"
	colTruthTag2  = "Underkategori2"
	colTruthTag3  = "Underkategori3"
)

// LoadTagRules reads the tag rule export and builds a registry.
func LoadTagRules(path string) (*registry.Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open tag rules: %w", err)
	}
	defer f.Close()
	return ReadTagRules(f)
}

// ReadTagRules parses tag rules from CSV content.
func ReadTagRules(r io.Reader) (*registry.Registry, error) {
	header, rows, err := readTable(r)
	if err != nil {
		return nil, err
	}
	idx, err := columnIndex(header, colSubCategory, colDescription)
	if err != nil {
		return nil, err
	}
	// Optional columns get -1 when absent.
	mainIdx := findColumn(header, colMainCategory)
	exIdx := findColumn(header, colExamples)

	rules := make([]registry.Rule, 0, len(rows))
	for _, row := range rows {
		sub := strings.TrimSpace(cell(row, idx[colSubCategory]))
		if sub == "" {
			continue
		}
		rule := registry.Rule{
			Tag:         registry.Normalize(sub),
			SubCategory: sub,
			Description: strings.TrimSpace(cell(row, idx[colDescription])),
		}
		if mainIdx >= 0 {
			rule.MainCategory = strings.TrimSpace(cell(row, mainIdx))
		}
		if exIdx >= 0 {
			rule.Examples = splitExamples(cell(row, exIdx))
		}
		rules = append(rules, rule)
	}
	return registry.New(rules)
}

// LoadLabeledEvents reads the labeled event export. Rows without a title or
// without any ground-truth tag are skipped rather than failing the load.
func LoadLabeledEvents(path string) ([]domain.LabeledEvent, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open labeled events: %w", err)
	}
	defer f.Close()
	return ReadLabeledEvents(f)
}

// ReadLabeledEvents parses labeled events from CSV content.
func ReadLabeledEvents(r io.Reader) ([]domain.LabeledEvent, error) {
	header, rows, err := readTable(r)
	if err != nil {
		return nil, err
	}
	idx, err := columnIndex(header, colEventID, colEventTitle, colTruthTag1)
	if err != nil {
		return nil, err
	}
	organizerIdx := findColumn(header, colOrganizer)
	teaserIdx := findColumn(header, colTeaser)
	textIdx := findColumn(header, colCleanText)
	subtypeIdx := findColumn(header, colSubtype)
	truth2Idx := findColumn(header, colTruthTag2)
	truth3Idx := findColumn(header, colTruthTag3)

	events := make([]domain.LabeledEvent, 0, len(rows))
	for _, row := range rows {
		title := strings.TrimSpace(cell(row, idx[colEventTitle]))
		if title == "" {
			continue
		}

		var tags []string
		for _, i := range []int{idx[colTruthTag1], truth2Idx, truth3Idx} {
			if i < 0 {
				continue
			}
			if tag := registry.Normalize(cell(row, i)); tag != "" {
				tags = append(tags, tag)
			}
		}
		if len(tags) == 0 {
			continue
		}

		id := strings.TrimSpace(cell(row, idx[colEventID]))
		le := domain.LabeledEvent{
			Event: domain.EventRecord{
				ID:    id,
				Title: title,
			},
			Truth: domain.GroundTruthRecord{EventID: id, Tags: tags},
		}
		if organizerIdx >= 0 {
			le.Event.Organizer = strings.TrimSpace(cell(row, organizerIdx))
		}
		if teaserIdx >= 0 {
			le.Event.Teaser = strings.TrimSpace(cell(row, teaserIdx))
		}
		if textIdx >= 0 {
			le.Event.Description = strings.TrimSpace(cell(row, textIdx))
		}
		if subtypeIdx >= 0 {
			le.Event.Subtype = strings.TrimSpace(cell(row, subtypeIdx))
		}
		events = append(events, le)
	}
	return events, nil
}

// readTable sniffs the delimiter from the header line and reads all rows.
func readTable(r io.Reader) ([]string, [][]string, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("read csv: %w", err)
	}
	content := strings.TrimPrefix(string(raw), "\ufeff")

	cr := csv.NewReader(strings.NewReader(content))
	cr.Comma = sniffDelimiter(content)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) == 0 {
		return nil, nil, errors.New("empty csv")
	}
	return records[0], records[1:], nil
}

// sniffDelimiter picks semicolon or comma based on which appears more often
// in the header line.
func sniffDelimiter(content string) rune {
	head, _, _ := strings.Cut(content, "\n")
	if strings.Count(head, ";") >= strings.Count(head, ",") {
		return ';'
	}
	return ','
}

func columnIndex(header []string, required ...string) (map[string]int, error) {
	idx := make(map[string]int, len(required))
	for _, name := range required {
		i := findColumn(header, name)
		if i < 0 {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
		idx[name] = i
	}
	return idx, nil
}

func findColumn(header []string, name string) int {
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(h), name) {
			return i
		}
	}
	return -1
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

// splitExamples splits the free-text example column on commas.
func splitExamples(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
