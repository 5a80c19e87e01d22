package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventRecordValidate(t *testing.T) {
	tests := []struct {
		name    string
		record  EventRecord
		wantErr bool
	}{
		{
			name:   "valid minimal record",
			record: EventRecord{ID: "E1", Title: "Strikkecafé"},
		},
		{
			name:    "missing title",
			record:  EventRecord{ID: "E1"},
			wantErr: true,
		},
		{
			name:    "title too short",
			record:  EventRecord{ID: "E1", Title: "ab"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.record.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestEventRecordCombinedText(t *testing.T) {
	rec := EventRecord{
		Title:       "Jazz i Parken",
		Teaser:      "Gratis Koncert",
		Description: "Medbring taeppe",
	}
	assert.Equal(t, "jazz i parken gratis koncert medbring taeppe", rec.CombinedText())

	empty := EventRecord{Title: "Foredrag"}
	assert.Equal(t, "foredrag", empty.CombinedText(), "empty fields should be skipped")
}

func TestParsedTagResultTags(t *testing.T) {
	t.Run("returns non-empty tags in rank order", func(t *testing.T) {
		res := ParsedTagResult{Tag1: "MUSIK", Tag2: "KONCERT", Tag3: "FEST"}
		assert.Equal(t, []string{"MUSIK", "KONCERT", "FEST"}, res.Tags())
	})

	t.Run("skips empty slots", func(t *testing.T) {
		res := ParsedTagResult{Tag1: "MUSIK", Tag3: "FEST"}
		assert.Equal(t, []string{"MUSIK", "FEST"}, res.Tags())
	})

	t.Run("invalid result has no tags", func(t *testing.T) {
		res := InvalidTagResult("unparseable")
		assert.Empty(t, res.Tags())
		assert.False(t, res.IsValid)
		assert.Equal(t, "unparseable", res.Error)
	})
}

func TestProcessingResultFailed(t *testing.T) {
	assert.False(t, ProcessingResult{Status: StatusSuccess}.Failed())
	assert.True(t, ProcessingResult{Status: StatusError}.Failed())
}

func TestGroundTruthRecord(t *testing.T) {
	gt := GroundTruthRecord{EventID: "E1", Tags: []string{"MUSIK", "KONCERT"}}
	require.NoError(t, gt.Validate())

	assert.Equal(t, "MUSIK", gt.Primary())
	assert.True(t, gt.Contains("KONCERT"))
	assert.False(t, gt.Contains("FEST"))

	empty := GroundTruthRecord{EventID: "E2"}
	assert.Error(t, empty.Validate(), "a labeled record needs at least one tag")
	assert.Equal(t, "", empty.Primary())
}

func TestEvaluationRowCorrectAt(t *testing.T) {
	row := EvaluationRow{CorrectAt2: true, CorrectAt3: true}
	assert.False(t, row.CorrectAt(1))
	assert.True(t, row.CorrectAt(2))
	assert.True(t, row.CorrectAt(3))
	assert.False(t, row.CorrectAt(4))
}

func TestMilliOre(t *testing.T) {
	cost := MilliOre(150_000)
	assert.InDelta(t, 1.5, cost.Kroner(), 1e-9)
	assert.Equal(t, MilliOre(250_000), cost.Add(100_000))
	assert.Equal(t, "kr 1.50000", cost.String())
	assert.True(t, MilliOre(0).IsZero())
}
