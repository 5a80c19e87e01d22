package evaluation

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkrogh/eventtag/internal/domain"
	"github.com/mkrogh/eventtag/internal/llm"
	"github.com/mkrogh/eventtag/internal/processor"
	"github.com/mkrogh/eventtag/internal/registry"
	"github.com/mkrogh/eventtag/internal/stage"
)

// scriptedClient answers deterministically per event so concurrent and
// sequential runs see identical model behavior.
func scriptedClient(answers map[string]string) llm.Client {
	return llm.ClientFunc(func(_ context.Context, req *llm.Request) (*llm.Response, error) {
		answer, ok := answers[req.TraceID]
		if !ok {
			return nil, &llm.UpstreamError{Type: llm.ErrorTypeProvider, Message: "no script for " + req.TraceID}
		}
		return &llm.Response{Content: answer, Model: req.Model, TokensUsed: 100}, nil
	})
}

func newTestEngine(t *testing.T, client llm.Client, cfg Config) *Engine {
	t.Helper()
	reg, err := registry.New([]registry.Rule{
		{Tag: "MUSIK"}, {Tag: "FOREDRAG"}, {Tag: "KREATIVE_FAG"},
	})
	require.NoError(t, err)

	proc, err := processor.New(processor.Deps{
		Validator:  stage.NewCleaningValidator(nil),
		Prompter:   stage.NewTemplatePromptGenerator(reg),
		Client:     client,
		Parser:     stage.NewJSONOutputParser(),
		Confidence: stage.NewModelConfidenceEvaluator(),
		Review:     stage.NewThresholdReviewChecker(0.7, 0.5),
		Registry:   reg,
	}, processor.Config{Model: "gpt-4o"})
	require.NoError(t, err)

	engine, err := New(proc, cfg, nil)
	require.NoError(t, err)
	return engine
}

func labeled(id, title string, tags ...string) domain.LabeledEvent {
	return domain.LabeledEvent{
		Event: domain.EventRecord{ID: id, Title: title},
		Truth: domain.GroundTruthRecord{EventID: id, Tags: tags},
	}
}

func TestEngineEvaluate(t *testing.T) {
	t.Run("scores rows in dataset order", func(t *testing.T) {
		engine := newTestEngine(t, scriptedClient(map[string]string{
			"E1": `{"TAG1":"MUSIK","CONFIDENCE":0.9}`,
			"E2": `{"TAG1":"MUSIK","TAG2":"FOREDRAG","CONFIDENCE":0.8}`,
		}), DefaultConfig())

		report, err := engine.Evaluate(context.Background(), []domain.LabeledEvent{
			labeled("E1", "Jazzkoncert i parken", "MUSIK"),
			labeled("E2", "Foredrag om rummet", "FOREDRAG"),
		})
		require.NoError(t, err)

		require.Len(t, report.Rows, 2)
		assert.Equal(t, "E1", report.Rows[0].EventID)
		assert.True(t, report.Rows[0].CorrectAt1)
		assert.False(t, report.Rows[1].CorrectAt1)
		assert.True(t, report.Rows[1].CorrectAt2)

		assert.Equal(t, 0.5, report.Metrics.AccuracyAt1)
		assert.Equal(t, 1.0, report.Metrics.AccuracyAt2)
	})

	t.Run("a failing record does not abort the run", func(t *testing.T) {
		engine := newTestEngine(t, scriptedClient(map[string]string{
			"E1": `{"TAG1":"MUSIK","CONFIDENCE":0.9}`,
		}), DefaultConfig())

		report, err := engine.Evaluate(context.Background(), []domain.LabeledEvent{
			labeled("E1", "Jazzkoncert i parken", "MUSIK"),
			labeled("E2", "ab", "FOREDRAG"),
		})
		require.NoError(t, err)

		require.Len(t, report.Rows, 2)
		assert.True(t, report.Rows[1].Result.Failed())
		assert.NotEmpty(t, report.Rows[1].ErrorMessage)
		assert.Equal(t, 2, report.Metrics.TotalRecords)
		assert.Equal(t, 1, report.Metrics.FailedRecords)
		assert.Equal(t, 1, report.Metrics.CorrectRecords)
	})

	t.Run("empty dataset is a contract violation", func(t *testing.T) {
		engine := newTestEngine(t, scriptedClient(nil), DefaultConfig())
		_, err := engine.Evaluate(context.Background(), nil)
		assert.ErrorIs(t, err, domain.ErrComputation)
	})

	t.Run("untagged ground truth is a contract violation", func(t *testing.T) {
		engine := newTestEngine(t, scriptedClient(nil), DefaultConfig())
		_, err := engine.Evaluate(context.Background(), []domain.LabeledEvent{
			labeled("E1", "Jazzkoncert i parken"),
		})
		assert.ErrorIs(t, err, domain.ErrComputation)
	})
}

func TestEngineConcurrentMatchesSequential(t *testing.T) {
	answers := make(map[string]string)
	dataset := make([]domain.LabeledEvent, 0, 40)
	tags := []string{"MUSIK", "FOREDRAG", "KREATIVE_FAG"}
	for i := 0; i < 40; i++ {
		id := fmt.Sprintf("E%02d", i)
		truth := tags[i%3]
		predicted := tags[(i+i/3)%3]
		answers[id] = fmt.Sprintf(`{"TAG1":%q,"CONFIDENCE":0.8}`, predicted)
		dataset = append(dataset, labeled(id, "Arrangement nummer "+id, truth))
	}

	sequentialCfg := DefaultConfig()
	sequentialCfg.BatchThreshold = 100

	concurrentCfg := DefaultConfig()
	concurrentCfg.BatchThreshold = 1
	concurrentCfg.Concurrency = 8

	seq, err := newTestEngine(t, scriptedClient(answers), sequentialCfg).
		Evaluate(context.Background(), dataset)
	require.NoError(t, err)

	conc, err := newTestEngine(t, scriptedClient(answers), concurrentCfg).
		Evaluate(context.Background(), dataset)
	require.NoError(t, err)

	assert.Equal(t, seq.Metrics, conc.Metrics, "metrics must not depend on execution order")
	require.Len(t, conc.Rows, len(seq.Rows))
	for i := range seq.Rows {
		assert.Equal(t, seq.Rows[i].EventID, conc.Rows[i].EventID)
		assert.Equal(t, seq.Rows[i].CorrectAt1, conc.Rows[i].CorrectAt1)
	}
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	bad := DefaultConfig()
	bad.Concurrency = 0
	assert.ErrorIs(t, bad.Validate(), domain.ErrComputation)
}

func TestMatchDepth(t *testing.T) {
	truth := domain.GroundTruthRecord{Tags: []string{"A", "B"}}

	assert.Equal(t, 1, matchDepth([]string{"A", "C"}, truth))
	assert.Equal(t, 2, matchDepth([]string{"C", "B"}, truth))
	assert.Equal(t, 0, matchDepth([]string{"C", "D", "E"}, truth))
	assert.Equal(t, 0, matchDepth(nil, truth))
}
