package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.Addr())
	assert.Equal(t, "gpt-4o", cfg.Model)
	assert.InDelta(t, 0.1, cfg.Temperature, 1e-9)
	assert.InDelta(t, 0.7, cfg.ConfidenceThreshold, 1e-9)
	assert.InDelta(t, 0.5, cfg.HumanReviewThreshold, 1e-9)
	assert.Equal(t, [3]float64{0.5, 0.3, 0.2}, cfg.AccuracyWeights)
	assert.Equal(t, 5, cfg.ConfusionTopN)
	assert.Equal(t, 4, cfg.Concurrency)
	assert.Equal(t, "eventtag", cfg.TaskQueue)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("EVENTTAG_PORT", "9090")
	t.Setenv("EVENTTAG_MODEL", "gpt-4o-mini")
	t.Setenv("EVENTTAG_TEMPERATURE", "0.3")
	t.Setenv("EVENTTAG_HTTP_TIMEOUT", "5s")
	t.Setenv("EVENTTAG_HUMAN_REVIEW_THRESHOLD", "0.4")
	t.Setenv("EVENTTAG_ACCURACY_WEIGHTS", "0.6,0.3,0.1")
	t.Setenv("EVENTTAG_CONFUSION_TOPN", "10")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "gpt-4o-mini", cfg.Model)
	assert.InDelta(t, 0.3, cfg.Temperature, 1e-9)
	assert.Equal(t, 5*time.Second, cfg.HTTPTimeout)
	assert.InDelta(t, 0.4, cfg.HumanReviewThreshold, 1e-9)
	assert.Equal(t, [3]float64{0.6, 0.3, 0.1}, cfg.AccuracyWeights)
	assert.Equal(t, 10, cfg.ConfusionTopN)
	assert.Equal(t, "sk-test", cfg.OpenAIAPIKey)
}

func TestLoadMalformedValuesFallBack(t *testing.T) {
	t.Setenv("EVENTTAG_PORT", "not-a-number")
	t.Setenv("EVENTTAG_TEMPERATURE", "hot")
	t.Setenv("EVENTTAG_ACCURACY_WEIGHTS", "0.6,0.4")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.InDelta(t, 0.1, cfg.Temperature, 1e-9)
	assert.Equal(t, [3]float64{0.5, 0.3, 0.2}, cfg.AccuracyWeights, "malformed weights fall back wholesale")
}

func TestConfigValidate(t *testing.T) {
	t.Run("rejects out-of-range port", func(t *testing.T) {
		t.Setenv("EVENTTAG_PORT", "70000")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("rejects out-of-range threshold", func(t *testing.T) {
		t.Setenv("EVENTTAG_CONFIDENCE_THRESHOLD", "1.5")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("rejects zero concurrency", func(t *testing.T) {
		t.Setenv("EVENTTAG_CONCURRENCY", "0")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("rejects out-of-range review threshold", func(t *testing.T) {
		t.Setenv("EVENTTAG_HUMAN_REVIEW_THRESHOLD", "-0.1")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("rejects weights that do not sum to one", func(t *testing.T) {
		t.Setenv("EVENTTAG_ACCURACY_WEIGHTS", "0.5,0.3,0.3")
		_, err := Load()
		assert.Error(t, err)
	})
}
