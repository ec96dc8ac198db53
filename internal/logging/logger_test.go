package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelFromEnv(t *testing.T) {
	tests := []struct {
		value string
		want  logrus.Level
	}{
		{"debug", logrus.DebugLevel},
		{"WARN", logrus.WarnLevel},
		{"error", logrus.ErrorLevel},
		{"", logrus.InfoLevel},
		{"verbose", logrus.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("LOG_LEVEL", tt.value)
			assert.Equal(t, tt.want, LevelFromEnv())
		})
	}
}

func TestNewLoggerWithComponent_StampsField(t *testing.T) {
	logger := NewLoggerWithComponent("collector")
	var buf bytes.Buffer
	logger.SetOutput(&buf)

	logger.WithField("url", "https://example.com").Info("scraped")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "collector", entry["component"])
	assert.Equal(t, "https://example.com", entry["url"])
	assert.Equal(t, "scraped", entry["msg"])
}

func TestFieldHook_DoesNotOverwrite(t *testing.T) {
	logger := NewLoggerWithComponent("pipeline")
	var buf bytes.Buffer
	logger.SetOutput(&buf)

	logger.WithField("component", "selector").Warn("fallback")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "selector", entry["component"])
}
