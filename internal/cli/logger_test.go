package cli

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/runbookhq/opsagent/internal/logging"
)

func TestSelectLevel(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		quiet   bool
		want    zerolog.Level
	}{
		{"default", false, false, zerolog.InfoLevel},
		{"verbose", true, false, zerolog.DebugLevel},
		{"quiet", false, true, zerolog.WarnLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, selectLevel(tt.verbose, tt.quiet))
		})
	}
}

func TestInitLoggerWithWriter(t *testing.T) {
	t.Run("respects the level", func(t *testing.T) {
		var buf bytes.Buffer
		logger := InitLoggerWithWriter(false, true, &buf)

		logger.Info().Msg("hidden")
		logger.Warn().Msg("visible")

		out := buf.String()
		assert.NotContains(t, out, "hidden")
		assert.Contains(t, out, "visible")
	})

	t.Run("redacts credentials in messages", func(t *testing.T) {
		var buf bytes.Buffer
		logger := InitLoggerWithWriter(false, false, &buf)

		logger.Info().Msg("running aws iam update-login-profile --password Hunter2Hunter2")

		out := buf.String()
		assert.NotContains(t, out, "Hunter2Hunter2")
		assert.Contains(t, out, logging.RedactedValue)
	})
}

func TestCreateLogFileWriter(t *testing.T) {
	path := t.TempDir() + "/logs/opsagent.log"

	w, err := createLogFileWriter(path)
	assert.NoError(t, err)
	if w != nil {
		_, err = w.Write([]byte("hello\n"))
		assert.NoError(t, err)
		assert.NoError(t, w.Close())
	}
}
