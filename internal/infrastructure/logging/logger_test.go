package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name   string
		logger string
	}{
		{name: "zap", logger: "zap"},
		{name: "zerolog", logger: "zerolog"},
		{name: "nop", logger: "nop"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewLogger(&LoggerConfig{Logger: tt.logger, Level: "error", Encoding: "json"})
			require.NotNil(t, l)

			assert.NotPanics(t, func() {
				l.Debug(Session, JoinRoom, "joined", map[ExtraKey]any{RoomCode: "K3P9QZ"})
				l.Infof("rooms: %d", 3)
			})
		})
	}
}

func TestNewLogger_Unsupported(t *testing.T) {
	assert.Panics(t, func() {
		NewLogger(&LoggerConfig{Logger: "logrus"})
	})
}

func TestWithCategory(t *testing.T) {
	extra := map[ExtraKey]any{ConnectionID: "c-1"}

	params := withCategory(WebSocket, Write, extra)

	assert.Equal(t, "WebSocket", params["Category"])
	assert.Equal(t, "Write", params["SubCategory"])
	assert.Equal(t, "c-1", params[ConnectionID])
	assert.Len(t, extra, 1, "input map must not be modified")
}

func TestLogParamsToZapParams(t *testing.T) {
	params := logParamsToZapParams(map[ExtraKey]any{RoomCode: "ABCDEF"})
	assert.Equal(t, []any{"RoomCode", "ABCDEF"}, params)
}
