package logging

import (
	"go.uber.org/zap"
)

// NewNop returns a Logger that discards everything. Fatal still exits.
func NewNop() Logger {
	return &zapLogger{cfg: &LoggerConfig{}, logger: zap.NewNop().Sugar()}
}
