package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNew_Levels(t *testing.T) {
	for _, format := range []string{"console", "json"} {
		log, err := New("warn", format)
		if err != nil {
			t.Fatalf("New(warn, %s): %v", format, err)
		}
		if log.Core().Enabled(zapcore.InfoLevel) {
			t.Errorf("%s logger at warn should not log info", format)
		}
		if !log.Core().Enabled(zapcore.ErrorLevel) {
			t.Errorf("%s logger at warn should log errors", format)
		}
	}
}

func TestNew_InvalidLevel(t *testing.T) {
	if _, err := New("loud", "console"); err == nil {
		t.Error("expected error for unknown level")
	}
	if Must("loud", "console") == nil {
		t.Error("Must should fall back to a no-op logger")
	}
}
