package logger

import (
	"testing"

	"github.com/sirupsen/logrus"
)

func TestInitialize(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		format  string
		wantErr bool
	}{
		{name: "debug json", level: "debug", format: "json", wantErr: false},
		{name: "info text", level: "info", format: "text", wantErr: false},
		{name: "invalid level", level: "loud", format: "text", wantErr: true},
		{name: "invalid format", level: "info", format: "xml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Initialize(tt.level, tt.format)
			if (err != nil) != tt.wantErr {
				t.Errorf("Initialize(%q, %q) error = %v, wantErr %v", tt.level, tt.format, err, tt.wantErr)
			}
		})
	}
}

func TestInitializeSetsLevel(t *testing.T) {
	if err := Initialize("warn", "text"); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if got := Get().GetLevel(); got != logrus.WarnLevel {
		t.Errorf("level = %v, want warn", got)
	}

	// Restore default for other tests
	if err := Initialize("info", "text"); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
}

func TestWithFields(t *testing.T) {
	entry := WithFields(logrus.Fields{"component": "test"})
	if entry == nil {
		t.Fatal("WithFields() returned nil")
	}
	if entry.Data["component"] != "test" {
		t.Errorf("entry field = %v, want test", entry.Data["component"])
	}
}
