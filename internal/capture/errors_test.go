package capture

import (
	"strings"
	"testing"
)

func TestDescribe(t *testing.T) {
	tests := []struct {
		code string
		want string
	}{
		{CodeNotAllowed, "Microphone access denied"},
		{CodeNoSpeech, "No speech detected"},
		{CodeAudioCapture, "No microphone found"},
		{CodeNetwork, "Network error"},
		{"aborted", "Speech recognition error: aborted"},
		{"", "Speech recognition error."},
	}
	for _, tt := range tests {
		if got := Describe(tt.code); !strings.Contains(got, tt.want) {
			t.Errorf("Describe(%q) = %q, want it to contain %q", tt.code, got, tt.want)
		}
	}
}

func TestTerminal(t *testing.T) {
	for code, want := range map[string]bool{
		CodeNotAllowed:   true,
		CodeAudioCapture: true,
		CodeNoSpeech:     false,
		CodeNetwork:      false,
		"aborted":        false,
	} {
		if got := Terminal(code); got != want {
			t.Errorf("Terminal(%q) = %v, want %v", code, got, want)
		}
	}
}
