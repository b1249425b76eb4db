package sanitizer

import (
	"strings"
	"testing"
)

func TestSanitizeText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain", input: "chest pain", want: "chest pain"},
		{name: "trim", input: "  fever  ", want: "fever"},
		{name: "collapse whitespace", input: "severe\t\n  headache", want: "severe headache"},
		{name: "strip control chars", input: "dizzi\x00ness", want: "dizziness"},
		{name: "empty", input: "   ", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeText(tt.input); got != tt.want {
				t.Errorf("SanitizeText(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitizeTextTruncates(t *testing.T) {
	long := strings.Repeat("a", maxTextLength+100)
	if got := SanitizeText(long); len(got) != maxTextLength {
		t.Errorf("expected truncation to %d, got %d", maxTextLength, len(got))
	}
}

func TestSanitizeTextSlice(t *testing.T) {
	got := SanitizeTextSlice([]string{" cough ", "", "\t", "sore  throat"})
	if len(got) != 2 || got[0] != "cough" || got[1] != "sore throat" {
		t.Errorf("unexpected result: %v", got)
	}

	if SanitizeTextSlice(nil) != nil {
		t.Error("expected nil for nil input")
	}
	if SanitizeTextSlice([]string{"  "}) != nil {
		t.Error("expected nil when all elements are empty")
	}
}
