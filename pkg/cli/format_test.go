package cli

import (
	"strings"
	"testing"
)

// Color helpers must always preserve the wrapped text, with or without
// ANSI escapes around it.
func TestColorsPreserveText(t *testing.T) {
	tests := []struct {
		name string
		fn   func(string) string
	}{
		{"Green", Green},
		{"Yellow", Yellow},
		{"Red", Red},
		{"Bold", Bold},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.fn("status")
			if !strings.Contains(got, "status") {
				t.Errorf("%s(%q) = %q, text lost", tt.name, "status", got)
			}
		})
	}
}
