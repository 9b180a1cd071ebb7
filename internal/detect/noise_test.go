package detect

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsNoise(t *testing.T) {
	tests := []struct {
		name      string
		candidate string
		want      bool
	}{
		{"exact phrase", "CONTINUED", true},
		{"exact transition", "CUT TO", true},
		{"phrase with colon", "FADE IN:", true},
		{"phrase with trailing words", "CUT TO BLACK", true},
		{"phrase with colon and words", "BACK TO: THE BAR", true},
		{"voice over marker", "V.O.", true},
		{"lower case input", "fade out", true},
		{"surrounding whitespace", "  DISSOLVE TO  ", true},
		{"empty candidate", "", true},
		{"blank candidate", "   ", true},
		{"shared prefix, no separator", "FADED", false},
		{"shared prefix, no separator 2", "PANEL", false},
		{"shared prefix, no separator 3", "CUTLASS", false},
		{"ordinary character name", "JOHN", false},
		{"multi word name", "JOHN SMITH", false},
		{"prop name", "REVOLVER", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsNoise(tt.candidate))
		})
	}
}
