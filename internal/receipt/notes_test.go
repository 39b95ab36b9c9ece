package receipt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractNotes(t *testing.T) {
	tests := []struct {
		name  string
		plain string
		want  string
	}{
		{"empty input", "", ""},
		{"no delimiter", "Groceries\nsome forwarded text", ""},
		{"single line", "Groceries\n" + ForwardDelimiter + "\nrest", "Groceries"},
		{"whitespace only", "  \n\t \n" + ForwardDelimiter + "\nrest", ""},
		{"delimiter first", ForwardDelimiter + "\nFrom: PayPal", ""},
		{"multi line", "\n  Lunch with Sam\nsplit 50/50  \n\n" + ForwardDelimiter + "\nrest", "Lunch with Sam\nsplit 50/50"},
		{"first delimiter wins", "Coffee\n" + ForwardDelimiter + "\nolder note\n" + ForwardDelimiter, "Coffee"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractNotes(tt.plain)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, ExtractNotes(tt.plain))
		})
	}
}
