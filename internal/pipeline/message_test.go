package pipeline

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeMessage(t *testing.T) {
	raw := []byte(`{
		"html": "<p>hi</p>",
		"plain": "hi",
		"headers": {
			"Subject": "Receipt for your PayPal Debit Card purchase",
			"received": ["by mx1", "by mx2"]
		}
	}`)

	msg, err := DecodeMessage(raw)
	require.NoError(t, err)
	assert.Equal(t, "<p>hi</p>", msg.HTML)
	assert.Equal(t, "hi", msg.Plain)
	assert.Equal(t, "Receipt for your PayPal Debit Card purchase", msg.Subject)
}

func TestDecodeMessage_RepeatedSubjectHeader(t *testing.T) {
	msg, err := DecodeMessage([]byte(`{"headers": {"subject": ["first", "second"]}}`))
	require.NoError(t, err)
	assert.Equal(t, "first", msg.Subject)
}

func TestDecodeMessage_MissingFieldsAreEmpty(t *testing.T) {
	msg, err := DecodeMessage([]byte(`{"plain": "only plain"}`))
	require.NoError(t, err)
	assert.Empty(t, msg.HTML)
	assert.Empty(t, msg.Subject)
}

func TestDecodeMessage_Invalid(t *testing.T) {
	for _, raw := range []string{"", "{}", "{", "null", `{"html": 42}`} {
		t.Run(raw, func(t *testing.T) {
			_, err := DecodeMessage([]byte(raw))
			var shapeErr *ShapeError
			assert.True(t, errors.As(err, &shapeErr), "got %v", err)
		})
	}
}

func TestEmailHash(t *testing.T) {
	assert.Equal(t, "no-html", EmailHash(""))

	h := EmailHash("<html></html>")
	assert.Len(t, h, 16)
	assert.Equal(t, h, EmailHash("<html></html>"))
	assert.NotEqual(t, h, EmailHash("<html> </html>"))
}
