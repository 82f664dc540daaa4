package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompose(t *testing.T) {
	name := Field("name",
		Required(),
		MaxRunes(5),
		Printable(),
	)

	tests := []struct {
		name    string
		value   string
		wantErr string
	}{
		{name: "valid", value: "Alice"},
		{name: "unicode counted as runes", value: "Zoë🙂"},
		{name: "blank", value: "   ", wantErr: "name: this field is required"},
		{name: "too long", value: "Alexander", wantErr: "name: must be no more than 5 characters"},
		{name: "control chars", value: "a\nb", wantErr: "name: must not contain control characters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := name(tt.value)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.EqualError(t, err, tt.wantErr)
		})
	}
}

func TestMatches(t *testing.T) {
	code := Matches(`^[A-Z2-9]{6}$`, "invalid room code")

	assert.NoError(t, code("K3P9QZ"))
	assert.EqualError(t, code("k3p9"), "invalid room code")
	assert.EqualError(t, Matches(`^a$`, "")("b"), "invalid format")
}

func TestLengthBetween(t *testing.T) {
	v := LengthBetween(2, 3)

	assert.Error(t, v("a"))
	assert.NoError(t, v("ab"))
	assert.NoError(t, v("abc"))
	assert.Error(t, v("abcd"))
}
