package filter

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, raw string) any {
	t.Helper()
	var v any
	require.NoError(t, json.Unmarshal([]byte(raw), &v))
	return v
}

func TestProject(t *testing.T) {
	body := decode(t, `{"data":{"id":7,"tags":["a","b"]},"items":[{"name":"x","active":true},{"name":"y","active":false}],"generated_at":"2024-01-01"}`)

	tests := []struct {
		name       string
		expression string
		want       any
	}{
		{"empty expression", "", body},
		{"nested field", "data.id", 7.0},
		{"object projection", "data", map[string]any{"id": 7.0, "tags": []any{"a", "b"}}},
		{"list projection", "items[].name", []any{"x", "y"}},
		{"filter", "items[?active].name", []any{"x"}},
		{"multiselect drops volatile keys", "{id: data.id}", map[string]any{"id": 7.0}},
		{"missing key", "nope", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Project(body, tt.expression)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestProject_InvalidExpression(t *testing.T) {
	_, err := Project(map[string]any{}, "data[")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid JMESPath expression")
}

func TestCompile(t *testing.T) {
	assert.NoError(t, Compile("items[0].name"))
	assert.Error(t, Compile("items[0"))
}
