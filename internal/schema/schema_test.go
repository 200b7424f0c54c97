package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleObject() *Object {
	return NewObject("sample",
		String("name").Describe("display name").MarkRequired(),
		String("color").OneOf("red", "green"),
		Integer("count").WithDefault(float64(3)),
		Boolean("enabled"),
		String("note").MarkNullable(),
	)
}

func TestJSONRendersDeclaredFields(t *testing.T) {
	doc := sampleObject().JSON()

	assert.Equal(t, "object", doc["type"])
	assert.Equal(t, "sample", doc["title"])
	assert.Equal(t, []string{"name"}, doc["required"])

	props := doc["properties"].(map[string]any)
	require.Len(t, props, 5)

	color := props["color"].(map[string]any)
	assert.Equal(t, "string", color["type"])
	assert.Equal(t, []string{"red", "green"}, color["enum"])

	note := props["note"].(map[string]any)
	assert.Equal(t, true, note["nullable"])

	name := props["name"].(map[string]any)
	assert.Equal(t, "display name", name["description"])
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		values  map[string]any
		wantErr bool
	}{
		{"minimal", map[string]any{"name": "a"}, false},
		{"missing required", map[string]any{"color": "red"}, true},
		{"enum mismatch", map[string]any{"name": "a", "color": "blue"}, true},
		{"wrong kind", map[string]any{"name": 4.0}, true},
		{"fractional integer", map[string]any{"name": "a", "count": 1.5}, true},
		{"boolean", map[string]any{"name": "a", "enabled": true}, false},
		{"nullable null", map[string]any{"name": "a", "note": nil}, false},
		{"nil object", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := sampleObject().Validate(tt.values)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalid)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDecodeAppliesDefaults(t *testing.T) {
	var out struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}
	err := sampleObject().Decode([]byte(`{"name":"widget"}`), &out)
	require.NoError(t, err)
	assert.Equal(t, "widget", out.Name)
	assert.Equal(t, 3, out.Count)
}

func TestDecodeRejectsNonObject(t *testing.T) {
	var out map[string]any
	assert.Error(t, sampleObject().Decode([]byte(`[1,2]`), &out))
	assert.Error(t, sampleObject().Decode([]byte(`{"name":`), &out))
}
