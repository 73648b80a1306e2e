package core

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validBody = `{
	"name": "Bulbasaur",
	"type_1": "Grass",
	"type_2": "Poison",
	"total": 318,
	"hp": 45,
	"attack": 49,
	"defense": 49,
	"sp_atk": 65,
	"sp_def": 65,
	"speed": 45,
	"generation": 1,
	"legendary": false
}`

func decodeInput(t *testing.T, body string) RecordInput {
	t.Helper()
	var in RecordInput
	require.NoError(t, json.Unmarshal([]byte(body), &in))
	return in
}

func mutate(t *testing.T, body string, fn func(m map[string]any)) string {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &m))
	fn(m)
	out, err := json.Marshal(m)
	require.NoError(t, err)
	return string(out)
}

func fieldNames(t *testing.T, err error) []string {
	t.Helper()
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	names := make([]string, len(ve.Fields))
	for i, f := range ve.Fields {
		names[i] = f.Field
	}
	return names
}

func TestValidateInput_Valid(t *testing.T) {
	f, err := NewValidator().ValidateInput(decodeInput(t, validBody))
	require.NoError(t, err)

	assert.Equal(t, "Bulbasaur", f.Name)
	require.NotNil(t, f.Type2)
	assert.Equal(t, "Poison", *f.Type2)
	assert.Equal(t, 1, f.Generation)
	assert.False(t, f.Legendary)
}

func TestValidateInput_Defaults(t *testing.T) {
	body := mutate(t, validBody, func(m map[string]any) {
		delete(m, "generation")
		delete(m, "type_2")
		m["id"] = 999
	})

	f, err := NewValidator().ValidateInput(decodeInput(t, body))
	require.NoError(t, err)
	assert.Equal(t, DefaultGeneration, f.Generation)
	assert.Nil(t, f.Type2)
}

func TestValidateInput_Violations(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(m map[string]any)
		fields []string
	}{
		{"name too short", func(m map[string]any) { m["name"] = "A" }, []string{"name"}},
		{"name too long", func(m map[string]any) { m["name"] = "Abcdefghijklmnopqrstuvwxyzabcde" }, []string{"name"}},
		{"speed at lower bound", func(m map[string]any) { m["speed"] = 4 }, []string{"speed"}},
		{"speed at upper bound", func(m map[string]any) { m["speed"] = 200 }, []string{"speed"}},
		{"generation zero", func(m map[string]any) { m["generation"] = 0 }, []string{"generation"}},
		{"generation seven", func(m map[string]any) { m["generation"] = 7 }, []string{"generation"}},
		{"missing hp", func(m map[string]any) { delete(m, "hp") }, []string{"hp"}},
		{"missing legendary", func(m map[string]any) { delete(m, "legendary") }, []string{"legendary"}},
		{
			"several at once",
			func(m map[string]any) {
				delete(m, "type_1")
				m["speed"] = 300
			},
			[]string{"type_1", "speed"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := mutate(t, validBody, tt.mutate)
			_, err := NewValidator().ValidateInput(decodeInput(t, body))
			assert.ElementsMatch(t, tt.fields, fieldNames(t, err))
		})
	}
}

func TestValidateInput_BoundsInclusive(t *testing.T) {
	body := mutate(t, validBody, func(m map[string]any) {
		m["name"] = "Ab"
		m["speed"] = 5
		m["generation"] = 6
	})
	_, err := NewValidator().ValidateInput(decodeInput(t, body))
	require.NoError(t, err)

	body = mutate(t, validBody, func(m map[string]any) {
		m["speed"] = 199
		m["generation"] = 1
	})
	_, err = NewValidator().ValidateInput(decodeInput(t, body))
	require.NoError(t, err)
}

func TestValidateInput_Messages(t *testing.T) {
	body := mutate(t, validBody, func(m map[string]any) { delete(m, "name") })
	_, err := NewValidator().ValidateInput(decodeInput(t, body))

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	require.Len(t, ve.Fields, 1)
	assert.Equal(t, FieldError{Field: "name", Message: "field required"}, ve.Fields[0])
}

func TestPatch_Decode(t *testing.T) {
	var p Patch
	require.NoError(t, json.Unmarshal([]byte(`{"speed": 90, "type_2": null, "unknown": 1}`), &p))

	require.NotNil(t, p.Speed)
	assert.Equal(t, 90, *p.Speed)
	assert.True(t, p.Type2.Set)
	assert.Nil(t, p.Type2.Value)
	assert.Nil(t, p.Name)
	assert.False(t, p.Empty())

	assert.Equal(t, []Assignment{
		{Column: "type_2", Value: (*string)(nil)},
		{Column: "speed", Value: 90},
	}, p.Assignments())
}

func TestPatch_Empty(t *testing.T) {
	var p Patch
	require.NoError(t, json.Unmarshal([]byte(`{}`), &p))
	assert.True(t, p.Empty())
	assert.NoError(t, NewValidator().ValidatePatch(p))
}

func TestPatch_Apply(t *testing.T) {
	f := Fields{Name: "Pichu", Type1: "Electric", Type2: StringPtr("Fairy"), Speed: 60}

	var p Patch
	require.NoError(t, json.Unmarshal([]byte(`{"name": "Pikachu", "type_2": null}`), &p))
	p.Apply(&f)

	assert.Equal(t, "Pikachu", f.Name)
	assert.Nil(t, f.Type2)
	assert.Equal(t, "Electric", f.Type1)
	assert.Equal(t, 60, f.Speed)
}

func TestValidatePatch(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		fields []string
	}{
		{"valid subset", `{"name": "Raichu", "speed": 110}`, nil},
		{"type_2 null allowed", `{"type_2": null}`, nil},
		{"name too short", `{"name": "R"}`, []string{"name"}},
		{"speed out of range", `{"speed": 250}`, []string{"speed"}},
		{"generation out of range", `{"generation": 9}`, []string{"generation"}},
		{"null name rejected", `{"name": null}`, []string{"name"}},
		{"null speed and bad gen", `{"speed": null, "generation": 0}`, []string{"speed", "generation"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p Patch
			require.NoError(t, json.Unmarshal([]byte(tt.body), &p))

			err := NewValidator().ValidatePatch(p)
			if tt.fields == nil {
				assert.NoError(t, err)
				return
			}
			assert.ElementsMatch(t, tt.fields, fieldNames(t, err))
		})
	}
}
