package core

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const externalSample = `[
	{"Name": "Bulbasaur", "Type 1": "Grass", "Type 2": "Poison", "Total": 318, "HP": 45,
	 "Attack": 49, "Defense": 49, "Sp. Atk": 65, "Sp. Def": 65, "Speed": 45,
	 "Generation": 1, "Legendary": false},
	{"Name": "Charmander", "Type 1": "Fire", "Total": "309", "HP": "39",
	 "Attack": 52, "Defense": 43, "Sp. Atk": 60, "Sp. Def": 50, "Speed": 65,
	 "Generation": 1.0, "Legendary": "False"},
	{"Name": "Mewtwo", "Type 1": "Psychic", "Type 2": null, "Total": 680, "HP": 106,
	 "Attack": 110, "Defense": 90, "Sp. Atk": 154, "Sp. Def": 90, "Speed": 130,
	 "Generation": 1, "Legendary": "True"}
]`

func TestMapExternal(t *testing.T) {
	records, err := DecodeExternal([]byte(externalSample))
	require.NoError(t, err)
	require.Len(t, records, 3)

	bulba, err := MapExternal(0, records[0])
	require.NoError(t, err)
	assert.Equal(t, Fields{
		Name: "Bulbasaur", Type1: "Grass", Type2: StringPtr("Poison"), Total: 318, HP: 45,
		Attack: 49, Defense: 49, SpAtk: 65, SpDef: 65, Speed: 45, Generation: 1,
	}, bulba)

	char, err := MapExternal(1, records[1])
	require.NoError(t, err)
	assert.Nil(t, char.Type2)
	assert.Equal(t, 309, char.Total)
	assert.Equal(t, 39, char.HP)
	assert.Equal(t, 1, char.Generation)
	assert.False(t, char.Legendary)

	mewtwo, err := MapExternal(2, records[2])
	require.NoError(t, err)
	assert.Nil(t, mewtwo.Type2)
	assert.True(t, mewtwo.Legendary)
}

func TestMapExternal_Errors(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantField string
	}{
		{"missing name", `{"Type 1": "Fire"}`, "Name"},
		{"null speed", `{"Name": "A", "Type 1": "B", "Total": 1, "HP": 1, "Attack": 1, "Defense": 1,
			"Sp. Atk": 1, "Sp. Def": 1, "Speed": null, "Generation": 1, "Legendary": true}`, "Speed"},
		{"fractional total", `{"Name": "A", "Type 1": "B", "Total": 1.5}`, "Total"},
		{"non numeric hp", `{"Name": "A", "Type 1": "B", "Total": 1, "HP": "lots"}`, "HP"},
		{"bad legendary", `{"Name": "A", "Type 1": "B", "Total": 1, "HP": 1, "Attack": 1, "Defense": 1,
			"Sp. Atk": 1, "Sp. Def": 1, "Speed": 1, "Generation": 1, "Legendary": "maybe"}`, "Legendary"},
		{"type 2 wrong type", `{"Name": "A", "Type 1": "B", "Type 2": 4}`, "Type 2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := DecodeExternal([]byte("[" + tt.body + "]"))
			require.NoError(t, err)

			_, err = MapExternal(4, records[0])
			var mapErr *MappingError
			require.ErrorAs(t, err, &mapErr)
			assert.Equal(t, tt.wantField, mapErr.Field)
			assert.Equal(t, 4, mapErr.Index)
		})
	}
}

func TestHTTPSource_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(externalSample))
	}))
	defer srv.Close()

	src := NewHTTPSource(srv.URL, time.Second, 1<<20)
	records, err := src.Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 3)
	assert.Equal(t, srv.URL, src.Name())
}

func TestHTTPSource_FetchErrors(t *testing.T) {
	tests := []struct {
		name     string
		handler  http.HandlerFunc
		maxBytes int64
	}{
		{
			name: "non 2xx status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "gone", http.StatusNotFound)
			},
		},
		{
			name: "invalid json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"not": "an array"`))
			},
		},
		{
			name: "body too large",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("[" + strings.Repeat(" ", 64) + "]"))
			},
			maxBytes: 16,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			_, err := NewHTTPSource(srv.URL, time.Second, tt.maxBytes).Fetch(context.Background())
			var fetchErr *FetchError
			require.ErrorAs(t, err, &fetchErr)
			assert.Equal(t, srv.URL, fetchErr.Source)
		})
	}
}

func TestHTTPSource_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewHTTPSource(url, time.Second, 0).Fetch(context.Background())
	var fetchErr *FetchError
	assert.ErrorAs(t, err, &fetchErr)
}

func TestNewHTTPSource_DefaultURL(t *testing.T) {
	assert.Equal(t, DefaultImportSource, NewHTTPSource("", time.Second, 0).URL)
}

func TestDecodeExternal_SkipsBOM(t *testing.T) {
	data := append([]byte{0xEF, 0xBB, 0xBF}, externalSample...)

	records, err := DecodeExternal(data)
	require.NoError(t, err)
	assert.Len(t, records, 3)
}
