package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// DefaultImportSource is the public dataset imported when no URL is configured.
const DefaultImportSource = "https://coralvanda.github.io/pokemon_data.json"

// External field names in the remote dataset.
const (
	extName       = "Name"
	extType1      = "Type 1"
	extType2      = "Type 2"
	extTotal      = "Total"
	extHP         = "HP"
	extAttack     = "Attack"
	extDefense    = "Defense"
	extSpAtk      = "Sp. Atk"
	extSpDef      = "Sp. Def"
	extSpeed      = "Speed"
	extGeneration = "Generation"
	extLegendary  = "Legendary"
)

// ExternalRecord is one object from the remote dataset, keyed by its
// original field names.
type ExternalRecord map[string]json.RawMessage

// Source produces the external dataset for a bulk import.
type Source interface {
	Fetch(ctx context.Context) ([]ExternalRecord, error)
	Name() string
}

// HTTPSource fetches a JSON array over HTTP.
type HTTPSource struct {
	URL      string
	MaxBytes int64
	client   *http.Client
}

// NewHTTPSource creates a source for url. Responses larger than maxBytes
// are rejected.
func NewHTTPSource(url string, timeout time.Duration, maxBytes int64) *HTTPSource {
	if url == "" {
		url = DefaultImportSource
	}
	return &HTTPSource{
		URL:      url,
		MaxBytes: maxBytes,
		client:   &http.Client{Timeout: timeout},
	}
}

// Name returns the source URL.
func (s *HTTPSource) Name() string {
	return s.URL
}

// Fetch downloads and decodes the dataset. Every failure is a *FetchError.
func (s *HTTPSource) Fetch(ctx context.Context) ([]ExternalRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, &FetchError{Source: s.URL, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &FetchError{Source: s.URL, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{Source: s.URL, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}

	var body io.Reader = resp.Body
	if s.MaxBytes > 0 {
		body = io.LimitReader(resp.Body, s.MaxBytes+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, &FetchError{Source: s.URL, Err: fmt.Errorf("read body: %w", err)}
	}
	if s.MaxBytes > 0 && int64(len(data)) > s.MaxBytes {
		return nil, &FetchError{Source: s.URL, Err: fmt.Errorf("response exceeds %d bytes", s.MaxBytes)}
	}

	records, err := DecodeExternal(data)
	if err != nil {
		return nil, &FetchError{Source: s.URL, Err: err}
	}
	return records, nil
}

// utf8BOM is sometimes prepended by static file hosts; encoding/json rejects it.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// DecodeExternal parses a JSON array of external records.
func DecodeExternal(data []byte) ([]ExternalRecord, error) {
	data = bytes.TrimPrefix(data, utf8BOM)

	var records []ExternalRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	return records, nil
}

// MapExternal converts one external record into record fields.
// index is the record's position in the dataset and is reported on failure.
func MapExternal(index int, rec ExternalRecord) (Fields, error) {
	var (
		f   Fields
		err error
	)

	if f.Name, err = extString(index, rec, extName); err != nil {
		return Fields{}, err
	}
	if f.Type1, err = extString(index, rec, extType1); err != nil {
		return Fields{}, err
	}
	if raw, ok := rec[extType2]; ok && !isNull(raw) {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return Fields{}, &MappingError{Index: index, Field: extType2, Err: errors.New("expected string")}
		}
		f.Type2 = &s
	}

	ints := []struct {
		key string
		dst *int
	}{
		{extTotal, &f.Total},
		{extHP, &f.HP},
		{extAttack, &f.Attack},
		{extDefense, &f.Defense},
		{extSpAtk, &f.SpAtk},
		{extSpDef, &f.SpDef},
		{extSpeed, &f.Speed},
		{extGeneration, &f.Generation},
	}
	for _, it := range ints {
		if *it.dst, err = extInt(index, rec, it.key); err != nil {
			return Fields{}, err
		}
	}

	if f.Legendary, err = extBool(index, rec, extLegendary); err != nil {
		return Fields{}, err
	}

	return f, nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func extRaw(index int, rec ExternalRecord, key string) (json.RawMessage, error) {
	raw, ok := rec[key]
	if !ok || isNull(raw) {
		return nil, &MappingError{Index: index, Field: key}
	}
	return raw, nil
}

func extString(index int, rec ExternalRecord, key string) (string, error) {
	raw, err := extRaw(index, rec, key)
	if err != nil {
		return "", err
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", &MappingError{Index: index, Field: key, Err: errors.New("expected string")}
	}
	return s, nil
}

// extInt accepts an integral JSON number or a numeric string.
func extInt(index int, rec ExternalRecord, key string) (int, error) {
	raw, err := extRaw(index, rec, key)
	if err != nil {
		return 0, err
	}

	text := strings.TrimSpace(string(raw))
	if unq, err := strconv.Unquote(text); err == nil {
		text = strings.TrimSpace(unq)
	}

	if n, err := strconv.Atoi(text); err == nil {
		return n, nil
	}
	if fl, err := strconv.ParseFloat(text, 64); err == nil && fl == float64(int(fl)) {
		return int(fl), nil
	}
	return 0, &MappingError{Index: index, Field: key, Err: fmt.Errorf("expected integer, got %s", string(raw))}
}

// extBool accepts a JSON boolean or a string such as "True" or "false".
func extBool(index int, rec ExternalRecord, key string) (bool, error) {
	raw, err := extRaw(index, rec, key)
	if err != nil {
		return false, err
	}

	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if parsed, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return parsed, nil
		}
	}
	return false, &MappingError{Index: index, Field: key, Err: fmt.Errorf("expected boolean, got %s", string(raw))}
}
