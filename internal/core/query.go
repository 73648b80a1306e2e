package core

import (
	"math"
	"strconv"
	"strings"
)

// Listing defaults applied when a query parameter is absent.
const (
	DefaultSortOrder    = "asc"
	DefaultSearchColumn = "name"
	DefaultLimit        = 10
	DefaultPage         = 1
)

// Column is one searchable record attribute.
type Column struct {
	Name string // JSON attribute and database column name

	// Text returns the attribute's text form used for substring search.
	// The second result is false when the value is NULL.
	Text func(r Record) (string, bool)
}

func intColumn(name string, get func(Record) int) Column {
	return Column{Name: name, Text: func(r Record) (string, bool) {
		return strconv.Itoa(get(r)), true
	}}
}

// Columns lists every record attribute in storage order.
var Columns = []Column{
	{Name: "id", Text: func(r Record) (string, bool) { return strconv.FormatInt(r.ID, 10), true }},
	{Name: "name", Text: func(r Record) (string, bool) { return r.Name, true }},
	{Name: "type_1", Text: func(r Record) (string, bool) { return r.Type1, true }},
	{Name: "type_2", Text: func(r Record) (string, bool) {
		if r.Type2 == nil {
			return "", false
		}
		return *r.Type2, true
	}},
	intColumn("total", func(r Record) int { return r.Total }),
	intColumn("hp", func(r Record) int { return r.HP }),
	intColumn("attack", func(r Record) int { return r.Attack }),
	intColumn("defense", func(r Record) int { return r.Defense }),
	intColumn("sp_atk", func(r Record) int { return r.SpAtk }),
	intColumn("sp_def", func(r Record) int { return r.SpDef }),
	intColumn("speed", func(r Record) int { return r.Speed }),
	intColumn("generation", func(r Record) int { return r.Generation }),
	{Name: "legendary", Text: func(r Record) (string, bool) { return strconv.FormatBool(r.Legendary), true }},
}

var columnsByName = func() map[string]Column {
	m := make(map[string]Column, len(Columns))
	for _, c := range Columns {
		m[c.Name] = c
	}
	return m
}()

// LookupColumn resolves a column name case-insensitively.
func LookupColumn(name string) (Column, bool) {
	c, ok := columnsByName[strings.ToLower(strings.TrimSpace(name))]
	return c, ok
}

// ColumnNames returns the attribute names in storage order.
func ColumnNames() []string {
	names := make([]string, len(Columns))
	for i, c := range Columns {
		names[i] = c.Name
	}
	return names
}

// ListParams are the raw listing inputs.
type ListParams struct {
	SortOrder    string
	SearchColumn string
	Keyword      string
	Limit        int
	Page         int
}

// DefaultListParams returns the parameters used when none are supplied.
func DefaultListParams() ListParams {
	return ListParams{
		SortOrder:    DefaultSortOrder,
		SearchColumn: DefaultSearchColumn,
		Limit:        DefaultLimit,
		Page:         DefaultPage,
	}
}

// Search is a case-insensitive substring filter on one column.
type Search struct {
	Column  Column
	Keyword string
}

// Matches reports whether r's column value contains the keyword.
func (s Search) Matches(r Record) bool {
	text, ok := s.Column.Text(r)
	if !ok {
		return false
	}
	return strings.Contains(strings.ToLower(text), strings.ToLower(s.Keyword))
}

// ListQuery is a resolved listing request: optional filter, order by id,
// then limit/offset.
type ListQuery struct {
	Descending bool
	Search     *Search
	Limit      int
	Offset     int
}

// Empty reports whether the query can only produce an empty page.
func (q ListQuery) Empty() bool {
	return q.Limit <= 0
}

// BuildListQuery resolves listing parameters.
//
// Any sort order other than "asc" (case-insensitive) sorts descending.
// The search column is only resolved when a keyword is present. A page
// below 1 is treated as page 1.
func BuildListQuery(p ListParams) (ListQuery, error) {
	sortOrder := p.SortOrder
	if sortOrder == "" {
		sortOrder = DefaultSortOrder
	}

	q := ListQuery{
		Descending: !strings.EqualFold(sortOrder, "asc"),
		Limit:      p.Limit,
	}

	if p.Keyword != "" {
		name := p.SearchColumn
		if name == "" {
			name = DefaultSearchColumn
		}
		col, ok := LookupColumn(name)
		if !ok {
			return ListQuery{}, &InvalidColumnError{Column: name}
		}
		q.Search = &Search{Column: col, Keyword: p.Keyword}
	}

	page := p.Page
	if page < 1 {
		page = 1
	}
	if q.Limit > 0 {
		if page-1 > math.MaxInt32/q.Limit {
			q.Offset = math.MaxInt32
		} else {
			q.Offset = (page - 1) * q.Limit
		}
	}

	return q, nil
}
