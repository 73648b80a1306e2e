// Package views renders the HTML browse page. Components live in .templ
// files; run `templ generate` after editing them.
package views

import (
	"net/url"
	"strconv"

	"github.com/JonMunkholm/pokedex/internal/core"
)

// BrowseData is everything the browse page shows.
type BrowseData struct {
	Records []core.Record
	Params  core.ListParams
	Error   *core.UserMessage // set when the listing failed
}

var sortOrders = []string{"asc", "desc"}

func cellText(col core.Column, rec core.Record) string {
	v, _ := col.Text(rec)
	return v
}

func currentPage(p core.ListParams) int {
	if p.Page < 1 {
		return 1
	}
	return p.Page
}

// hasNextPage reports whether a next link makes sense: only a full page
// can have a successor.
func hasNextPage(p core.ListParams, count int) bool {
	return p.Limit > 0 && count >= p.Limit
}

func pageURL(p core.ListParams, page int) string {
	q := url.Values{}
	q.Set("sort_order", p.SortOrder)
	q.Set("search_column", p.SearchColumn)
	if p.Keyword != "" {
		q.Set("keyword", p.Keyword)
	}
	q.Set("limit", strconv.Itoa(p.Limit))
	q.Set("page", strconv.Itoa(page))
	return "/?" + q.Encode()
}
