package models

import (
	"math"
	"net/url"
	"strconv"
	"strings"
)

// Sort keys accepted by the catalog.
const (
	SortPriceLow  = "price-low"
	SortPriceHigh = "price-high"
	SortTopRated  = "top-rated"
)

// MaxPage caps the requested page so the skip offset cannot overflow.
// Any page this far out is past the end of the catalog anyway.
const MaxPage = math.MaxInt32

// ProductQuery is a parsed catalog request. Nil price bounds mean "no bound".
type ProductQuery struct {
	Keyword   string
	Category  string
	Author    string
	Publisher string
	Binding   string
	SortBy    string
	MinPrice  *float64
	MaxPrice  *float64
	Page      int
}

// ParseProductQuery reads catalog parameters from a query string.
// Malformed numbers are dropped instead of rejected and the page falls back to 1.
func ParseProductQuery(values url.Values) ProductQuery {
	q := ProductQuery{
		Keyword:   strings.TrimSpace(values.Get("keyword")),
		Category:  values.Get("category"),
		Author:    values.Get("author"),
		Publisher: values.Get("publisher"),
		Binding:   values.Get("binding"),
		SortBy:    values.Get("sortBy"),
		MinPrice:  parsePrice(values.Get("minPrice")),
		MaxPrice:  parsePrice(values.Get("maxPrice")),
		Page:      1,
	}

	if page, err := strconv.ParseInt(values.Get("pageNumber"), 10, 64); err == nil && page > 0 {
		if page > MaxPage {
			page = MaxPage
		}
		q.Page = int(page)
	}

	return q
}

func parsePrice(raw string) *float64 {
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
