package models

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProductQuery(t *testing.T) {
	q := ParseProductQuery(url.Values{
		"keyword":    {"  nectar "},
		"category":   {"Seerah"},
		"author":     {"Imam An-Nawawi"},
		"publisher":  {"Darussalam"},
		"binding":    {"Hardcover"},
		"sortBy":     {SortPriceHigh},
		"minPrice":   {"100"},
		"maxPrice":   {"450.5"},
		"pageNumber": {"3"},
	})

	assert.Equal(t, "nectar", q.Keyword)
	assert.Equal(t, "Seerah", q.Category)
	assert.Equal(t, "Imam An-Nawawi", q.Author)
	assert.Equal(t, "Darussalam", q.Publisher)
	assert.Equal(t, "Hardcover", q.Binding)
	assert.Equal(t, SortPriceHigh, q.SortBy)
	require.NotNil(t, q.MinPrice)
	require.NotNil(t, q.MaxPrice)
	assert.Equal(t, 100.0, *q.MinPrice)
	assert.Equal(t, 450.5, *q.MaxPrice)
	assert.Equal(t, 3, q.Page)
}

func TestParseProductQueryCoercesMalformedNumbers(t *testing.T) {
	tests := []struct {
		name   string
		values url.Values
	}{
		{"empty", url.Values{}},
		{"garbage", url.Values{"minPrice": {"cheap"}, "maxPrice": {"1e"}, "pageNumber": {"two"}}},
		{"not finite", url.Values{"minPrice": {"NaN"}, "maxPrice": {"Inf"}, "pageNumber": {"0"}}},
		{"negative page", url.Values{"pageNumber": {"-4"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := ParseProductQuery(tt.values)
			assert.Nil(t, q.MinPrice)
			assert.Nil(t, q.MaxPrice)
			assert.Equal(t, 1, q.Page)
		})
	}
}

func TestParseProductQueryZeroPriceIsABound(t *testing.T) {
	q := ParseProductQuery(url.Values{"minPrice": {"0"}})

	require.NotNil(t, q.MinPrice)
	assert.Equal(t, 0.0, *q.MinPrice)
}

func TestParseProductQueryClampsHugePage(t *testing.T) {
	for _, raw := range []string{"922337203685477580", "9223372036854775807", "2147483648"} {
		q := ParseProductQuery(url.Values{"pageNumber": {raw}})
		assert.Equal(t, MaxPage, q.Page, raw)
	}

	// Past the int64 range the value is malformed and falls back to 1
	q := ParseProductQuery(url.Values{"pageNumber": {"99999999999999999999"}})
	assert.Equal(t, 1, q.Page)
}
