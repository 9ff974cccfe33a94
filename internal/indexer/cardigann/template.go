// Package cardigann implements a template-driven HTML indexer adapter:
// a search URL pattern plus CSS selectors describing how to pull a release
// list out of the response, modeled after community indexer definitions
// rather than a bespoke scraper per site.
package cardigann

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/orchestrd/orchestrd/internal/indexer"
)

// FieldMap describes where to find one output field within a result row.
type FieldMap struct {
	Selector  string `yaml:"selector"`
	Attribute string `yaml:"attribute"` // attribute to read instead of text content, if set
	Remove    string `yaml:"remove"`    // child selector to strip before reading text
}

// RowSelector locates individual result rows within the response document.
type RowSelector struct {
	Selector string `yaml:"selector"`
	After    int    `yaml:"after"` // header rows to skip
}

// Definition describes how to search one indexer and parse its results. It
// is a deliberately flat subset of the community Cardigann YAML format:
// one search URL pattern and one set of row/field selectors, with no
// login flow or JSON-path extraction.
type Definition struct {
	ID           string           `yaml:"id"`
	Name         string           `yaml:"name"`
	SearchURL    string           `yaml:"searchUrl"` // may contain {{query}}, {{category}}
	Protocol     indexer.Protocol `yaml:"protocol"`
	Categories   []int            `yaml:"categories"`
	Row          RowSelector      `yaml:"row"`
	Title        FieldMap         `yaml:"title"`
	DownloadURL  FieldMap         `yaml:"downloadUrl"`
	InfoURL      FieldMap         `yaml:"infoUrl"`
	Size         FieldMap         `yaml:"size"`
	Seeders      FieldMap         `yaml:"seeders"`
	Leechers     FieldMap         `yaml:"leechers"`
	PublishDate  FieldMap         `yaml:"publishDate"`
	DateLayout   string           `yaml:"dateLayout"`
	RequiresAuth bool             `yaml:"requiresAuth"`
}

// BuildSearchURL substitutes the query-escaped query and the category into
// SearchURL.
func (d Definition) BuildSearchURL(criteria indexer.SearchCriteria) string {
	searchURL := strings.ReplaceAll(d.SearchURL, "{{query}}", url.QueryEscape(criteria.QueryText()))
	category := ""
	if len(criteria.Categories) > 0 {
		category = strconv.Itoa(criteria.Categories[0])
	}
	searchURL = strings.ReplaceAll(searchURL, "{{category}}", category)
	return searchURL
}

// parseSize turns a human-readable size ("1.4 GB") into bytes. Only the
// units these definitions actually emit are handled; anything else falls
// back to 0 rather than guessing.
func parseSize(raw string) int64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	parts := strings.Fields(raw)
	if len(parts) != 2 {
		return 0
	}
	value, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return 0
	}
	var multiplier float64
	switch strings.ToUpper(parts[1]) {
	case "B":
		multiplier = 1
	case "KB", "KIB":
		multiplier = 1 << 10
	case "MB", "MIB":
		multiplier = 1 << 20
	case "GB", "GIB":
		multiplier = 1 << 30
	case "TB", "TIB":
		multiplier = 1 << 40
	default:
		return 0
	}
	return int64(value * multiplier)
}

func parseIntDefault(raw string) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	v, err := strconv.Atoi(strings.ReplaceAll(raw, ",", ""))
	if err != nil {
		return 0
	}
	return v
}

func parseDate(raw, layout string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" || layout == "" {
		return time.Time{}
	}
	t, err := time.Parse(layout, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

func (d Definition) String() string {
	return fmt.Sprintf("cardigann[%s]", d.ID)
}
