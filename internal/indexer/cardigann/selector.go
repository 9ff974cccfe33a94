package cardigann

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// HTMLSelector provides CSS selector-based extraction from an HTML document.
type HTMLSelector struct {
	doc *goquery.Document
}

// NewHTMLSelector parses raw HTML bytes for extraction.
func NewHTMLSelector(html []byte) (*HTMLSelector, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, err
	}
	return &HTMLSelector{doc: doc}, nil
}

// Rows returns the result rows located by sel, skipping sel.After leading
// rows (table headers and the like).
func (s *HTMLSelector) Rows(sel RowSelector) []*goquery.Selection {
	var rows []*goquery.Selection
	s.doc.Find(sel.Selector).Each(func(i int, row *goquery.Selection) {
		if i < sel.After {
			return
		}
		rows = append(rows, row)
	})
	return rows
}

// Extract reads field's value out of row.
func Extract(row *goquery.Selection, field FieldMap) string {
	target := row
	if field.Selector != "" {
		target = row.Find(field.Selector).First()
	}
	if target.Length() == 0 {
		return ""
	}
	if field.Remove != "" {
		target = target.Clone()
		target.Find(field.Remove).Remove()
	}
	if field.Attribute != "" {
		val, _ := target.Attr(field.Attribute)
		return strings.TrimSpace(val)
	}
	return strings.TrimSpace(target.Text())
}
