package receipt

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// RowSelector matches the templated label/value tables in a PayPal receipt.
const RowSelector = "table#transactionRow"

// FieldMap holds the label -> value pairs read from one receipt.
// Labels are unique; Labels() reports them in the order they first appeared.
type FieldMap struct {
	labels []string
	values map[string]string
}

// NewFieldMap returns an empty FieldMap.
func NewFieldMap() *FieldMap {
	return &FieldMap{values: make(map[string]string)}
}

// Set stores value under label. A repeated label overwrites the earlier value.
func (m *FieldMap) Set(label, value string) {
	if _, ok := m.values[label]; !ok {
		m.labels = append(m.labels, label)
	}
	m.values[label] = value
}

// Get returns the value stored under label.
func (m *FieldMap) Get(label string) (string, bool) {
	v, ok := m.values[label]
	return v, ok
}

// Labels returns every label in document order.
func (m *FieldMap) Labels() []string {
	out := make([]string, len(m.labels))
	copy(out, m.labels)
	return out
}

// Len returns the number of labels.
func (m *FieldMap) Len() int {
	return len(m.labels)
}

// ExtractFields walks every transaction row of the receipt HTML and collects
// its label/value pair. Rows that do not have a label part and a readable
// value part are skipped; required fields are not checked here.
func ExtractFields(html string) (*FieldMap, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, &ExtractionError{Kind: UnreadableDocument, Cause: err}
	}

	fields := NewFieldMap()
	doc.Find(RowSelector).Each(func(_ int, row *goquery.Selection) {
		label, value, ok := readRow(row)
		if !ok {
			return
		}
		fields.Set(label, value)
	})

	return fields, nil
}

// readRow reads one row: the first <tr> is the label, the first <td> of the
// second <tr> is the value region. The Transaction ID value is rendered as a
// link, so link text wins over the cell text (and the href is never used).
func readRow(row *goquery.Selection) (label, value string, ok bool) {
	parts := row.Find("tr")
	if parts.Length() < 2 {
		return "", "", false
	}

	label = normalizeText(parts.Eq(0).Text())
	if label == "" {
		return "", "", false
	}

	cell := parts.Eq(1).Find("td").First()
	if cell.Length() == 0 {
		return "", "", false
	}

	if link := cell.Find("a").First(); link.Length() > 0 {
		value = normalizeText(link.Text())
	} else {
		value = normalizeText(cell.Text())
	}
	if value == "" {
		return "", "", false
	}

	return label, value, true
}

// normalizeText collapses whitespace runs (including the non-breaking spaces
// the template uses) into single spaces and trims the ends.
func normalizeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
