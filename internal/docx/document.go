// Package docx rebuilds a Word document from extracted page blocks and
// serializes it as WordprocessingML.
package docx

// Style names a paragraph style defined in styles.xml.
type Style string

const (
	StyleNormal     Style = "Normal"
	StyleListBullet Style = "ListBullet"
	StyleListNumber Style = "ListNumber"
)

// Element is one body-level item of a Document.
type Element interface {
	element()
}

// Paragraph is rendered as a single w:p whose lines are separated by
// line breaks.
type Paragraph struct {
	Style Style
	Lines []string
	Bold  bool
}

// Table is a grid table. When Header is set the first row is bold and
// repeats on every page.
type Table struct {
	Rows   [][]string
	Header bool
}

// PageBreak starts a new page.
type PageBreak struct{}

func (Paragraph) element() {}
func (Table) element()     {}
func (PageBreak) element() {}

// Document is an ordered body plus core properties.
type Document struct {
	Title string
	Body  []Element
}
