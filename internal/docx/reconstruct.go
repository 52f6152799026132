package docx

import (
	"regexp"
	"strings"

	"github.com/saad688/pdftoword/internal/models"
)

var (
	bulletMarker = regexp.MustCompile(`^\s*[-*•]\s+`)
	numberMarker = regexp.MustCompile(`^\s*(\d+\.|[a-zA-Z]\.)\s+`)

	cellBreaks = strings.NewReplacer("<br>", "\n", "<br/>", "\n", "<br />", "\n")
)

const unparsedTablePrefix = "[Unparsed Table Data]:"

// Reconstruct lays out doc page by page with a page break between pages.
// Blocks whose text is empty after trimming are skipped.
func Reconstruct(doc *models.StructuredDocument) *Document {
	out := &Document{}
	if doc == nil {
		return out
	}
	for i, page := range doc.Pages {
		if i > 0 {
			out.Body = append(out.Body, PageBreak{})
		}
		for _, block := range page.Blocks {
			if el, ok := renderBlock(block); ok {
				out.Body = append(out.Body, el)
			}
		}
	}
	return out
}

func renderBlock(block models.Block) (Element, bool) {
	text := strings.TrimRight(block.Text, " \t\r\n")
	if strings.TrimSpace(text) == "" {
		return nil, false
	}

	switch block.Kind {
	case models.BlockListItem:
		style, body := DetectListStyle(text)
		return Paragraph{Style: style, Lines: splitLines(body)}, true
	case models.BlockTable:
		rows, header := ParseTable(text)
		if len(rows) == 0 {
			lines := append([]string{unparsedTablePrefix}, splitLines(text)...)
			return Paragraph{Style: StyleNormal, Lines: lines}, true
		}
		return Table{Rows: rows, Header: header}, true
	default:
		return Paragraph{Style: StyleNormal, Lines: splitLines(text)}, true
	}
}

// DetectListStyle picks a list style from the leading marker of text and
// returns the text without it. Text with no recognizable marker keeps its
// content and gets the bullet style.
func DetectListStyle(text string) (Style, string) {
	if loc := bulletMarker.FindStringIndex(text); loc != nil {
		return StyleListBullet, text[loc[1]:]
	}
	if loc := numberMarker.FindStringIndex(text); loc != nil {
		return StyleListNumber, text[loc[1]:]
	}
	return StyleListBullet, text
}

// ParseTable parses a markdown pipe table. header reports whether a
// separator row was present, which makes the first row a header. Rows with
// only empty cells are dropped and short rows are padded to the widest row.
func ParseTable(raw string) (rows [][]string, header bool) {
	width := 0
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		cells := splitCells(line)
		if isSeparatorRow(cells) {
			header = true
			continue
		}
		if allEmpty(cells) {
			continue
		}
		rows = append(rows, cells)
		width = max(width, len(cells))
	}

	for i, row := range rows {
		for len(row) < width {
			row = append(row, "")
		}
		rows[i] = row
	}
	if len(rows) == 0 {
		header = false
	}
	return rows, header
}

func splitCells(line string) []string {
	line = strings.TrimPrefix(line, "|")
	line = strings.TrimSuffix(line, "|")
	parts := strings.Split(line, "|")
	cells := make([]string, len(parts))
	for i, p := range parts {
		cells[i] = strings.TrimSpace(cellBreaks.Replace(p))
	}
	return cells
}

func isSeparatorRow(cells []string) bool {
	dash := false
	for _, c := range cells {
		if c == "" {
			return false
		}
		for _, r := range c {
			switch r {
			case '-':
				dash = true
			case ':', ' ':
			default:
				return false
			}
		}
	}
	return dash
}

func allEmpty(cells []string) bool {
	for _, c := range cells {
		if c != "" {
			return false
		}
	}
	return true
}

func splitLines(text string) []string {
	return strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
}
