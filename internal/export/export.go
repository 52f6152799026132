// Package export renders a structured document into the downloadable
// formats: docx, plain text, markdown and HTML.
package export

import (
	"bytes"
	"errors"
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer"
	gmhtml "github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/util"

	"github.com/saad688/pdftoword/internal/docx"
	"github.com/saad688/pdftoword/internal/models"
)

type Format string

var ErrUnsupportedFormat = errors.New("unsupported export format")

const (
	FormatDOCX Format = "docx"
	FormatTXT  Format = "txt"
	FormatMD   Format = "md"
	FormatHTML Format = "html"
)

// ParseFormat accepts a format name or file extension, case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), ".")); f {
	case FormatDOCX, FormatTXT, FormatHTML:
		return f, nil
	case FormatMD, "markdown":
		return FormatMD, nil
	}
	return "", fmt.Errorf("%w %q", ErrUnsupportedFormat, s)
}

// ContentType is the MIME type served for f.
func (f Format) ContentType() string {
	switch f {
	case FormatDOCX:
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case FormatHTML:
		return "text/html; charset=utf-8"
	case FormatMD:
		return "text/markdown; charset=utf-8"
	default:
		return "text/plain; charset=utf-8"
	}
}

// Render encodes doc in format f. title is used for document metadata.
func Render(doc *models.StructuredDocument, f Format, title string) ([]byte, error) {
	switch f {
	case FormatDOCX:
		d := docx.Reconstruct(doc)
		d.Title = title
		var buf bytes.Buffer
		if _, err := d.WriteTo(&buf); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case FormatTXT:
		return []byte(PreviewText(doc)), nil
	case FormatMD:
		return []byte(Markdown(doc)), nil
	case FormatHTML:
		out, err := HTML(doc, title)
		if err != nil {
			return nil, err
		}
		return []byte(out), nil
	}
	return nil, fmt.Errorf("%w %q", ErrUnsupportedFormat, f)
}

// PreviewText flattens doc to plain text with a "=== Page N ===" banner
// before each page.
func PreviewText(doc *models.StructuredDocument) string {
	if doc == nil {
		return ""
	}
	var sb strings.Builder
	for _, page := range doc.Pages {
		fmt.Fprintf(&sb, "=== Page %d ===\n", page.PageNumber)
		for _, block := range page.Blocks {
			if text := strings.TrimSpace(block.Text); text != "" {
				sb.WriteString(text)
				sb.WriteString("\n")
			}
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

var (
	pageBanner = regexp.MustCompile(`^=== Page (\d+) ===$`)
	listLine   = regexp.MustCompile(`^([-*•]|\d+\.)\s+\S`)
)

// ParseText rebuilds a structured document from edited preview text.
// Banners start pages and text before the first banner belongs to page 1.
// Every other non-blank line is a block: consecutive pipe rows form one
// table and lines with a list marker become list items.
func ParseText(text string) *models.StructuredDocument {
	doc := &models.StructuredDocument{}
	var table []string
	flush := func() {
		if len(table) == 0 {
			return
		}
		last := &doc.Pages[len(doc.Pages)-1]
		last.Blocks = append(last.Blocks, models.Block{Kind: models.BlockTable, Text: strings.Join(table, "\n")})
		table = nil
	}

	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		line = strings.TrimSpace(line)
		if m := pageBanner.FindStringSubmatch(line); m != nil {
			flush()
			n, _ := strconv.Atoi(m[1])
			doc.Pages = append(doc.Pages, models.Page{PageNumber: n, Blocks: []models.Block{}})
			continue
		}
		if line == "" {
			flush()
			continue
		}
		if len(doc.Pages) == 0 {
			doc.Pages = append(doc.Pages, models.Page{PageNumber: 1, Blocks: []models.Block{}})
		}
		if strings.HasPrefix(line, "|") {
			table = append(table, line)
			continue
		}
		flush()
		kind := models.BlockParagraph
		if listLine.MatchString(line) {
			kind = models.BlockListItem
		}
		last := &doc.Pages[len(doc.Pages)-1]
		last.Blocks = append(last.Blocks, models.Block{Kind: kind, Text: line})
	}
	flush()

	if len(doc.Pages) == 0 {
		doc.Pages = []models.Page{{PageNumber: 1, Blocks: []models.Block{}}}
	}
	doc.TotalPages = len(doc.Pages)
	return doc
}

var enumerated = regexp.MustCompile(`^\d+\.`)

// PagesData returns the text of each page with blocks separated by blank
// lines. List items without a marker get a bullet.
func PagesData(doc *models.StructuredDocument) []models.PageContent {
	if doc == nil {
		return nil
	}
	out := make([]models.PageContent, 0, len(doc.Pages))
	for _, page := range doc.Pages {
		var parts []string
		for _, block := range page.Blocks {
			text := strings.TrimSpace(block.Text)
			if text == "" {
				continue
			}
			if block.Kind == models.BlockListItem && !hasListMarker(text) {
				text = "• " + text
			}
			parts = append(parts, text)
		}
		out = append(out, models.PageContent{
			PageNumber: page.PageNumber,
			Content:    strings.Join(parts, "\n\n"),
		})
	}
	return out
}

func hasListMarker(text string) bool {
	for _, p := range []string{"• ", "- ", "* "} {
		if strings.HasPrefix(text, p) {
			return true
		}
	}
	return enumerated.MatchString(text)
}

// Stats counts words, characters and lines of text.
func Stats(text string) (words, chars, lines int) {
	return len(strings.Fields(text)), utf8.RuneCountInString(text), strings.Count(text, "\n") + 1
}

// Markdown renders doc as GitHub-flavoured markdown. Pages are separated by
// thematic breaks.
func Markdown(doc *models.StructuredDocument) string {
	if doc == nil {
		return ""
	}
	var sb strings.Builder
	for i, page := range doc.Pages {
		if i > 0 {
			sb.WriteString("---\n\n")
		}
		for _, block := range page.Blocks {
			text := strings.TrimRight(block.Text, " \t\r\n")
			if strings.TrimSpace(text) == "" {
				continue
			}
			switch block.Kind {
			case models.BlockListItem:
				sb.WriteString(markdownListItem(text))
				sb.WriteString("\n")
			case models.BlockTable:
				sb.WriteString(markdownTable(text))
				sb.WriteString("\n")
			default:
				sb.WriteString(strings.ReplaceAll(text, "\n", "  \n"))
				sb.WriteString("\n\n")
			}
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func markdownListItem(text string) string {
	style, body := docx.DetectListStyle(text)
	marker := "-"
	if style == docx.StyleListNumber {
		if m := strings.TrimSpace(strings.TrimSuffix(text, body)); enumerated.MatchString(m) {
			marker = m
		}
	}
	return marker + " " + strings.ReplaceAll(body, "\n", "  \n  ") + "\n"
}

func markdownTable(raw string) string {
	rows, _ := docx.ParseTable(raw)
	if len(rows) == 0 {
		return "```\n" + raw + "\n```\n"
	}
	cell := strings.NewReplacer("|", `\|`, "\n", "<br>")
	var sb strings.Builder
	writeRow := func(row []string) {
		sb.WriteString("|")
		for _, c := range row {
			sb.WriteString(" " + cell.Replace(c) + " |")
		}
		sb.WriteString("\n")
	}
	writeRow(rows[0])
	sb.WriteString("|")
	for range rows[0] {
		sb.WriteString("---|")
	}
	sb.WriteString("\n")
	for _, row := range rows[1:] {
		writeRow(row)
	}
	return sb.String()
}

// HTML renders the markdown form of doc into a standalone HTML page.
func HTML(doc *models.StructuredDocument, title string) (string, error) {
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(
			gmhtml.WithXHTML(),
			renderer.WithNodeRenderers(util.Prioritized(lineBreakRenderer{}, 100)),
		),
	)
	var body bytes.Buffer
	if err := md.Convert([]byte(Markdown(doc)), &body); err != nil {
		return "", fmt.Errorf("failed to render html: %w", err)
	}
	return fmt.Sprintf(htmlPage, html.EscapeString(title), body.String()), nil
}

var lineBreakTag = regexp.MustCompile(`(?i)^<br\s*/?>$`)

// lineBreakRenderer passes <br> through so multi-line table cells keep their
// breaks. Any other raw HTML is still omitted.
type lineBreakRenderer struct{}

func (lineBreakRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(ast.KindRawHTML, renderRawHTML)
}

func renderRawHTML(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkSkipChildren, nil
	}
	n := node.(*ast.RawHTML)
	var raw []byte
	for i := 0; i < n.Segments.Len(); i++ {
		seg := n.Segments.At(i)
		raw = append(raw, seg.Value(source)...)
	}
	if lineBreakTag.Match(raw) {
		_, _ = w.WriteString("<br />")
	} else {
		_, _ = w.WriteString("<!-- raw HTML omitted -->")
	}
	return ast.WalkSkipChildren, nil
}

const htmlPage = `<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<title>%s</title>
<style>
body { font-family: Arial, sans-serif; line-height: 1.6; padding: 20px; max-width: 800px; margin: 0 auto; }
table { border-collapse: collapse; }
th, td { border: 1px solid #999; padding: 4px 8px; }
</style>
</head>
<body>
%s</body>
</html>
`
