package docx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saad688/pdftoword/internal/models"
)

func TestParseTable(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		wantRows   [][]string
		wantHeader bool
	}{
		{
			name:       "header and data row",
			raw:        "| A | B |\n|---|---|\n| 1 | 2 |",
			wantRows:   [][]string{{"A", "B"}, {"1", "2"}},
			wantHeader: true,
		},
		{
			name:     "ragged row is padded",
			raw:      "| A | B |\n| 1 |",
			wantRows: [][]string{{"A", "B"}, {"1", ""}},
		},
		{
			name:       "aligned separator",
			raw:        "| Name | Qty |\n|:---|---:|\n| bolt | 4 |",
			wantRows:   [][]string{{"Name", "Qty"}, {"bolt", "4"}},
			wantHeader: true,
		},
		{
			name:     "blank lines and empty rows dropped",
			raw:      "\n| A | B |\n\n|   |   |\n| 1 | 2 |\n",
			wantRows: [][]string{{"A", "B"}, {"1", "2"}},
		},
		{
			name:     "cell line breaks",
			raw:      "| a<br>b | c |",
			wantRows: [][]string{{"a\nb", "c"}},
		},
		{
			name:     "separator only",
			raw:      "|---|---|",
			wantRows: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, header := ParseTable(tt.raw)
			assert.Equal(t, tt.wantRows, rows)
			assert.Equal(t, tt.wantHeader, header)
		})
	}
}

func TestDetectListStyle(t *testing.T) {
	tests := []struct {
		text      string
		wantStyle Style
		wantText  string
	}{
		{"- item", StyleListBullet, "item"},
		{"* item", StyleListBullet, "item"},
		{"• item", StyleListBullet, "item"},
		{"3. item", StyleListNumber, "item"},
		{"12. item", StyleListNumber, "item"},
		{"b. item", StyleListNumber, "item"},
		{"item without marker", StyleListBullet, "item without marker"},
		{"-item", StyleListBullet, "-item"},
		{"3.5 percent", StyleListBullet, "3.5 percent"},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			style, text := DetectListStyle(tt.text)
			assert.Equal(t, tt.wantStyle, style)
			assert.Equal(t, tt.wantText, text)
		})
	}
}

func TestReconstruct_PageBreaksBetweenPages(t *testing.T) {
	doc := &models.StructuredDocument{
		TotalPages: 3,
		Pages: []models.Page{
			{PageNumber: 1, Blocks: []models.Block{{Kind: models.BlockParagraph, Text: "one"}}},
			{PageNumber: 2, Blocks: []models.Block{{Kind: models.BlockParagraph, Text: "two"}}},
			{PageNumber: 3, Blocks: []models.Block{{Kind: models.BlockParagraph, Text: "three"}}},
		},
	}

	out := Reconstruct(doc)
	require.Len(t, out.Body, 5)
	assert.IsType(t, Paragraph{}, out.Body[0])
	assert.IsType(t, PageBreak{}, out.Body[1])
	assert.IsType(t, Paragraph{}, out.Body[2])
	assert.IsType(t, PageBreak{}, out.Body[3])
	assert.IsType(t, Paragraph{}, out.Body[4])
}

func TestReconstruct_Blocks(t *testing.T) {
	doc := &models.StructuredDocument{
		TotalPages: 1,
		Pages: []models.Page{{PageNumber: 1, Blocks: []models.Block{
			{Kind: models.BlockParagraph, Text: "line one\nline two  \n"},
			{Kind: models.BlockParagraph, Text: "   "},
			{Kind: models.BlockListItem, Text: "1. first"},
			{Kind: models.BlockTable, Text: "| A | B |\n|---|---|\n| 1 | 2 |"},
			{Kind: models.BlockTable, Text: "|---|"},
			{Kind: "figure", Text: "caption"},
		}}},
	}

	out := Reconstruct(doc)
	require.Len(t, out.Body, 5)

	assert.Equal(t, Paragraph{Style: StyleNormal, Lines: []string{"line one", "line two"}}, out.Body[0])
	assert.Equal(t, Paragraph{Style: StyleListNumber, Lines: []string{"first"}}, out.Body[1])
	assert.Equal(t, Table{Rows: [][]string{{"A", "B"}, {"1", "2"}}, Header: true}, out.Body[2])
	assert.Equal(t, Paragraph{Style: StyleNormal, Lines: []string{unparsedTablePrefix, "|---|"}}, out.Body[3])
	assert.Equal(t, Paragraph{Style: StyleNormal, Lines: []string{"caption"}}, out.Body[4])
}

func TestReconstruct_Nil(t *testing.T) {
	assert.Empty(t, Reconstruct(nil).Body)
}
