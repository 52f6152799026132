package notation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/saad688/pdftoword/internal/models"
)

func TestConvert(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"squared", "x^{2}", "x²"},
		{"water", "H_{2}O", "H₂O"},
		{"superscript fallback", "x^{Q}", "x⁽Q⁾"},
		{"subscript fallback", "x_{z}", "x₍z₎"},
		{"capital superscript", "x^{A}", "xᴬ"},
		{"carbon dioxide", "CO_{2}", "CO₂"},
		{"energy", "E=mc^{2}", "E=mc²"},
		{"mixed", "The variable x_{i} squared is x_{i}^{2}", "The variable xᵢ squared is xᵢ²"},
		{"multi char", "e^{-x+1}", "e⁻ˣ⁺¹"},
		{"no markers", "plain text", "plain text"},
		{"unterminated", "x^{2", "x^{2"},
		{"empty body", "x^{}", "x^{}"},
		{"bare caret", "x^2 and a_n", "x^2 and a_n"},
		{"unicode around", "α^{2} β", "α² β"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Convert(tt.in))
		})
	}
}

func TestConvert_NestedMarkerLeftLiteral(t *testing.T) {
	// The outer marker is malformed; the inner one is still well formed.
	assert.Equal(t, "x^{a²}", Convert("x^{a^{2}}"))
}

func TestConvert_IsIdempotent(t *testing.T) {
	once := Convert("H_{2}O and x^{Q}")
	assert.Equal(t, once, Convert(once))
}

func TestApplyToDocument(t *testing.T) {
	doc := &models.StructuredDocument{
		TotalPages: 2,
		Pages: []models.Page{
			{PageNumber: 1, Blocks: []models.Block{{Kind: models.BlockParagraph, Text: "Area = x^{2}"}}},
			{PageNumber: 2, Blocks: []models.Block{
				{Kind: models.BlockListItem, Text: "- Water is H_{2}O"},
				{Kind: models.BlockTable, Text: "| a | b |\n| x^{3} | y_{1} |"},
			}},
		},
	}

	ApplyToDocument(doc)

	assert.Equal(t, "Area = x²", doc.Pages[0].Blocks[0].Text)
	assert.Equal(t, "- Water is H₂O", doc.Pages[1].Blocks[0].Text)
	assert.Equal(t, "| a | b |\n| x³ | y₁ |", doc.Pages[1].Blocks[1].Text)
}

func TestApplyToDocument_Nil(t *testing.T) {
	assert.NotPanics(t, func() { ApplyToDocument(nil) })
}
