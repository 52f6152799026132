// Package notation rewrites ^{...} exponent and _{...} subscript markers
// produced by the extraction model into compact Unicode glyphs.
package notation

import (
	"strings"

	"github.com/saad688/pdftoword/internal/models"
)

var superscripts = map[rune]rune{
	'0': '⁰', '1': '¹', '2': '²', '3': '³', '4': '⁴', '5': '⁵', '6': '⁶', '7': '⁷', '8': '⁸', '9': '⁹',
	'+': '⁺', '-': '⁻', '=': '⁼', '(': '⁽', ')': '⁾',
	'A': 'ᴬ', 'B': 'ᴮ', 'C': 'ᶜ', 'D': 'ᴰ', 'E': 'ᴱ', 'G': 'ᴳ', 'H': 'ᴴ', 'I': 'ᴵ', 'J': 'ᴶ', 'K': 'ᴷ',
	'L': 'ᴸ', 'M': 'ᴹ', 'N': 'ᴺ', 'O': 'ᴼ', 'P': 'ᴾ', 'R': 'ᴿ', 'T': 'ᵀ', 'U': 'ᵁ', 'V': 'ⱽ', 'W': 'ᵂ',
	'a': 'ᵃ', 'b': 'ᵇ', 'c': 'ᶜ', 'd': 'ᵈ', 'e': 'ᵉ', 'f': 'ᶠ', 'g': 'ᵍ', 'h': 'ʰ', 'i': 'ⁱ', 'j': 'ʲ',
	'k': 'ᵏ', 'l': 'ˡ', 'm': 'ᵐ', 'n': 'ⁿ', 'o': 'ᵒ', 'p': 'ᵖ', 'r': 'ʳ', 's': 'ˢ', 't': 'ᵗ', 'u': 'ᵘ',
	'v': 'ᵛ', 'w': 'ʷ', 'x': 'ˣ', 'y': 'ʸ', 'z': 'ᶻ',
}

var subscripts = map[rune]rune{
	'0': '₀', '1': '₁', '2': '₂', '3': '₃', '4': '₄', '5': '₅', '6': '₆', '7': '₇', '8': '₈', '9': '₉',
	'+': '₊', '-': '₋', '=': '₌', '(': '₍', ')': '₎',
	'a': 'ₐ', 'e': 'ₑ', 'h': 'ₕ', 'i': 'ᵢ', 'j': 'ⱼ', 'k': 'ₖ', 'l': 'ₗ', 'm': 'ₘ', 'n': 'ₙ', 'o': 'ₒ',
	'p': 'ₚ', 'r': 'ᵣ', 's': 'ₛ', 't': 'ₜ', 'u': 'ᵤ', 'v': 'ᵥ', 'x': 'ₓ',
}

type glyphSet struct {
	table       map[rune]rune
	open, close rune
}

var (
	superSet = glyphSet{table: superscripts, open: '⁽', close: '⁾'}
	subSet   = glyphSet{table: subscripts, open: '₍', close: '₎'}
)

func (g glyphSet) write(sb *strings.Builder, body string) {
	for _, r := range body {
		if mapped, ok := g.table[r]; ok {
			sb.WriteRune(mapped)
			continue
		}
		sb.WriteRune(g.open)
		sb.WriteRune(r)
		sb.WriteRune(g.close)
	}
}

// Convert replaces every well-formed ^{...} and _{...} span in text with its
// glyph form. Characters without a glyph are bracketed rather than dropped.
// Empty, unterminated or nested markers are left as literal text.
func Convert(text string) string {
	if !strings.Contains(text, "^{") && !strings.Contains(text, "_{") {
		return text
	}

	var sb strings.Builder
	sb.Grow(len(text))

	for i := 0; i < len(text); {
		set, ok := markerAt(text, i)
		if !ok {
			sb.WriteByte(text[i])
			i++
			continue
		}
		body, end, ok := markerBody(text, i+2)
		if !ok {
			sb.WriteString(text[i : i+2])
			i += 2
			continue
		}
		set.write(&sb, body)
		i = end
	}
	return sb.String()
}

func markerAt(text string, i int) (glyphSet, bool) {
	if i+1 >= len(text) || text[i+1] != '{' {
		return glyphSet{}, false
	}
	switch text[i] {
	case '^':
		return superSet, true
	case '_':
		return subSet, true
	}
	return glyphSet{}, false
}

// markerBody returns the text between start and the closing brace and the
// index just past it.
func markerBody(text string, start int) (string, int, bool) {
	closeIdx := strings.IndexByte(text[start:], '}')
	if closeIdx <= 0 {
		return "", 0, false
	}
	body := text[start : start+closeIdx]
	if strings.ContainsRune(body, '{') {
		return "", 0, false
	}
	return body, start + closeIdx + 1, true
}

// ApplyToBlocks converts the text of every block in place.
func ApplyToBlocks(blocks []models.Block) {
	for i := range blocks {
		blocks[i].Text = Convert(blocks[i].Text)
	}
}

// ApplyToPage converts every block of page in place.
func ApplyToPage(page *models.Page) {
	if page == nil {
		return
	}
	ApplyToBlocks(page.Blocks)
}

// ApplyToDocument converts every text field of doc in place.
func ApplyToDocument(doc *models.StructuredDocument) {
	if doc == nil {
		return
	}
	for i := range doc.Pages {
		ApplyToPage(&doc.Pages[i])
	}
}
