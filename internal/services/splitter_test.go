package services

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// minimalPDF builds a valid PDF with the given number of blank Letter pages.
func minimalPDF(pages int) []byte {
	var objects []string
	kids := ""
	for i := 0; i < pages; i++ {
		kids += fmt.Sprintf("%d 0 R ", 3+i*2)
	}
	objects = append(objects,
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", kids, pages),
	)
	for i := 0; i < pages; i++ {
		content := fmt.Sprintf("BT /F1 12 Tf 72 720 Td (Page %d) Tj ET", i+1)
		objects = append(objects,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 %d 0 R >> >> /Contents %d 0 R >>", 3+pages*2, 4+i*2),
			fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
		)
	}
	objects = append(objects, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>")

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func TestPDFSplitter_SplitsEveryPage(t *testing.T) {
	root := t.TempDir()
	s := NewPDFSplitter(root)

	res, err := s.Split(context.Background(), minimalPDF(3), "job-1")
	require.NoError(t, err)
	require.Len(t, res.Pages, 3)
	for i, p := range res.Pages {
		assert.Equal(t, i+1, p.Number)
		assert.FileExists(t, p.Path)
	}

	require.NoError(t, res.Release())
	assert.NoDirExists(t, res.Dir)
}

func TestPDFSplitter_SinglePage(t *testing.T) {
	res, err := NewPDFSplitter(t.TempDir()).Split(context.Background(), minimalPDF(1), "job-1")
	require.NoError(t, err)
	defer res.Release()
	require.Len(t, res.Pages, 1)
	assert.FileExists(t, res.Pages[0].Path)
}

func TestPDFSplitter_RejectsGarbage(t *testing.T) {
	root := t.TempDir()
	s := NewPDFSplitter(root)

	_, err := s.Split(context.Background(), []byte("%PDF-1.4 this is not really a pdf"), "job-2")
	assert.ErrorIs(t, err, ErrInvalidDocument)

	_, err = s.Split(context.Background(), nil, "job-3")
	assert.ErrorIs(t, err, ErrInvalidDocument)

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Empty(t, entries, "temp dirs must be removed on failure")
}
