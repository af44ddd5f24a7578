package pdf

import (
	"bytes"
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"
	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"flexster/internal/flashcard"
)

// A4 portrait in millimeters.
const (
	pageWidth  = 210.0
	pageHeight = 297.0
	pageMargin = 10.0

	// Share of the shorter cell edge taken by the QR code; the rest is
	// left for the text block.
	qrScale = 0.55

	qrPixels = 256
)

// Renderer lays sheets out on A4 pages, one page per sheet side.
type Renderer struct {
	rows   int
	cols   int
	logger *zap.Logger
}

func NewRenderer(rows, cols int, logger *zap.Logger) *Renderer {
	return &Renderer{rows: rows, cols: cols, logger: logger}
}

// Render writes the full PDF for the given sheets. Mirrored sheets emit
// their back page directly after the front so double-sided printing pairs
// them up.
func (r *Renderer) Render(w io.Writer, sheets []flashcard.Sheet) error {
	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetAutoPageBreak(false, 0)
	translate := doc.UnicodeTranslatorFromDescriptor("")

	qrCount := 0
	for i, sheet := range sheets {
		if err := r.renderPage(doc, translate, sheet.Front, i, "front", &qrCount); err != nil {
			return err
		}
		if sheet.Back != nil {
			if err := r.renderPage(doc, translate, sheet.Back, i, "back", &qrCount); err != nil {
				return err
			}
		}
	}

	if err := doc.Output(w); err != nil {
		return fmt.Errorf("failed to write pdf: %w", err)
	}

	r.logger.Info("PDF rendered",
		zap.Int("sheets", len(sheets)),
		zap.Int("qr_codes", qrCount))
	return nil
}

func (r *Renderer) renderPage(doc *fpdf.Fpdf, translate func(string) string, cells []flashcard.Card, sheetIdx int, side string, qrCount *int) error {
	doc.AddPage()

	cellW := (pageWidth - 2*pageMargin) / float64(r.cols)
	cellH := (pageHeight - 2*pageMargin) / float64(r.rows)

	r.drawCutLines(doc, cellW, cellH)

	for idx, cell := range cells {
		row := idx / r.cols
		col := idx % r.cols
		x := pageMargin + float64(col)*cellW
		y := pageMargin + float64(row)*cellH

		if cell.Link == "" && cell.Song.Metadata.Title == "" {
			continue // trailing blank cell
		}

		if cell.Placeholder() {
			r.drawPlaceholder(doc, translate, cell, x, y, cellW, cellH)
			continue
		}

		name := fmt.Sprintf("qr-%d-%s-%d", sheetIdx, side, idx)
		if err := r.drawQR(doc, cell.Link, name, x, y, cellW, cellH); err != nil {
			return err
		}
		*qrCount++

		r.drawText(doc, translate, cell, x, y, cellW, cellH)
	}
	return nil
}

// drawCutLines draws the grid borders so cards can be cut apart.
func (r *Renderer) drawCutLines(doc *fpdf.Fpdf, cellW, cellH float64) {
	doc.SetDrawColor(180, 180, 180)
	doc.SetLineWidth(0.1)
	for c := 0; c <= r.cols; c++ {
		x := pageMargin + float64(c)*cellW
		doc.Line(x, pageMargin, x, pageHeight-pageMargin)
	}
	for row := 0; row <= r.rows; row++ {
		y := pageMargin + float64(row)*cellH
		doc.Line(pageMargin, y, pageWidth-pageMargin, y)
	}
}

func (r *Renderer) drawQR(doc *fpdf.Fpdf, link, name string, x, y, cellW, cellH float64) error {
	png, err := qrcode.Encode(link, qrcode.Medium, qrPixels)
	if err != nil {
		return fmt.Errorf("failed to encode qr for %s: %w", link, err)
	}

	opts := fpdf.ImageOptions{ImageType: "PNG"}
	doc.RegisterImageOptionsReader(name, opts, bytes.NewReader(png))

	size := qrScale * min(cellW, cellH)
	qrX := x + (cellW-size)/2
	qrY := y + 2
	doc.ImageOptions(name, qrX, qrY, size, size, false, opts, 0, "")
	return nil
}

// drawText prints the metadata block beneath the QR code, trimming lines
// that would overflow the cell.
func (r *Renderer) drawText(doc *fpdf.Fpdf, translate func(string) string, cell flashcard.Card, x, y, cellW, cellH float64) {
	meta := cell.Song.Metadata
	textY := y + 2 + qrScale*min(cellW, cellH) + 3
	lineH := 4.0

	type line struct {
		text  string
		style string
		size  float64
	}
	lines := []line{
		{meta.Title, "B", 9},
	}
	if meta.Artist != "" {
		lines = append(lines, line{meta.Artist, "", 8})
	}
	if meta.Album != "" {
		album := meta.Album
		if meta.Year != "" {
			album = fmt.Sprintf("%s (%s)", album, meta.Year)
		}
		lines = append(lines, line{album, "I", 7})
	}
	if meta.Composer != "" {
		lines = append(lines, line{meta.Composer, "", 7})
	}
	if meta.Genre != "" {
		lines = append(lines, line{meta.Genre, "", 7})
	}

	doc.SetTextColor(0, 0, 0)
	for _, l := range lines {
		if textY+lineH > y+cellH-1 {
			break
		}
		doc.SetFont("Helvetica", l.style, l.size)
		doc.SetXY(x+1, textY)
		doc.CellFormat(cellW-2, lineH, translate(truncate(l.text, 48)), "", 0, "C", false, 0, "")
		textY += lineH
	}
}

func (r *Renderer) drawPlaceholder(doc *fpdf.Fpdf, translate func(string) string, cell flashcard.Card, x, y, cellW, cellH float64) {
	doc.SetTextColor(120, 120, 120)

	doc.SetFont("Helvetica", "B", 9)
	doc.SetXY(x+1, y+cellH/2-6)
	doc.CellFormat(cellW-2, 4, translate(truncate(cell.Song.Query.String(), 48)), "", 0, "C", false, 0, "")

	doc.SetFont("Helvetica", "I", 7)
	doc.SetXY(x+1, y+cellH/2)
	doc.CellFormat(cellW-2, 4, "no playable link", "", 0, "C", false, 0, "")
}

func truncate(s string, maxRunes int) string {
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	return string(runes[:maxRunes-1]) + "…"
}
