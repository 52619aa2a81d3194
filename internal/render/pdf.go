// Package render produces the human-readable case documents. The case sheet
// follows the OEBC written-exam layout: a centered title, the CASE DATA
// section with labelled history paragraphs, the clinical findings block and
// the description of the relevant finding. Questions are never included in
// the case sheet; the answer key is a separate document published after a
// case completes.
package render

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-pdf/fpdf"

	"github.com/optprep/casebot/internal/domain/entities"
)

// PDFRenderer renders case documents into an output directory.
type PDFRenderer struct {
	dir string
}

// NewPDFRenderer creates a renderer writing into dir, creating it if needed.
func NewPDFRenderer(dir string) (*PDFRenderer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create render directory: %w", err)
	}
	return &PDFRenderer{dir: dir}, nil
}

// RenderCase writes the case sheet PDF and returns its path.
func (r *PDFRenderer) RenderCase(c *entities.Case) (string, error) {
	pdf := newDoc(c.ID)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	heading(pdf, tr, "Written Exam – Sample Case")
	small(pdf, tr, "Property of OEBC")
	pdf.Ln(8)

	section(pdf, tr, "CASE DATA")
	labelled(pdf, tr, "Demographics", c.Data.Demographics)
	labelled(pdf, tr, "Chief Complaint", c.Data.ChiefComplaint)
	labelled(pdf, tr, "Ocular History", c.Data.OcularHistory)
	labelled(pdf, tr, "Medical History", c.Data.MedicalHistory)

	pdf.Ln(3)
	boldLine(pdf, tr, "Clinical Data:")
	clinical := c.Data.Clinical
	plainLine(pdf, tr, "Presenting VA", clinical.PresentingVA)
	plainLine(pdf, tr, "Subjective Refraction", clinical.SubjectiveRefraction)
	plainLine(pdf, tr, "Cover test", clinical.CoverTest)
	plainLine(pdf, tr, "Anterior segment", clinical.AnteriorSegment)
	plainLine(pdf, tr, "Fundus", clinical.Fundus)

	pdf.Ln(3)
	labelled(pdf, tr, "Description of relevant finding", c.Data.Description)

	return r.save(pdf, FileName(c.ID))
}

// RenderAnswers writes the answer key PDF for a completed case and returns
// its path.
func (r *PDFRenderer) RenderAnswers(c *entities.Case) (string, error) {
	pdf := newDoc(c.ID + " answers")
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	heading(pdf, tr, "Answer Key – "+c.ID)
	if c.Topic != "" {
		small(pdf, tr, c.Topic)
	}
	pdf.Ln(8)

	for i, q := range c.Questions {
		boldLine(pdf, tr, fmt.Sprintf("%d. %s", i+1, q.Stem))
		if opt, ok := q.CorrectOption(); ok {
			plainLine(pdf, tr, "Answer", fmt.Sprintf("%s) %s", strings.ToUpper(opt.Label), opt.Text))
		}
		if q.Explanation != "" {
			plainLine(pdf, tr, "Explanation", q.Explanation)
		}
		pdf.Ln(3)
	}

	name := strings.TrimSuffix(FileName(c.ID), ".pdf") + "-answers.pdf"
	return r.save(pdf, name)
}

func (r *PDFRenderer) save(pdf *fpdf.Fpdf, name string) (string, error) {
	path := filepath.Join(r.dir, name)
	if err := pdf.OutputFileAndClose(path); err != nil {
		return "", fmt.Errorf("write pdf: %w", err)
	}
	return path, nil
}

// FileName derives a safe PDF file name from a case identifier: anything
// outside [A-Za-z0-9_-] becomes an underscore.
func FileName(caseID string) string {
	var b strings.Builder
	for _, r := range caseID {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		b.WriteString("case")
	}
	return b.String() + ".pdf"
}

func newDoc(title string) *fpdf.Fpdf {
	pdf := fpdf.New("P", "mm", "Letter", "")
	pdf.SetTitle(title, true)
	pdf.SetMargins(20, 20, 20)
	pdf.AddPage()
	return pdf
}

func heading(pdf *fpdf.Fpdf, tr func(string) string, text string) {
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, tr(text), "", 1, "C", false, 0, "")
}

func small(pdf *fpdf.Fpdf, tr func(string) string, text string) {
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(0, 5, tr(text), "", 1, "C", false, 0, "")
}

func section(pdf *fpdf.Fpdf, tr func(string) string, text string) {
	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(0, 8, tr(text), "", 1, "L", false, 0, "")
	pdf.Ln(1)
}

// labelled writes "Label: text" with a bold label, skipping empty fields.
func labelled(pdf *fpdf.Fpdf, tr func(string) string, label, text string) {
	if text == "" {
		return
	}
	pdf.SetFont("Helvetica", "B", 11)
	pdf.Write(6, tr(label+": "))
	pdf.SetFont("Helvetica", "", 11)
	pdf.Write(6, tr(text))
	pdf.Ln(7)
}

func boldLine(pdf *fpdf.Fpdf, tr func(string) string, text string) {
	pdf.SetFont("Helvetica", "B", 11)
	pdf.MultiCell(0, 6, tr(text), "", "L", false)
}

func plainLine(pdf *fpdf.Fpdf, tr func(string) string, label, text string) {
	if text == "" {
		return
	}
	pdf.SetFont("Helvetica", "", 11)
	pdf.MultiCell(0, 6, tr(label+": "+text), "", "L", false)
}
