package reports

import (
	"fmt"
	"io"
	"time"

	"github.com/jung-kurt/gofpdf"

	"rhportal/internal/domain/access"
)

// PermissionRow is one menu section with its visibility per rank.
type PermissionRow struct {
	Title        string
	Path         string
	RequiredRank access.Rank
	Visible      [access.MaxRank]bool
}

// PermissionMatrix lists every top-level section and which ranks see it.
func PermissionMatrix(policy *access.Policy) []PermissionRow {
	rows := make([]PermissionRow, 0, len(policy.Navigation))
	for _, entry := range policy.Navigation {
		row := PermissionRow{Title: entry.Title, Path: entry.Path, RequiredRank: entry.RequiredRank}
		for r := access.MinRank; r <= access.MaxRank; r++ {
			row.Visible[r-1] = entry.Visible(r)
		}
		rows = append(rows, row)
	}
	return rows
}

// WritePermissionsPDF renders the rank by section matrix as an A4 landscape PDF.
func WritePermissionsPDF(w io.Writer, policy *access.Policy, generatedAt time.Time) error {
	pdf := gofpdf.New("L", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(tr("Matriz de permissões"), false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, tr("Matriz de permissões por rank"))
	pdf.Ln(10)
	pdf.SetFont("Helvetica", "", 10)
	pdf.Cell(0, 6, tr(fmt.Sprintf("Gerado em %s", generatedAt.Format("02/01/2006 15:04"))))
	pdf.Ln(10)

	const (
		sectionWidth = 80.0
		pathWidth    = 60.0
		rankWidth    = 22.0
		rowHeight    = 7.0
	)
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	pdf.CellFormat(sectionWidth, rowHeight, tr("Seção"), "1", 0, "L", true, 0, "")
	pdf.CellFormat(pathWidth, rowHeight, tr("Caminho"), "1", 0, "L", true, 0, "")
	for r := access.MinRank; r <= access.MaxRank; r++ {
		pdf.CellFormat(rankWidth, rowHeight, fmt.Sprintf("Rank %d", r), "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	for _, row := range PermissionMatrix(policy) {
		pdf.CellFormat(sectionWidth, rowHeight, tr(row.Title), "1", 0, "L", false, 0, "")
		pdf.CellFormat(pathWidth, rowHeight, row.Path, "1", 0, "L", false, 0, "")
		for _, visible := range row.Visible {
			mark := "-"
			if visible {
				mark = "X"
			}
			pdf.CellFormat(rankWidth, rowHeight, mark, "1", 0, "C", false, 0, "")
		}
		pdf.Ln(-1)
	}

	if len(policy.Actions) > 0 {
		pdf.Ln(6)
		pdf.SetFont("Helvetica", "B", 12)
		pdf.Cell(0, 8, tr("Ações"))
		pdf.Ln(8)
		pdf.SetFont("Helvetica", "", 10)
		for r := access.MinRank; r <= access.MaxRank; r++ {
			actions := policy.PermittedActions(r)
			line := "nenhuma"
			if len(actions) > 0 {
				line = fmt.Sprint(actions)
			}
			pdf.MultiCell(0, 6, tr(fmt.Sprintf("Rank %d: %s", r, line)), "", "L", false)
		}
	}

	return pdf.Output(w)
}
