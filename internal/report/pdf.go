package report

import (
	"fmt"
	"io"
	"time"

	"solde/internal/core"

	"github.com/go-pdf/fpdf"
)

// RowsPerPage is how many transactions fit under the header of one page.
const RowsPerPage = 40

var pdfColumns = []struct {
	title string
	width float64
	align string
}{
	{"Name", 70, "L"},
	{"Amount", 35, "R"},
	{"Date", 30, "C"},
	{"Category", 55, "L"},
}

// WritePDF renders txs as an A4 table followed by the rows of pdfTotals and
// writes it to w.
func WritePDF(w io.Writer, title string, txs []core.Transaction) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(title, true)
	pdf.SetCreator("solde", true)
	pdf.SetCreationDate(time.Now())
	pdf.SetAutoPageBreak(false, 10)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	newPage := func() {
		pdf.AddPage()
		pdf.SetFont("Helvetica", "B", 16)
		pdf.CellFormat(0, 12, tr(title), "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "B", 10)
		pdf.SetFillColor(230, 230, 230)
		for _, c := range pdfColumns {
			pdf.CellFormat(c.width, 8, c.title, "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Helvetica", "", 10)
	}

	newPage()
	if len(txs) == 0 {
		pdf.CellFormat(0, 8, "No transactions", "", 1, "L", false, 0, "")
	}

	for i, t := range txs {
		if i > 0 && i%RowsPerPage == 0 {
			newPage()
		}
		cells := []string{tr(t.Name), t.Amount.StringFixed(), t.Date.String(), tr(t.Category)}
		for j, c := range pdfColumns {
			pdf.CellFormat(c.width, 6, cells[j], "1", 0, c.align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	totals := pdfTotals(txs)
	_, pageHeight := pdf.GetPageSize()
	_, _, _, bottom := pdf.GetMargins()
	if pdf.GetY()+8*float64(len(totals)) > pageHeight-bottom {
		newPage()
	}
	pdf.SetFont("Helvetica", "B", 10)
	for _, row := range totals {
		pdf.CellFormat(pdfColumns[0].width, 8, row.label, "1", 0, "L", false, 0, "")
		pdf.CellFormat(pdfColumns[1].width, 8, row.amount.StringFixed(), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return nil
}

type totalRow struct {
	label  string
	amount core.Money
}

// pdfTotals sums the exported rows. A single-kind export gets one "Total"
// row. A mixed export gets income and expense totals and their signed net,
// never an unsigned sum across kinds.
func pdfTotals(txs []core.Transaction) []totalRow {
	if len(txs) == 0 {
		return nil
	}
	var income, expense []core.Money
	for _, t := range txs {
		switch t.Kind {
		case core.KindIncome:
			income = append(income, t.Amount)
		case core.KindExpense:
			expense = append(expense, t.Amount)
		}
	}
	in, out := core.Sum(income...), core.Sum(expense...)
	switch {
	case len(expense) == 0:
		return []totalRow{{"Total", in}}
	case len(income) == 0:
		return []totalRow{{"Total", out}}
	default:
		return []totalRow{{"Total income", in}, {"Total expenses", out}, {"Net", in.Sub(out)}}
	}
}

// PDFTitle names an export of the given kind.
func PDFTitle(kind core.Kind) string {
	switch kind {
	case core.KindIncome:
		return "Income"
	case core.KindExpense:
		return "Expenses"
	default:
		return "Transactions"
	}
}
