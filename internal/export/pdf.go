package export

import (
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"
	"github.com/hitoshi/wealthio/internal/model"
)

const pdfTitle = "Expense Report"

// PDFOptions はPDF出力の調整項目。
type PDFOptions struct {
	// Compress がfalseの場合はページストリームを圧縮しない（テスト用）。
	Compress bool
}

// WritePDF は支出一覧を「Expense Report」見出し付きのA4 PDFとしてwに書き出す。
// 各行は「番号. タイトル - 金額 - カテゴリ」の形式で、末尾に合計を出力する。
func WritePDF(w io.Writer, expenses []*model.Expense, opts PDFOptions) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(opts.Compress)
	pdf.SetTitle(pdfTitle, true)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	// コアフォントはcp1252のため、UTF-8文字列を変換してから描画する
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Helvetica", "B", 20)
	pdf.CellFormat(0, 12, pdfTitle, "", 1, "C", false, 0, "")
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "", 12)
	var total float64
	for i, e := range expenses {
		line := fmt.Sprintf("%d. %s - %s - %s", i+1, e.Title, formatAmount(e.Amount), e.Category)
		pdf.CellFormat(0, 8, tr(line), "", 1, "L", false, 0, "")
		total += e.Amount
	}

	if len(expenses) > 0 {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(0, 8, "Total: "+formatAmount(total), "T", 1, "R", false, 0, "")
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to render pdf: %w", err)
	}
	return nil
}
