// Package export は支出一覧のCSV/PDF出力を提供する。
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/hitoshi/wealthio/internal/model"
)

// csvHeader はCSVの列。dateは支出の作成日時。
var csvHeader = []string{"title", "amount", "category", "date"}

// WriteCSV は支出一覧をヘッダー付きCSVとしてwに書き出す。
// 支出が0件の場合もヘッダー行は出力する。
func WriteCSV(w io.Writer, expenses []*model.Expense) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, e := range expenses {
		record := []string{
			e.Title,
			formatAmount(e.Amount),
			e.Category,
			e.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write csv record: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}
	return nil
}

// formatAmount は金額を余分な0を付けずに文字列化する。
func formatAmount(amount float64) string {
	return strconv.FormatFloat(amount, 'f', -1, 64)
}
