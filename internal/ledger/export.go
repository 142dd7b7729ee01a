package ledger

import (
	"encoding/csv"
	"fmt"
	"io"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// WriteCSV streams a lease's payment history as CSV for landlord exports.
func WriteCSV(w io.Writer, payments []Payment) error {
	printer := message.NewPrinter(language.English)
	amount := func(v float64) string {
		return printer.Sprintf("%v", currency.NarrowSymbol(currency.USD.Amount(v)))
	}

	writer := csv.NewWriter(w)
	header := []string{"number", "due_date", "payment_date", "amount", "late_fee", "method", "status", "transaction_ref", "notes"}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("ledger: write csv header: %w", err)
	}

	for _, p := range payments {
		lateFee := ""
		if p.LateFee != nil {
			lateFee = amount(*p.LateFee)
		}
		ref := ""
		if p.TransactionRef != nil {
			ref = *p.TransactionRef
		}
		notes := ""
		if p.Notes != nil {
			notes = *p.Notes
		}
		row := []string{
			p.Number,
			p.DueDate.Format("2006-01-02"),
			p.PaymentDate.Format("2006-01-02"),
			amount(p.Amount),
			lateFee,
			string(p.Method),
			string(p.Status),
			ref,
			notes,
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("ledger: write csv row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}
