package reports

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"
)

// csvHeader is the fixed export column order.
var csvHeader = []string{
	"ticker", "type", "strike_price", "contracts_closed", "contract_price",
	"closing_price", "premium_received", "premium_paid_to_close",
	"premium_captured", "premium_source", "percent_pl",
	"opened_at", "closed_at", "holding_days", "notes",
}

// WriteCSV writes rows in the fixed column order. encoding/csv quotes and
// doubles embedded quotes per RFC 4180, which covers commas, quotes and
// newlines in notes.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for i := range rows {
		r := &rows[i]
		pct := ""
		if r.PercentPL.Valid {
			pct = r.PercentPL.Decimal.StringFixed(2)
		}
		notes := ""
		if r.Notes != nil {
			notes = *r.Notes
		}
		record := []string{
			r.Ticker,
			string(r.Type),
			r.StrikePrice.StringFixed(2),
			strconv.Itoa(r.ContractsClosed),
			r.ContractPrice.StringFixed(2),
			r.ClosingPrice.StringFixed(2),
			r.PremiumReceived.StringFixed(2),
			r.PremiumPaidToClose.StringFixed(2),
			r.PremiumCaptured.StringFixed(2),
			string(r.PremiumSource),
			pct,
			r.OpenedAt.UTC().Format(time.RFC3339),
			r.ClosedAt.UTC().Format(time.RFC3339),
			strconv.Itoa(r.HoldingDays),
			notes,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
