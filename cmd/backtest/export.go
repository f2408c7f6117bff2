package backtest

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"

	"newsbacktest/src/model"
)

// exportRun writes <dir>/<runID>/pnl.csv and <dir>/<runID>/positions.csv.
func exportRun(dir, runID string, pnl []model.PnLRecord, positions []model.PositionRecord) error {
	outDir := filepath.Join(dir, runID)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}

	pnlRows := [][]string{{
		"date", "scope", "new_trade_pnl", "positional_pnl",
		"realized_pnl", "unrealized_pnl", "cash_balance", "annotations",
	}}
	for _, rec := range pnl {
		pnlRows = append(pnlRows, []string{
			rec.Date.Format("2006-01-02"),
			rec.Scope,
			rec.NewTradePnL.String(),
			rec.PositionalPnL.String(),
			rec.RealizedPnL.String(),
			rec.UnrealizedPnL.String(),
			rec.CashBalance.String(),
			rec.Annotations,
		})
	}
	if err := writeCSV(filepath.Join(outDir, "pnl.csv"), pnlRows); err != nil {
		return err
	}

	posRows := [][]string{{
		"date", "symbol", "avg_price", "quantity", "status", "exit_reason",
	}}
	for _, rec := range positions {
		posRows = append(posRows, []string{
			rec.Date.Format("2006-01-02"),
			rec.Symbol,
			rec.AvgPrice.String(),
			strconv.FormatInt(rec.Quantity, 10),
			rec.Status,
			rec.ExitReason,
		})
	}
	return writeCSV(filepath.Join(outDir, "positions.csv"), posRows)
}

func writeCSV(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
