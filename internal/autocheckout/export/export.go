// Package export renders the auto checkout audit trail as an xlsx workbook.
package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/smallbiznis/frontdesk/internal/autocheckout/domain"
	"github.com/xuri/excelize/v2"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	checkoutSheet  = "Checkouts"
	executionSheet = "Executions"
	exportLimit    = 1000
	timeLayout     = "2006-01-02 15:04:05"
)

var ErrGenerate = errors.New("export_generate_failed")

type Params struct {
	fx.In

	Log     *zap.Logger
	Service domain.Service
}

type Exporter struct {
	log *zap.Logger
	svc domain.Service
}

func New(p Params) *Exporter {
	return &Exporter{
		log: p.Log.Named("autocheckout.export"),
		svc: p.Service,
	}
}

// Export builds the workbook for date, or for the most recent rows when date is empty.
func (e *Exporter) Export(ctx context.Context, date string) (*bytes.Buffer, string, error) {
	logs, err := e.svc.ListCheckoutLogs(ctx, domain.ListCheckoutLogsRequest{Date: date, Limit: exportLimit})
	if err != nil {
		return nil, "", err
	}
	executions, err := e.svc.ListExecutions(ctx, domain.ListExecutionsRequest{Date: date, Limit: exportLimit})
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", checkoutSheet); err != nil {
		return nil, "", e.fail(err)
	}
	if _, err := f.NewSheet(executionSheet); err != nil {
		return nil, "", e.fail(err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#D9E1F2"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, "", e.fail(err)
	}

	checkoutRows := make([][]interface{}, 0, len(logs))
	for _, entry := range logs {
		checkoutRows = append(checkoutRows, []interface{}{
			entry.CheckoutDate,
			entry.ResourceName,
			entry.GuestName,
			entry.CheckoutAt.Format(timeLayout),
			string(entry.Outcome),
			entry.Notes,
			entry.RunID,
		})
	}
	if err := writeSheet(f, checkoutSheet, headerStyle,
		[]string{"Date", "Room", "Guest", "Checkout At (UTC)", "Outcome", "Notes", "Run"},
		[]float64{12, 14, 24, 20, 10, 60, 28},
		checkoutRows,
	); err != nil {
		return nil, "", e.fail(err)
	}

	executionRows := make([][]interface{}, 0, len(executions))
	for _, entry := range executions {
		operator := "-"
		if entry.OperatorID != nil {
			operator = *entry.OperatorID
		}
		executionRows = append(executionRows, []interface{}{
			entry.ExecutionDate,
			entry.ExecutedAt.Format(timeLayout),
			string(entry.Method),
			operator,
			entry.BookingsFound,
			entry.BookingsSuccessful,
			entry.BookingsFailed,
			string(entry.Status),
			entry.DurationSeconds,
			entry.RunID,
		})
	}
	if err := writeSheet(f, executionSheet, headerStyle,
		[]string{"Date", "Executed At (UTC)", "Method", "Operator", "Found", "Successful", "Failed", "Status", "Duration (s)", "Run"},
		[]float64{12, 20, 12, 16, 8, 10, 8, 10, 12, 28},
		executionRows,
	); err != nil {
		return nil, "", e.fail(err)
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		return nil, "", e.fail(err)
	}
	return buf, filename(date), nil
}

func (e *Exporter) fail(err error) error {
	e.log.Error("autocheckout.export.failed", zap.Error(err))
	return ErrGenerate
}

func writeSheet(f *excelize.File, sheet string, style int, headers []string, widths []float64, rows [][]interface{}) error {
	for i, header := range headers {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, col, col, widths[i]); err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, col+"1", header); err != nil {
			return err
		}
	}
	last, err := excelize.CoordinatesToCellName(len(headers), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, style); err != nil {
		return err
	}

	for r, values := range rows {
		start, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, start, &values); err != nil {
			return err
		}
	}
	return nil
}

func filename(date string) string {
	date = strings.TrimSpace(date)
	if date == "" {
		date = "recent"
	}
	return fmt.Sprintf("auto_checkout_%s.xlsx", date)
}
