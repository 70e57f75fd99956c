package worker

// report_worker.go renders a closed shift's summary to PDF and XLSX and
// mails both files to the configured supervisors.

import (
	"context"
	"encoding/json"
	"fmt"

	"parkcore/internal/dto"

	"github.com/rs/zerolog/log"
)

// ReportMailer sends a message with attachments. infra.Mailer implements it.
type ReportMailer interface {
	SendReport(to []string, subject, body string, attachments ...string) error
}

// RenderFunc writes summary into dir and returns the file path.
type RenderFunc func(summary dto.ShiftSummary, dir string) (string, error)

// ShiftReportWorker handles JobShiftReport jobs.
type ShiftReportWorker struct {
	renderers  []RenderFunc
	mailer     ReportMailer
	recipients []string
	storage    string
}

// NewShiftReportWorker builds the worker. A nil mailer or an empty recipient
// list renders the files without mailing them.
func NewShiftReportWorker(mailer ReportMailer, recipients []string, storage string, renderers ...RenderFunc) *ShiftReportWorker {
	return &ShiftReportWorker{renderers: renderers, mailer: mailer, recipients: recipients, storage: storage}
}

func (w *ShiftReportWorker) Process(_ context.Context, raw json.RawMessage) error {
	var summary dto.ShiftSummary
	if err := json.Unmarshal(raw, &summary); err != nil {
		// a malformed payload never succeeds; log and drop it
		log.Error().Err(err).Msg("report_worker: invalid payload")
		return nil
	}

	files := make([]string, 0, len(w.renderers))
	for _, render := range w.renderers {
		path, err := render(summary, w.storage)
		if err != nil {
			return fmt.Errorf("render shift %s: %w", summary.ShiftID, err)
		}
		files = append(files, path)
	}

	if w.mailer == nil || len(w.recipients) == 0 {
		log.Info().Str("shift_id", summary.ShiftID).Strs("files", files).Msg("report_worker: rendered, mailing disabled")
		return nil
	}

	subject := fmt.Sprintf("Shift %s closed", summary.ShiftID)
	if err := w.mailer.SendReport(w.recipients, subject, reportBody(summary), files...); err != nil {
		return fmt.Errorf("mail shift %s: %w", summary.ShiftID, err)
	}
	log.Info().Str("shift_id", summary.ShiftID).Int("recipients", len(w.recipients)).Msg("report_worker: shift report sent")
	return nil
}

func reportBody(s dto.ShiftSummary) string {
	body := fmt.Sprintf("Operator: %s\nOpened: %s\nCash expected: %s\nTickets: %d\nSales total: %s\n",
		s.OperatorID, s.OpenedAt, s.CashExpected.StringFixed(2), s.TicketsCount, s.SalesTotal.StringFixed(2))
	if s.CashDeclared != nil && s.CashOverShort != nil {
		body += fmt.Sprintf("Cash declared: %s\nOver/short: %s\n", s.CashDeclared.StringFixed(2), s.CashOverShort.StringFixed(2))
	}
	if s.Variance != nil {
		body += "Variance: " + s.Variance.Classification + "\n"
	}
	return body
}
