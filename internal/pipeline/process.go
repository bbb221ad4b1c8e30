package pipeline

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"stopsale/internal"
	"stopsale/internal/catalog"
	"stopsale/internal/config"
	"stopsale/internal/storage"
	"stopsale/internal/util"
)

// ProcessingService runs batch resolution over the stored rows of an
// email. Each pass loads fresh catalog and learning snapshots so earlier
// confirmations take effect on the next run.
type ProcessingService struct {
	db  *storage.DB
	cfg config.Config
	log zerolog.Logger
}

func NewProcessingService(db *storage.DB, cfg config.Config, log zerolog.Logger) *ProcessingService {
	return &ProcessingService{db: db, cfg: cfg, log: log}
}

// ProcessResult summarizes one batch pass over an email.
type ProcessResult struct {
	TraceID  string
	EmailID  int
	Total    int
	Resolved int
	Failed   int
	Skipped  int
}

// openStatuses are the row states a batch pass may advance. Terminal rows
// keep whatever a human decided.
func isOpenStatus(s internal.RowStatus) bool {
	switch s {
	case internal.StatusPending, internal.StatusHotelNotFound, internal.StatusRoomNotFound:
		return true
	}
	return false
}

// ProcessEmail resolves every open row of one email. A failure on one row
// leaves that row at its prior status and continues with the rest.
func (s *ProcessingService) ProcessEmail(emailID int) (ProcessResult, error) {
	res := ProcessResult{TraceID: uuid.NewString(), EmailID: emailID}
	started := time.Now()

	email, err := s.db.GetEmailByID(emailID)
	if err != nil {
		return res, fmt.Errorf("load email %d: %w", emailID, err)
	}
	if email == nil {
		return res, fmt.Errorf("email %d not found", emailID)
	}

	view, err := LoadLearning(s.db)
	if err != nil {
		return res, fmt.Errorf("load learning snapshot: %w", err)
	}

	sender := util.SenderAddress(email.Sender)
	if _, blocked := view.BlockedSenders[sender]; blocked && sender != "" {
		s.log.Info().Str("sender", sender).Int("emailId", emailID).Msg("sender is blocklisted, skipping email")
		if err := s.db.UpdateEmailStatus(emailID, EmailStatusBlocked); err != nil {
			return res, err
		}
		return res, nil
	}

	idx, err := catalog.LoadIndex(s.db)
	if err != nil {
		return res, fmt.Errorf("load catalog index: %w", err)
	}
	resolver := NewResolver(s.cfg, idx, view, s.log)

	rows, err := s.db.ListFeedRows(emailID)
	if err != nil {
		return res, fmt.Errorf("list rows of email %d: %w", emailID, err)
	}
	res.Total = len(rows)

	for _, row := range rows {
		if !isOpenStatus(row.Status) {
			res.Skipped++
			continue
		}
		if err := s.processRow(resolver, row, sender); err != nil {
			res.Failed++
			s.log.Error().Err(err).
				Str("trace", res.TraceID).
				Int("rowId", row.ID).
				Str("hotelText", row.Row.HotelName).
				Str("roomText", row.Row.RoomType).
				Msg("row resolution failed, keeping prior status")
			continue
		}
		res.Resolved++
	}

	timings := map[string]float64{"totalMs": float64(time.Since(started).Milliseconds())}
	counts := map[string]int{"total": res.Total, "resolved": res.Resolved, "failed": res.Failed, "skipped": res.Skipped}
	if err := s.db.InsertRun(res.TraceID, emailID, timings, counts); err != nil {
		return res, fmt.Errorf("record run: %w", err)
	}

	s.log.Info().
		Str("trace", res.TraceID).
		Int("emailId", emailID).
		Int("total", res.Total).
		Int("resolved", res.Resolved).
		Int("failed", res.Failed).
		Msg("email processed")
	return res, nil
}

// processRow resolves one row and persists the outcome. A panic inside
// scoring is turned into an error so the batch keeps going.
func (s *ProcessingService) processRow(resolver *Resolver, row internal.StoredRow, sender string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic resolving row %d: %v", row.ID, r)
		}
	}()

	resolved := resolver.ResolveRow(row.Row, sender)
	if err := s.db.UpdateRowResolution(row.ID, resolved); err != nil {
		return fmt.Errorf("persist resolution of row %d: %w", row.ID, err)
	}
	return nil
}

// ProcessPendingEmails runs ProcessEmail over up to limit emails in the
// new state, marking each one mixed or approved afterwards via the
// status reducer.
func (s *ProcessingService) ProcessPendingEmails(limit int) ([]ProcessResult, error) {
	emails, err := s.db.ListEmailsByStatus(EmailStatusNew, limit)
	if err != nil {
		return nil, fmt.Errorf("list new emails: %w", err)
	}

	var results []ProcessResult
	for _, email := range emails {
		result, err := s.ProcessEmail(email.ID)
		if err != nil {
			s.log.Error().Err(err).Int("emailId", email.ID).Msg("email processing failed")
			continue
		}
		results = append(results, result)

		refreshed, err := s.db.GetEmailByID(email.ID)
		if err != nil {
			return results, err
		}
		if refreshed != nil && refreshed.Status == EmailStatusBlocked {
			continue
		}

		rows, err := s.db.ListFeedRows(email.ID)
		if err != nil {
			return results, err
		}
		statuses := make([]internal.RowStatus, 0, len(rows))
		terminal := len(rows) > 0
		for _, row := range rows {
			statuses = append(statuses, row.Status)
			if !IsTerminal(row.Status) {
				terminal = false
			}
		}
		next := EmailStatusProcessed
		if terminal {
			next = ReduceEmailStatus(statuses)
		}
		if err := s.db.UpdateEmailStatus(email.ID, next); err != nil {
			return results, err
		}
	}
	return results, nil
}
