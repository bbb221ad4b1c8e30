package listener

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"stopsale/internal/catalog"
	"stopsale/internal/config"
	"stopsale/internal/pipeline"
	"stopsale/internal/storage"
)

// Service watches the feed inbox directory, imports new feed files,
// resolves their rows and optionally exports finished emails as review
// sheets.
type Service struct {
	db  *storage.DB
	cfg config.Config
	log zerolog.Logger
}

func NewService(db *storage.DB, cfg config.Config, log zerolog.Logger) *Service {
	return &Service{db: db, cfg: cfg, log: log}
}

func (s *Service) Run(ctx context.Context) error {
	for {
		if err := s.runCycle(); err != nil {
			s.log.Error().Err(err).Msg("watcher cycle failed")
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(time.Duration(s.cfg.WatcherIntervalSec) * time.Second):
		}
	}
}

func (s *Service) runCycle() error {
	imported, err := s.importInbox()
	if err != nil {
		return err
	}

	processor := pipeline.NewProcessingService(s.db, s.cfg, s.log)
	results, err := processor.ProcessPendingEmails(s.cfg.WatcherProcessBatch)
	if err != nil {
		return err
	}

	if s.cfg.WatcherAutoExport {
		if err := s.exportFinished(); err != nil {
			return err
		}
	}

	s.log.Info().Int("imported", imported).Int("processed", len(results)).Msg("watcher cycle done")
	return nil
}

// importInbox imports every feed file in the inbox and moves it to the
// archive so it is picked up exactly once.
func (s *Service) importInbox() (int, error) {
	entries, err := os.ReadDir(s.cfg.FeedInbox)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	importer := pipeline.NewImporter(s.db, s.log)
	imported := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".json" && ext != ".xlsx" {
			continue
		}

		path := filepath.Join(s.cfg.FeedInbox, entry.Name())
		result, err := importer.ImportFile(path)
		if err != nil {
			s.log.Error().Err(err).Str("file", entry.Name()).Msg("feed import failed")
			continue
		}
		imported++

		if err := s.archive(path, entry.Name()); err != nil {
			return imported, err
		}
		s.log.Debug().Str("file", entry.Name()).Int("emailId", result.EmailID).Int("rows", result.Imported).Msg("feed file archived")
	}
	return imported, nil
}

func (s *Service) archive(path, name string) error {
	if err := os.MkdirAll(s.cfg.FeedArchive, 0o755); err != nil {
		return err
	}
	return os.Rename(path, filepath.Join(s.cfg.FeedArchive, name))
}

// exportFinished writes a review sheet for every email whose rows all
// reached a terminal state.
func (s *Service) exportFinished() error {
	idx, err := catalog.LoadIndex(s.db)
	if err != nil {
		return err
	}

	for _, status := range []string{pipeline.EmailStatusApproved, pipeline.EmailStatusMixed, pipeline.EmailStatusRejected} {
		emails, err := s.db.ListEmailsByStatus(status, 200)
		if err != nil {
			return err
		}
		for _, email := range emails {
			rows, err := s.db.ListFeedRows(email.ID)
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				continue
			}
			filename := fmt.Sprintf("%d_%s.xlsx", email.ID, sanitizeMessageID(email.MessageID))
			outputPath := filepath.Join(s.cfg.OutputDir, "watcher", filename)
			if err := pipeline.ExportRowsToXLSX(idx, email, rows, outputPath); err != nil {
				return err
			}
			if err := s.db.UpdateEmailStatus(email.ID, "exported"); err != nil {
				return err
			}
		}
	}
	return nil
}

func sanitizeMessageID(input string) string {
	repl := strings.NewReplacer("<", "_", ">", "_", ":", "_", "/", "_", "\\", "_", "|", "_", "?", "_", "*", "_", " ", "_")
	out := repl.Replace(input)
	if len(out) > 120 {
		out = out[:120]
	}
	return out
}
