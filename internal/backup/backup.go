package backup

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/streamvault/archiver/internal/client"
	"github.com/streamvault/archiver/internal/config"
	"github.com/streamvault/archiver/internal/index"
	"github.com/streamvault/archiver/internal/model"
)

// ErrMissingReason rejects a backup run without a reason tag.
var ErrMissingReason = errors.New("missing backup reason")

const (
	backupPrefix = "ta_backup"
	dumpPrefix   = "es_"
	dateLayout   = "20060102"
)

// Store is the slice of the document store client the engine needs.
type Store interface {
	IndexExists(ctx context.Context, indexName string) (bool, error)
	Count(ctx context.Context, indexName string) (int64, error)
	ScanIndex(ctx context.Context, indexName string, pageSize int, fn func(hits []client.Hit) error) error
	Bulk(ctx context.Context, payload []byte) error
}

// ProgressSink receives per-step progress from long backup/restore runs.
type ProgressSink interface {
	SendProgress(ctx context.Context, lines []string, progress float64)
}

// Engine dumps every index to newline-delimited bulk files, packages them
// into rotating zip archives and restores by replaying the bulk payloads.
type Engine struct {
	store    Store
	dir      string
	keep     int
	pageSize int
	indexes  []string
	progress ProgressSink
}

// NewEngine creates a backup engine working in the backup directory under
// the cache dir. progress may be nil.
func NewEngine(store Store, cfg *config.Config, progress ProgressSink) *Engine {
	return &Engine{
		store:    store,
		dir:      filepath.Join(cfg.Paths.CacheDir, "backup"),
		keep:     cfg.Backup.RotateKeep,
		pageSize: cfg.Backup.PageSize,
		indexes:  index.All,
		progress: progress,
	}
}

// BackupAllIndexes dumps every existing index, zips the dump and rotates old
// automatic backups when the reason is "auto". The reason tag is mandatory.
func (e *Engine) BackupAllIndexes(ctx context.Context, reason string) error {
	log.Println("backup all indexes")
	if reason == "" {
		return ErrMissingReason
	}
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create backup dir: %w", err)
	}

	timestamp := time.Now().Format(dateLayout)

	e.notify(ctx, []string{"Scanning your index."}, 0)
	for _, indexName := range e.indexes {
		exists, err := e.store.IndexExists(ctx, indexName)
		if err != nil {
			return err
		}
		if !exists {
			log.Printf("skip backup for not yet existing index %s", indexName)
			continue
		}

		log.Printf("backup: export in progress for %s", indexName)
		if err := e.backupIndex(ctx, indexName, timestamp); err != nil {
			return err
		}
	}

	e.notify(ctx, []string{"Compress files to zip archive."}, 0)
	if err := e.zipIt(timestamp, reason); err != nil {
		return err
	}

	if reason == "auto" {
		return e.Rotate()
	}
	return nil
}

// backupIndex appends the bulk payload of every page to the per-index dump
// file.
func (e *Engine) backupIndex(ctx context.Context, indexName, timestamp string) error {
	fileName := fmt.Sprintf("%s%s-%s.json", dumpPrefix, strings.TrimPrefix(indexName, "ta_"), timestamp)
	filePath := filepath.Join(e.dir, fileName)

	return e.store.ScanIndex(ctx, indexName, e.pageSize, func(hits []client.Hit) error {
		f, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open dump file: %w", err)
		}
		defer f.Close()

		if _, err := f.Write(buildBulk(hits)); err != nil {
			return fmt.Errorf("failed to write dump file: %w", err)
		}
		return nil
	})
}

// buildBulk renders one page as alternating action/source lines terminated
// by a trailing blank line, the literal bulk-ingest wire payload.
func buildBulk(hits []client.Hit) []byte {
	var buf bytes.Buffer
	for _, hit := range hits {
		action, _ := json.Marshal(map[string]any{
			"index": map[string]any{"_index": hit.Index, "_id": hit.ID},
		})
		buf.Write(action)
		buf.WriteByte('\n')
		buf.Write(hit.Source)
		buf.WriteByte('\n')
	}
	buf.WriteByte('\n')
	return buf.Bytes()
}

// zipIt packs every loose dump file into a single timestamped archive and
// removes the loose files.
func (e *Engine) zipIt(timestamp, reason string) error {
	entries, err := os.ReadDir(e.dir)
	if err != nil {
		return fmt.Errorf("failed to read backup dir: %w", err)
	}

	var toBackup []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".json") {
			toBackup = append(toBackup, entry.Name())
		}
	}

	archiveName := fmt.Sprintf("%s-%s-%s.zip", backupPrefix, timestamp, reason)
	archive, err := os.Create(filepath.Join(e.dir, archiveName))
	if err != nil {
		return fmt.Errorf("failed to create archive: %w", err)
	}
	defer archive.Close()

	writer := zip.NewWriter(archive)
	for _, name := range toBackup {
		src, err := os.Open(filepath.Join(e.dir, name))
		if err != nil {
			writer.Close()
			return fmt.Errorf("failed to open dump file: %w", err)
		}
		dst, err := writer.Create(name)
		if err == nil {
			_, err = io.Copy(dst, src)
		}
		src.Close()
		if err != nil {
			writer.Close()
			return fmt.Errorf("failed to add %s to archive: %w", name, err)
		}
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize archive: %w", err)
	}

	for _, name := range toBackup {
		if err := os.Remove(filepath.Join(e.dir, name)); err != nil {
			return fmt.Errorf("failed to remove dump file: %w", err)
		}
	}

	return nil
}

// List enumerates all backup archives, newest first.
func (e *Engine) List() ([]model.BackupFile, error) {
	entries, err := os.ReadDir(e.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read backup dir: %w", err)
	}

	var names []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, "ta_") && strings.HasSuffix(name, ".zip") {
			names = append(names, name)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))

	backups := make([]model.BackupFile, 0, len(names))
	for _, name := range names {
		if parsed, ok := ParseBackupName(name); ok {
			backups = append(backups, parsed)
		}
	}

	return backups, nil
}

// ParseBackupName splits a backup filename into its parts. Two-segment
// legacy names carry no reason.
func ParseBackupName(name string) (model.BackupFile, bool) {
	parts := strings.Split(name, "-")
	switch len(parts) {
	case 2:
		return model.BackupFile{
			Filename:  name,
			Timestamp: strings.TrimSuffix(parts[1], ".zip"),
		}, true
	case 3:
		return model.BackupFile{
			Filename:  name,
			Timestamp: parts[1],
			Reason:    strings.TrimSuffix(parts[2], ".zip"),
		}, true
	}
	return model.BackupFile{}, false
}

// Rotate deletes automatic backups beyond the configured retention count,
// oldest first. A retention count of zero disables rotation.
func (e *Engine) Rotate() error {
	if e.keep == 0 {
		return nil
	}

	all, err := e.List()
	if err != nil {
		return err
	}

	var auto []model.BackupFile
	for _, backup := range all {
		if backup.Reason == "auto" {
			auto = append(auto, backup)
		}
	}

	if len(auto) <= e.keep {
		log.Println("no backup files to rotate")
		return nil
	}

	for _, toDelete := range auto[e.keep:] {
		filePath := filepath.Join(e.dir, toDelete.Filename)
		log.Printf("remove old backup file: %s", filePath)
		if err := os.Remove(filePath); err != nil {
			return fmt.Errorf("failed to remove old backup: %w", err)
		}
	}

	return nil
}

// Restore unpacks the named archive and replays every bulk dump file into
// the store. Unexpected archive entries are deleted and skipped, empty files
// are a no-op. Store errors are fatal, already-processed files stay
// restored, there is no transactionality across files.
func (e *Engine) Restore(ctx context.Context, filename string) error {
	names, err := e.unpack(filename)
	if err != nil {
		return err
	}

	total := len(names)
	for idx, name := range names {
		e.notify(ctx,
			[]string{fmt.Sprintf("Restore index from json backup file %s.", name)},
			float64(idx+1)/float64(total),
		)

		filePath := filepath.Join(e.dir, name)
		if !strings.HasPrefix(name, dumpPrefix) || !strings.HasSuffix(name, ".json") {
			if err := os.Remove(filePath); err != nil {
				return fmt.Errorf("failed to remove unexpected entry %s: %w", name, err)
			}
			continue
		}

		log.Printf("restoring: %s", name)
		data, err := os.ReadFile(filePath)
		if err != nil {
			return fmt.Errorf("failed to read dump file %s: %w", name, err)
		}
		if len(bytes.TrimSpace(data)) > 0 {
			if err := e.store.Bulk(ctx, data); err != nil {
				return err
			}
		}
		if err := os.Remove(filePath); err != nil {
			return fmt.Errorf("failed to remove dump file %s: %w", name, err)
		}
	}

	return nil
}

// unpack extracts the archive into the working directory, overwriting in
// place, and returns the entry names.
func (e *Engine) unpack(filename string) ([]string, error) {
	reader, err := zip.OpenReader(filepath.Join(e.dir, filename))
	if err != nil {
		return nil, fmt.Errorf("failed to open backup archive: %w", err)
	}
	defer reader.Close()

	var names []string
	for _, file := range reader.File {
		name := filepath.Base(file.Name)
		names = append(names, name)

		src, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open archive entry %s: %w", name, err)
		}
		dst, err := os.Create(filepath.Join(e.dir, name))
		if err == nil {
			_, err = io.Copy(dst, src)
			dst.Close()
		}
		src.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to extract %s: %w", name, err)
		}
	}

	return names, nil
}

func (e *Engine) notify(ctx context.Context, lines []string, progress float64) {
	if e.progress != nil {
		e.progress.SendProgress(ctx, lines, progress)
	}
}
