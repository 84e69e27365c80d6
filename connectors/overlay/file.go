// Package overlay persists arrival statuses keyed by order fingerprint.
package overlay

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/samber/lo"

	"rebar-stats/domain/shipment"
)

// FileStore keeps the overlay in a CSV file (fingerprint,status,updated_at).
// Save replaces the file atomically; the last writer wins.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Load(_ context.Context) (shipment.Overlay, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return shipment.Overlay{}, nil
		}
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	head, err := r.Read()
	if errors.Is(err, io.EOF) {
		return shipment.Overlay{}, nil
	}
	if err != nil {
		return nil, err
	}
	idx := map[string]int{}
	for i, h := range head {
		idx[strings.TrimSpace(h)] = i
	}
	for _, col := range []string{"fingerprint", "status", "updated_at"} {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("%s missing column %s", s.path, col)
		}
	}

	ov := shipment.Overlay{}
	for line := 2; ; line++ {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		status, err := shipment.ParseStatus(rec[idx["status"]])
		if err != nil {
			slog.Warn("overlay.file.skip", "path", s.path, "line", line, "error", err)
			continue
		}
		if status == shipment.StatusUnset {
			continue
		}
		at, err := time.Parse(time.RFC3339, rec[idx["updated_at"]])
		if err != nil {
			slog.Warn("overlay.file.updated_at.invalid", "path", s.path, "line", line, "value", rec[idx["updated_at"]], "error", err)
		}
		ov[rec[idx["fingerprint"]]] = shipment.Entry{Status: status, UpdatedAt: at}
	}
	return ov, nil
}

func (s *FileStore) Save(_ context.Context, ov shipment.Overlay) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	tmpPath := s.path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create temp overlay file: %w", err)
	}

	w := csv.NewWriter(f)
	_ = w.Write([]string{"fingerprint", "status", "updated_at"})
	keys := lo.Keys(ov)
	slices.Sort(keys)
	for _, fp := range keys {
		e := ov[fp]
		_ = w.Write([]string{fp, e.Status.String(), e.UpdatedAt.UTC().Format(time.RFC3339)})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write overlay: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close overlay: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replace overlay: %w", err)
	}
	return nil
}
