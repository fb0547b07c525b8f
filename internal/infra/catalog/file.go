package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/yanqian/clinic-assistant/internal/domain/faq"
)

// FileSource serves catalogs from a YAML file and reloads it on change.
type FileSource struct {
	path          string
	defaultClinic string
	current       *MemorySource
	logger        *slog.Logger
}

// NewFileSource loads path eagerly so a broken catalog fails at startup.
func NewFileSource(path, defaultClinicID string, logger *slog.Logger) (*FileSource, error) {
	s := &FileSource{
		path:          path,
		defaultClinic: defaultClinicID,
		current:       NewMemorySource(defaultClinicID, nil),
		logger:        logger.With("component", "catalog.file"),
	}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Snapshot implements faq.CatalogSource.
func (s *FileSource) Snapshot(ctx context.Context, clinicID string) ([]faq.KnownQuestion, error) {
	return s.current.Snapshot(ctx, clinicID)
}

// Reload re-reads the file. On failure the previous catalogs stay in place.
func (s *FileSource) Reload() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("read catalog file: %w", err)
	}
	doc, err := ParseDocument(data)
	if err != nil {
		return err
	}
	catalogs := doc.Catalogs(s.defaultClinic)
	s.current.ReplaceAll(catalogs)
	s.logger.Info("catalog loaded", "path", s.path, "clinics", len(catalogs))
	return nil
}

// Watch starts reloading the catalog whenever the file changes. The parent
// directory is watched because editors often replace files by rename. Watch
// returns once the watcher is registered; the loop ends with ctx.
func (s *FileSource) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(filepath.Dir(s.path)); err != nil {
		w.Close()
		return err
	}
	target := filepath.Clean(s.path)

	go func() {
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
					continue
				}
				if err := s.Reload(); err != nil {
					s.logger.Warn("catalog reload failed, keeping previous snapshot", "path", s.path, "error", err)
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				s.logger.Warn("catalog watcher error", "error", err)
			}
		}
	}()
	return nil
}

var _ faq.CatalogSource = (*FileSource)(nil)
