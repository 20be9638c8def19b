// Package store persists the event collection as a single JSON document,
// matching the data file layout the calendar has always used:
//
//	{"events": [ ... ]}
//
// Every mutation rewrites the whole document atomically (temp file + rename),
// so a crashed write never leaves a truncated collection behind. The store
// serializes its own reads and writes; callers issue one mutation at a time.
package store

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"webcal/internal/model"
)

// FileStore is the JSON-file-backed event store.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates a store over the given data file path. The file is
// created lazily on first write; a missing file reads as an empty collection.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// document is the on-disk shape.
type document struct {
	Events []model.EventInstance `json:"events"`
}

// Init ensures the data file exists, writing an empty collection on first
// run. Existing files are left untouched.
func (s *FileStore) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := os.Stat(s.path)
	if err == nil {
		return nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return s.write(document{Events: []model.EventInstance{}})
}

// ListAll returns every stored instance in storage order. Order is the
// append order of the file, not time order.
func (s *FileStore) ListAll() ([]model.EventInstance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return nil, err
	}
	return doc.Events, nil
}

// AppendMany appends the given instances to the collection.
func (s *FileStore) AppendMany(events []model.EventInstance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return err
	}
	doc.Events = append(doc.Events, events...)
	return s.write(doc)
}

// ReplaceOne replaces the stored instance with a matching ID. A missing ID is
// a no-op, not an error.
func (s *FileStore) ReplaceOne(ev model.EventInstance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return err
	}
	for i := range doc.Events {
		if doc.Events[i].ID == ev.ID {
			doc.Events[i] = ev
			break
		}
	}
	return s.write(doc)
}

// ReplaceSeries updates title, color and description on every instance whose
// series ID matches. Per-instance time ranges are untouched.
func (s *FileStore) ReplaceSeries(seriesID, title, color, description string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return err
	}
	for i := range doc.Events {
		if doc.Events[i].SeriesID == seriesID {
			doc.Events[i].Title = title
			doc.Events[i].Color = color
			doc.Events[i].Description = description
		}
	}
	return s.write(doc)
}

// DeleteOne removes the instance with the given ID, if present.
func (s *FileStore) DeleteOne(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return err
	}
	kept := doc.Events[:0]
	for _, ev := range doc.Events {
		if ev.ID != id {
			kept = append(kept, ev)
		}
	}
	doc.Events = kept
	return s.write(doc)
}

// DeleteSeries removes every instance sharing the given series ID.
func (s *FileStore) DeleteSeries(seriesID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return err
	}
	kept := doc.Events[:0]
	for _, ev := range doc.Events {
		if ev.SeriesID != seriesID {
			kept = append(kept, ev)
		}
	}
	doc.Events = kept
	return s.write(doc)
}

// read loads the document; a missing file reads as empty. Callers must hold
// the mutex.
func (s *FileStore) read() (document, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return document{Events: []model.EventInstance{}}, nil
		}
		return document{}, err
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return document{}, err
	}
	if doc.Events == nil {
		doc.Events = []model.EventInstance{}
	}
	return doc, nil
}

// write replaces the document atomically: temp file in the same directory,
// fsync, chmod 0600, rename. Callers must hold the mutex.
func (s *FileStore) write(doc document) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".webcal-events-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, s.path)
}

// Path returns the data file location (used by the backup job).
func (s *FileStore) Path() string {
	return s.path
}
