// Package vault maintains an in-memory snapshot of the note vault that
// filters evaluate over. The snapshot is rebuilt from storage on demand and
// kept current by the fsnotify watcher.
package vault

import (
	"fmt"
	"sort"
	"sync"

	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/parser"
	"github.com/starford/ansuz/internal/storage"
)

// Snapshot holds the current set of parsed notes. Reads hand out copies, so
// evaluations never observe a half-finished reload.
type Snapshot struct {
	store storage.Provider

	mu    sync.RWMutex
	notes []models.NoteWithContent
	// byChecksum caches parsed notes by path so an unchanged file is not
	// re-parsed on reload.
	byChecksum map[string]cachedNote
}

type cachedNote struct {
	checksum string
	note     models.NoteWithContent
}

// NewSnapshot creates an empty snapshot over the given storage provider.
// Call Reload before first use.
func NewSnapshot(store storage.Provider) *Snapshot {
	return &Snapshot{
		store:      store,
		byChecksum: make(map[string]cachedNote),
	}
}

// Reload re-scans the vault and rebuilds the note set. It returns the number
// of notes loaded.
func (s *Snapshot) Reload() (int, error) {
	files, err := s.store.List("")
	if err != nil {
		return 0, fmt.Errorf("vault: list: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	notes := make([]models.NoteWithContent, 0, len(files))
	cache := make(map[string]cachedNote, len(files))

	for _, file := range files {
		if prev, ok := s.byChecksum[file.Path]; ok && prev.checksum == file.Checksum {
			cache[file.Path] = prev
			notes = append(notes, prev.note)
			continue
		}

		data, err := s.store.Read(file.Path)
		if err != nil {
			return 0, fmt.Errorf("vault: read %s: %w", file.Path, err)
		}
		res, err := parser.Parse(data)
		if err != nil {
			return 0, fmt.Errorf("vault: parse %s: %w", file.Path, err)
		}

		created := res.Created
		if created.IsZero() {
			created = file.ModifiedAt
		}
		note := models.NoteWithContent{
			Note: models.Note{
				ID:         file.Path,
				Title:      res.Title,
				Tags:       res.Tags,
				CreatedAt:  created.Unix(),
				ModifiedAt: file.ModifiedAt.Unix(),
			},
			Content: res.Body,
		}
		cache[file.Path] = cachedNote{checksum: file.Checksum, note: note}
		notes = append(notes, note)
	}

	sort.Slice(notes, func(i, j int) bool { return notes[i].ID < notes[j].ID })

	s.notes = notes
	s.byChecksum = cache
	return len(notes), nil
}

// Notes returns a copy of the current content-carrying note set.
func (s *Snapshot) Notes() []models.NoteWithContent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.NoteWithContent, len(s.notes))
	copy(out, s.notes)
	return out
}

// Meta returns a copy of the current note set without bodies.
func (s *Snapshot) Meta() []models.Note {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Note, len(s.notes))
	for i, n := range s.notes {
		out[i] = n.Note
	}
	return out
}

// Len returns the number of notes currently loaded.
func (s *Snapshot) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.notes)
}
