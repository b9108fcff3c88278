package history

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/ppiankov/truthlens/internal/logging"
	"github.com/ppiankov/truthlens/internal/model"
)

// MaxEntries caps the history; the oldest entries are dropped on insert
const MaxEntries = 50

// DefaultKey names the persisted history record
const DefaultKey = "crisis-verifier-history"

// Store is the in-memory, authoritative history list mirrored to a Backend.
// Persistence failures are logged and never returned.
type Store struct {
	backend Backend
	key     string
	logger  *log.Logger
	now     func() time.Time
	newID   func() string

	mu      sync.RWMutex
	entries []model.HistoryEntry
}

// Open loads the persisted history. An unreadable record is logged and
// history starts empty.
func Open(ctx context.Context, backend Backend, key string, logger *log.Logger) *Store {
	if key == "" {
		key = DefaultKey
	}

	s := &Store{
		backend: backend,
		key:     key,
		logger:  logging.OrDiscard(logger),
		now:     time.Now,
		newID:   uuid.NewString,
		entries: []model.HistoryEntry{},
	}
	s.load(ctx)
	return s
}

func (s *Store) load(ctx context.Context) {
	data, err := s.backend.Load(ctx, s.key)
	if err != nil {
		s.logger.Warn("failed to load history", "err", &model.PersistenceError{Op: "load", Err: err})
		return
	}
	if len(data) == 0 {
		return
	}

	var entries []model.HistoryEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		s.logger.Warn("failed to parse history, starting empty", "err", &model.PersistenceError{Op: "parse", Err: err})
		return
	}
	if len(entries) > MaxEntries {
		entries = entries[:MaxEntries]
	}
	s.entries = entries
}

// Save records a successful analysis as the newest entry
func (s *Store) Save(ctx context.Context, content string, contentType model.ContentType, result model.AnalysisResult) model.HistoryEntry {
	entry := model.HistoryEntry{
		ID:             s.newID(),
		Content:        content,
		ContentType:    contentType,
		ContentPreview: model.Preview(content),
		Result:         result,
		CreatedAt:      s.now().UTC().Format(time.RFC3339Nano),
	}

	s.mu.Lock()
	next := make([]model.HistoryEntry, 0, min(len(s.entries)+1, MaxEntries))
	next = append(next, entry)
	next = append(next, s.entries...)
	if len(next) > MaxEntries {
		next = next[:MaxEntries]
	}
	s.entries = next
	s.persistLocked(ctx)
	s.mu.Unlock()

	return entry
}

// ObserveResult saves every successful orchestrated submission
func (s *Store) ObserveResult(ctx context.Context, sub model.Submission, result model.AnalysisResult) {
	s.Save(ctx, sub.Content, sub.ContentType, result)
}

// Delete removes the entry with id. Unknown ids are ignored.
func (s *Store) Delete(ctx context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]model.HistoryEntry, 0, len(s.entries))
	for _, e := range s.entries {
		if e.ID != id {
			next = append(next, e)
		}
	}
	s.entries = next
	s.persistLocked(ctx)
}

// Clear empties the history and removes the persisted record
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = []model.HistoryEntry{}
	if err := s.backend.Remove(context.WithoutCancel(ctx), s.key); err != nil {
		s.logger.Warn("persist history", "err", &model.PersistenceError{Op: "remove", Err: err})
	}
}

// List returns the entries newest-first
func (s *Store) List() []model.HistoryEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.HistoryEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Get returns the entry with id
func (s *Store) Get(id string) (model.HistoryEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.entries {
		if e.ID == id {
			return e, true
		}
	}
	return model.HistoryEntry{}, false
}

// Len returns the number of entries
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Close releases the backend
func (s *Store) Close() error {
	return s.backend.Close()
}

// persistLocked writes the full list; callers hold s.mu. The write outlives
// ctx so a result that finished as its request expired is still recorded.
func (s *Store) persistLocked(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	data, err := json.Marshal(s.entries)
	if err != nil {
		s.logger.Warn("persist history", "err", &model.PersistenceError{Op: "encode", Err: err})
		return
	}
	if err := s.backend.Store(ctx, s.key, data); err != nil {
		s.logger.Warn("persist history", "err", &model.PersistenceError{Op: "store", Err: err})
	}
}
