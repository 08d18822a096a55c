// Package ledger provides the durable transaction store. Two adapters share
// the same contract: a journal-file ledger that keeps state in memory and
// replays an append-only log on startup, and a Postgres ledger backed by
// pgx. The ledger is the sole writer of status and updated_at; records are
// never deleted.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dkotenko/paycore/internal/domain"
	"github.com/dkotenko/paycore/internal/service"
)

// journal operation tags.
const (
	opLog    = "log"
	opStatus = "status"
	opRef    = "ref"
)

// journalEntry is one line of the append-only journal file.
type journalEntry struct {
	Op     string              `json:"op"`
	Record *domain.Transaction `json:"record,omitempty"`
	ID     uuid.UUID           `json:"id,omitempty"`
	Status domain.Status       `json:"status,omitempty"`
	Ref    string              `json:"ref,omitempty"`
	Meta   map[string]string   `json:"meta,omitempty"`
	At     time.Time           `json:"at,omitempty"`
}

// JournalLedger keeps the full record set in memory, guarded by a single
// RWMutex, and appends every mutation to a journal file that is fsynced
// before the call returns. Reopening the same path replays the journal and
// rebuilds the exact state, so a crash after a successful return never loses
// a committed write.
type JournalLedger struct {
	mu   sync.RWMutex
	file *os.File
	enc  *json.Encoder

	byID   map[uuid.UUID]*domain.Transaction
	byUser map[string][]uuid.UUID
	byRef  map[string]uuid.UUID
}

// OpenJournal opens or creates the journal at path and replays it.
func OpenJournal(path string) (*JournalLedger, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	l := &JournalLedger{
		file:   file,
		enc:    json.NewEncoder(file),
		byID:   make(map[uuid.UUID]*domain.Transaction),
		byUser: make(map[string][]uuid.UUID),
		byRef:  make(map[string]uuid.UUID),
	}

	if err := l.replay(); err != nil {
		file.Close()
		return nil, fmt.Errorf("replay journal: %w", err)
	}
	return l, nil
}

// Close closes the journal file. The ledger must not be used afterwards.
func (l *JournalLedger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}

// replay rebuilds the in-memory state from the journal. Runs before the
// ledger is shared, so no locking is needed.
func (l *JournalLedger) replay() error {
	if _, err := l.file.Seek(0, io.SeekStart); err != nil {
		return err
	}

	dec := json.NewDecoder(l.file)
	for {
		var entry journalEntry
		if err := dec.Decode(&entry); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if err := l.apply(&entry); err != nil {
			return err
		}
	}
}

// apply mutates the in-memory state for a single journal entry. Callers hold
// the write lock (or run single-threaded during replay).
func (l *JournalLedger) apply(entry *journalEntry) error {
	switch entry.Op {
	case opLog:
		rec := cloneRecord(entry.Record)
		l.byID[rec.ID] = rec
		l.byUser[rec.UserID] = append(l.byUser[rec.UserID], rec.ID)
		if rec.Reference != "" {
			l.byRef[rec.Reference] = rec.ID
		}
	case opStatus:
		rec, ok := l.byID[entry.ID]
		if !ok {
			return fmt.Errorf("journal references unknown id %s", entry.ID)
		}
		rec.Status = entry.Status
		rec.UpdatedAt = entry.At
		mergeMeta(rec, entry.Meta)
	case opRef:
		rec, ok := l.byID[entry.ID]
		if !ok {
			return fmt.Errorf("journal references unknown id %s", entry.ID)
		}
		rec.Reference = entry.Ref
		l.byRef[entry.Ref] = entry.ID
		mergeMeta(rec, entry.Meta)
	default:
		return fmt.Errorf("unknown journal op %q", entry.Op)
	}
	return nil
}

// append writes one entry and forces it to disk. Nothing is applied in
// memory unless the write and the fsync both succeed.
func (l *JournalLedger) append(entry *journalEntry) error {
	if err := l.enc.Encode(entry); err != nil {
		return fmt.Errorf("journal write: %w", err)
	}
	if err := l.file.Sync(); err != nil {
		return fmt.Errorf("journal sync: %w", err)
	}
	return nil
}

// LogTransaction admits a fresh pending record to the ledger. The record's
// id must be unused; the failed call leaves the ledger untouched.
func (l *JournalLedger) LogTransaction(ctx context.Context, rec *domain.Transaction) error {
	if rec.ID == uuid.Nil {
		return fmt.Errorf("transaction id is required")
	}
	if rec.Status != domain.StatusPending {
		return domain.ErrInvalidTransition
	}
	if err := rec.Validate(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.byID[rec.ID]; exists {
		return domain.ErrDuplicateTransaction
	}
	if rec.Reference != "" {
		if _, exists := l.byRef[rec.Reference]; exists {
			return domain.ErrDuplicateTransaction
		}
	}

	entry := &journalEntry{Op: opLog, Record: cloneRecord(rec)}
	if err := l.append(entry); err != nil {
		return err
	}
	return l.apply(entry)
}

// GetTransactions returns the user's records in insertion order. An unknown
// user yields an empty slice, not an error.
func (l *JournalLedger) GetTransactions(ctx context.Context, userID string) ([]domain.Transaction, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	ids := l.byUser[userID]
	out := make([]domain.Transaction, 0, len(ids))
	for _, id := range ids {
		out = append(out, *cloneRecord(l.byID[id]))
	}
	return out, nil
}

// UpdateStatus moves a record through the state machine and stamps
// UpdatedAt. meta, if non-nil, is merged into the record's metadata in the
// same durable write as the transition.
func (l *JournalLedger) UpdateStatus(ctx context.Context, id uuid.UUID, next domain.Status, meta map[string]string) (domain.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.byID[id]
	if !ok {
		return domain.Transaction{}, domain.ErrNotFound
	}
	if !rec.Status.CanTransitionTo(next) {
		return domain.Transaction{}, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, rec.Status, next)
	}

	entry := &journalEntry{Op: opStatus, ID: id, Status: next, Meta: meta, At: time.Now().UTC()}
	if err := l.append(entry); err != nil {
		return domain.Transaction{}, err
	}
	if err := l.apply(entry); err != nil {
		return domain.Transaction{}, err
	}
	return *cloneRecord(rec), nil
}

// FindByReference resolves a provider reference to its record.
func (l *JournalLedger) FindByReference(ctx context.Context, ref string) (domain.Transaction, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	id, ok := l.byRef[ref]
	if !ok {
		return domain.Transaction{}, domain.ErrNotFound
	}
	return *cloneRecord(l.byID[id]), nil
}

// RegisterReference binds a provider reference to an existing record so that
// asynchronous confirmation can find it later. A reference already bound to
// another record is rejected.
func (l *JournalLedger) RegisterReference(ctx context.Context, id uuid.UUID, ref string, meta map[string]string) error {
	if ref == "" {
		return fmt.Errorf("provider reference is required")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.byID[id]; !ok {
		return domain.ErrNotFound
	}
	if bound, ok := l.byRef[ref]; ok && bound != id {
		return domain.ErrDuplicateTransaction
	}

	entry := &journalEntry{Op: opRef, ID: id, Ref: ref, Meta: meta}
	if err := l.append(entry); err != nil {
		return err
	}
	return l.apply(entry)
}

// cloneRecord copies a record including its metadata map, so callers never
// share mutable state with the ledger.
func cloneRecord(rec *domain.Transaction) *domain.Transaction {
	out := *rec
	if rec.Metadata != nil {
		out.Metadata = make(map[string]string, len(rec.Metadata))
		for k, v := range rec.Metadata {
			out.Metadata[k] = v
		}
	}
	return &out
}

func mergeMeta(rec *domain.Transaction, meta map[string]string) {
	if len(meta) == 0 {
		return
	}
	if rec.Metadata == nil {
		rec.Metadata = make(map[string]string, len(meta))
	}
	for k, v := range meta {
		rec.Metadata[k] = v
	}
}

var _ service.Ledger = (*JournalLedger)(nil)
