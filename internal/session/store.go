// Package session owns the persisted list of uploaded accounts and the
// NoData/Loading/Ready/Error lifecycle of the dashboard built from it.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/azure/brand-analytics/internal/metrics"
	"github.com/azure/brand-analytics/internal/models"
	"github.com/azure/brand-analytics/internal/reconcile"
	"github.com/azure/brand-analytics/internal/storage"
	"github.com/sirupsen/logrus"
)

var (
	// ErrNoData is returned when no accounts have been uploaded
	ErrNoData = errors.New("no data loaded")
	// ErrCorrupt is returned when the persisted slot cannot be decoded. The slot is reset.
	ErrCorrupt = errors.New("persisted session data is corrupt")
	// ErrSessionFull is returned when a new account would exceed the account cap
	ErrSessionFull = fmt.Errorf("session already holds %d accounts", reconcile.MaxAccounts)
)

// State is the lifecycle state of the session
type State int

const (
	StateNoData State = iota
	StateLoading
	StateReady
	StateError
)

func (s State) String() string {
	switch s {
	case StateNoData:
		return "no_data"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Store reads and writes the session slot. All methods are safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	storage storage.StorageInterface
	slot    string
	state   State
	view    reconcile.View
}

// NewStore creates a store over the given storage slot
func NewStore(s storage.StorageInterface, slot string) *Store {
	return &Store{
		storage: s,
		slot:    slot,
		state:   StateNoData,
	}
}

// State returns the current lifecycle state
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// View returns the reconciled view computed by the last successful load or append
func (s *Store) View() (reconcile.View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateReady {
		return reconcile.View{}, ErrNoData
	}
	return s.view, nil
}

// Load reads the slot and reconciles it. An absent slot or empty list yields
// ErrNoData; undecodable data yields ErrCorrupt, resets the slot and leaves the
// store in StateError until Reset is called.
func (s *Store) Load(ctx context.Context) (reconcile.View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = StateLoading

	data, err := s.storage.Retrieve(ctx, s.slot)
	if errors.Is(err, storage.ErrNotFound) {
		s.setNoData()
		return reconcile.View{}, ErrNoData
	}
	if err != nil {
		s.setNoData()
		return reconcile.View{}, fmt.Errorf("failed to read session slot %s: %w", s.slot, err)
	}

	view, err := reconcile.ReconcileJSON(data)
	switch {
	case errors.Is(err, reconcile.ErrNoAccounts):
		s.setNoData()
		return reconcile.View{}, ErrNoData
	case err != nil:
		logrus.Errorf("Session slot %s is corrupt, resetting: %v", s.slot, err)
		if delErr := s.storage.Delete(ctx, s.slot); delErr != nil && !errors.Is(delErr, storage.ErrNotFound) {
			logrus.Warnf("Failed to reset corrupt session slot: %v", delErr)
		}
		s.state = StateError
		s.view = reconcile.View{}
		metrics.SessionAccounts.Set(0)
		return reconcile.View{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	s.setReady(view)
	return view, nil
}

// AppendAccount adds a locally assembled account, replacing one with the same id
func (s *Store) AppendAccount(ctx context.Context, a models.Account) (reconcile.View, error) {
	raw, err := json.Marshal(a)
	if err != nil {
		return reconcile.View{}, fmt.Errorf("failed to encode account: %w", err)
	}
	return s.Append(ctx, raw)
}

// Append adds one payload, replacing a stored payload with the same id.
// It fails with ErrSessionFull when the session already holds the maximum.
func (s *Store) Append(ctx context.Context, raw json.RawMessage) (reconcile.View, error) {
	payload, err := reconcile.DecodePayload(raw)
	if err != nil {
		return reconcile.View{}, fmt.Errorf("invalid account payload: %w", err)
	}
	id := payload.ID()

	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.readSlot(ctx)
	if err != nil {
		return reconcile.View{}, err
	}

	kept := make([]json.RawMessage, 0, len(current)+1)
	for i, item := range current {
		p, err := reconcile.DecodePayload(item)
		if err != nil {
			logrus.Warnf("Dropping malformed item %d from session slot %s: %v", i, s.slot, err)
			continue
		}
		if id != "" && p.ID() == id {
			continue
		}
		kept = append(kept, item)
	}
	if len(kept) >= reconcile.MaxAccounts {
		return reconcile.View{}, ErrSessionFull
	}
	kept = append(kept, raw)

	data, err := json.Marshal(kept)
	if err != nil {
		return reconcile.View{}, fmt.Errorf("failed to encode session: %w", err)
	}
	view, err := reconcile.ReconcileJSON(data)
	if err != nil {
		return reconcile.View{}, err
	}
	if err := s.storage.Store(ctx, s.slot, data); err != nil {
		return reconcile.View{}, fmt.Errorf("failed to write session slot %s: %w", s.slot, err)
	}
	s.setReady(view)
	logrus.Infof("Session now holds %d accounts (%s mode)", len(view.Accounts), view.Mode)
	return view, nil
}

// readSlot returns the raw stored payloads. A corrupt slot is discarded.
func (s *Store) readSlot(ctx context.Context) ([]json.RawMessage, error) {
	data, err := s.storage.Retrieve(ctx, s.slot)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session slot %s: %w", s.slot, err)
	}

	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		logrus.Warnf("Discarding corrupt session slot %s: %v", s.slot, err)
		return nil, nil
	}
	return items, nil
}

// Brands lists the accounts of the current view
func (s *Store) Brands() []models.Brand {
	s.mu.Lock()
	defer s.mu.Unlock()

	brands := make([]models.Brand, 0, len(s.view.Accounts))
	if s.state != StateReady {
		return brands
	}
	for _, a := range s.view.Accounts {
		brands = append(brands, models.Brand{ID: a.ID, Name: reconcile.DisplayName(a)})
	}
	return brands
}

// Reset clears the slot and returns the store to StateNoData
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.storage.Delete(ctx, s.slot); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("failed to reset session slot %s: %w", s.slot, err)
	}
	s.setNoData()
	return nil
}

func (s *Store) setNoData() {
	s.state = StateNoData
	s.view = reconcile.View{}
	metrics.SessionAccounts.Set(0)
}

func (s *Store) setReady(view reconcile.View) {
	s.state = StateReady
	s.view = view
	metrics.SessionAccounts.Set(float64(len(view.Accounts)))
}
