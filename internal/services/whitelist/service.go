// Package whitelist decides which torrents the tracker serves. In
// dynamic mode every infohash is admitted; in listed mode only
// whitelisted ones are.
package whitelist

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/hungfnt/torrust-tracker/internal/config"
	"github.com/hungfnt/torrust-tracker/internal/domain"
)

var ErrNotWhitelisted = errors.New("infohash is not whitelisted")

// Store is the persistent whitelist, normally backed by postgres.
type Store interface {
	Add(ctx context.Context, hash domain.InfoHash) error
	Remove(ctx context.Context, hash domain.InfoHash) error
	Contains(ctx context.Context, hash domain.InfoHash) (bool, error)
	List(ctx context.Context) ([]domain.InfoHash, error)
}

type Service struct {
	mode  string
	store Store

	// fallback holds whitelist entries when no store is attached, so a
	// listed tracker still works without postgres.
	mu       sync.RWMutex
	fallback map[domain.InfoHash]struct{}
}

func NewService(mode string) *Service {
	return &Service{
		mode:     mode,
		fallback: make(map[domain.InfoHash]struct{}),
	}
}

// AttachStore wires the persistent whitelist.
func (s *Service) AttachStore(store Store) {
	s.store = store
}

// Admit returns nil when hash may be tracked and ErrNotWhitelisted when
// the mode forbids it.
func (s *Service) Admit(ctx context.Context, hash domain.InfoHash) error {
	if s.mode != config.ModeListed {
		return nil
	}

	if s.store != nil {
		ok, err := s.store.Contains(ctx, hash)
		if err != nil {
			return fmt.Errorf("check whitelist: %w", err)
		}
		if ok {
			return nil
		}
		return ErrNotWhitelisted
	}

	s.mu.RLock()
	_, ok := s.fallback[hash]
	s.mu.RUnlock()
	if !ok {
		return ErrNotWhitelisted
	}
	return nil
}

func (s *Service) Add(ctx context.Context, hash domain.InfoHash) error {
	if s.store != nil {
		if err := s.store.Add(ctx, hash); err != nil {
			return fmt.Errorf("add to whitelist: %w", err)
		}
		return nil
	}

	s.mu.Lock()
	s.fallback[hash] = struct{}{}
	s.mu.Unlock()
	return nil
}

func (s *Service) Remove(ctx context.Context, hash domain.InfoHash) error {
	if s.store != nil {
		if err := s.store.Remove(ctx, hash); err != nil {
			return fmt.Errorf("remove from whitelist: %w", err)
		}
		return nil
	}

	s.mu.Lock()
	delete(s.fallback, hash)
	s.mu.Unlock()
	return nil
}

func (s *Service) List(ctx context.Context) ([]domain.InfoHash, error) {
	if s.store != nil {
		hashes, err := s.store.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("list whitelist: %w", err)
		}
		return hashes, nil
	}

	s.mu.RLock()
	hashes := make([]domain.InfoHash, 0, len(s.fallback))
	for hash := range s.fallback {
		hashes = append(hashes, hash)
	}
	s.mu.RUnlock()

	sort.Slice(hashes, func(i, j int) bool {
		return hashes[i].String() < hashes[j].String()
	})
	return hashes, nil
}

// Mode reports the configured tracker mode.
func (s *Service) Mode() string {
	return s.mode
}
