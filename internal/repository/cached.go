package repository

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sirupsen/logrus"

	"github.com/cds-rules-server/internal/domain"
)

// CachedStore is a read-through TTL cache over a MeasurementStore. It
// lives on the collaborator side: the orchestrator itself stays
// cache-free and issues one fetch per required concept per call.
// Absence is never cached, so a newly abstracted record becomes
// visible on the next fetch.
type CachedStore struct {
	inner domain.MeasurementStore
	cache *expirable.LRU[string, *domain.AbstractedRecord]
	log   *logrus.Logger
}

// NewCachedStore wraps inner with an expiring LRU of the given size.
func NewCachedStore(inner domain.MeasurementStore, size int, ttl time.Duration, logger *logrus.Logger) *CachedStore {
	return &CachedStore{
		inner: inner,
		cache: expirable.NewLRU[string, *domain.AbstractedRecord](size, nil, ttl),
		log:   logger,
	}
}

// FetchLatest serves from cache when possible and falls through to the
// inner store otherwise.
func (s *CachedStore) FetchLatest(ctx context.Context, patientID, conceptName string) (*domain.AbstractedRecord, error) {
	key := patientID + "/" + conceptName

	if record, ok := s.cache.Get(key); ok {
		s.log.WithField("key", key).Debug("Measurement cache hit")
		return record, nil
	}

	record, err := s.inner.FetchLatest(ctx, patientID, conceptName)
	if err != nil {
		return nil, err
	}
	if record != nil {
		s.cache.Add(key, record)
	}

	return record, nil
}

// Purge drops all cached entries.
func (s *CachedStore) Purge() {
	s.cache.Purge()
}
