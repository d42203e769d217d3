package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/cds-rules-server/internal/domain"
)

// ResilientStore wraps a MeasurementStore with a circuit breaker so a
// struggling backend fails fast instead of stalling every analysis.
type ResilientStore struct {
	inner   domain.MeasurementStore
	breaker *gobreaker.CircuitBreaker
	log     *logrus.Logger
}

// NewResilientStore creates the circuit-breaker decorator.
func NewResilientStore(inner domain.MeasurementStore, logger *logrus.Logger) *ResilientStore {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "measurement-store",
		MaxRequests: 5,
		Interval:    30 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state changed")
		},
	})

	return &ResilientStore{
		inner:   inner,
		breaker: breaker,
		log:     logger,
	}
}

// FetchLatest executes the fetch through the circuit breaker.
func (s *ResilientStore) FetchLatest(ctx context.Context, patientID, conceptName string) (*domain.AbstractedRecord, error) {
	result, err := s.breaker.Execute(func() (interface{}, error) {
		return s.inner.FetchLatest(ctx, patientID, conceptName)
	})
	if err != nil {
		return nil, fmt.Errorf("measurement store fetch: %w", err)
	}

	record, _ := result.(*domain.AbstractedRecord)
	return record, nil
}
