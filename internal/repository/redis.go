package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/cds-rules-server/internal/domain"
)

// RedisMeasurementStore reads abstracted measurements from Redis. The
// abstraction pipeline publishes the latest record per patient/concept
// under a deterministic key, so the freshest value is a single GET.
type RedisMeasurementStore struct {
	client *redis.Client
	log    *logrus.Logger
}

// NewRedisMeasurementStore connects to Redis and verifies the
// connection before returning the store.
func NewRedisMeasurementStore(cfg domain.RedisConfig, logger *logrus.Logger) (*RedisMeasurementStore, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing Redis URL: %w", err)
	}
	opts.PoolSize = cfg.PoolSize
	opts.PoolTimeout = cfg.PoolTimeout
	opts.MaxRetries = cfg.MaxRetries

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to Redis: %w", err)
	}

	return &RedisMeasurementStore{
		client: client,
		log:    logger,
	}, nil
}

// measurementKey is the key the abstraction pipeline publishes under.
func measurementKey(patientID, conceptName string) string {
	return fmt.Sprintf("measurement:latest:%s:%s", patientID, conceptName)
}

// FetchLatest returns the published latest record, or (nil, nil) when
// no record exists for the pair. A record that fails to decode is
// treated as an infrastructure failure, not as absence.
func (s *RedisMeasurementStore) FetchLatest(ctx context.Context, patientID, conceptName string) (*domain.AbstractedRecord, error) {
	val, err := s.client.Get(ctx, measurementKey(patientID, conceptName)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"patient_id": patientID,
			"concept":    conceptName,
			"error":      err,
		}).Error("Failed to fetch record from Redis")
		return nil, fmt.Errorf("fetching record from Redis: %w", err)
	}

	var record domain.AbstractedRecord
	if err := json.Unmarshal([]byte(val), &record); err != nil {
		s.log.WithFields(logrus.Fields{
			"patient_id": patientID,
			"concept":    conceptName,
			"error":      err,
		}).Error("Failed to decode record from Redis")
		return nil, fmt.Errorf("decoding record from Redis: %w", err)
	}

	return &record, nil
}

// Publish writes a record under its latest-value key. Used by seeding
// tools and tests; the abstraction pipeline is the normal writer.
func (s *RedisMeasurementStore) Publish(ctx context.Context, record *domain.AbstractedRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encoding record: %w", err)
	}
	return s.client.Set(ctx, measurementKey(record.PatientID, record.ConceptName), data, 0).Err()
}

// Close releases the Redis client.
func (s *RedisMeasurementStore) Close() error {
	return s.client.Close()
}
