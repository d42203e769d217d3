package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cds-rules-server/internal/domain"
)

// countingStore records fetch calls and serves canned responses.
type countingStore struct {
	calls   int
	records map[string]*domain.AbstractedRecord
	err     error
}

func (c *countingStore) FetchLatest(_ context.Context, patientID, conceptName string) (*domain.AbstractedRecord, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return c.records[patientID+"/"+conceptName], nil
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func TestCachedStore_ServesFromCache(t *testing.T) {
	inner := &countingStore{records: map[string]*domain.AbstractedRecord{
		"p1/Hemoglobin_Level": {
			PatientID:   "p1",
			ConceptName: "Hemoglobin_Level",
			Value:       "Low",
			StartTime:   "2024-03-01",
			EndTime:     "2024-03-10",
		},
	}}
	store := NewCachedStore(inner, 16, time.Minute, quietLogger())

	ctx := context.Background()
	first, err := store.FetchLatest(ctx, "p1", "Hemoglobin_Level")
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := store.FetchLatest(ctx, "p1", "Hemoglobin_Level")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.calls)
}

func TestCachedStore_DoesNotCacheAbsence(t *testing.T) {
	inner := &countingStore{}
	store := NewCachedStore(inner, 16, time.Minute, quietLogger())

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		record, err := store.FetchLatest(ctx, "p1", "WBC_Level")
		require.NoError(t, err)
		assert.Nil(t, record)
	}
	assert.Equal(t, 3, inner.calls)
}

func TestCachedStore_ErrorsPassThrough(t *testing.T) {
	inner := &countingStore{err: errors.New("backend down")}
	store := NewCachedStore(inner, 16, time.Minute, quietLogger())

	_, err := store.FetchLatest(context.Background(), "p1", "Chills")
	require.Error(t, err)
}

func TestResilientStore_PassesThroughResults(t *testing.T) {
	inner := &countingStore{records: map[string]*domain.AbstractedRecord{
		"p1/Chills": {PatientID: "p1", ConceptName: "Chills", Value: "Rigor"},
	}}
	store := NewResilientStore(inner, quietLogger())

	ctx := context.Background()
	record, err := store.FetchLatest(ctx, "p1", "Chills")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, "Rigor", record.Value)

	// Absence survives the breaker untouched.
	record, err = store.FetchLatest(ctx, "p1", "Fever_Level")
	require.NoError(t, err)
	assert.Nil(t, record)
}

func TestResilientStore_OpensAfterRepeatedFailures(t *testing.T) {
	inner := &countingStore{err: errors.New("backend down")}
	store := NewResilientStore(inner, quietLogger())

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := store.FetchLatest(ctx, "p1", "Chills")
		require.Error(t, err)
	}

	callsBeforeOpen := inner.calls
	_, err := store.FetchLatest(ctx, "p1", "Chills")
	require.Error(t, err)
	// Once open, the breaker rejects without hitting the backend.
	assert.Equal(t, callsBeforeOpen, inner.calls)
}
