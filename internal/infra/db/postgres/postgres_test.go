package postgres

import (
	"errors"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"

	domainavailability "github.com/andresg0412/waiwahost-plataforma/internal/domain/availability"
)

func TestAsConcurrentUpdate(t *testing.T) {
	cases := []struct {
		code string
		want bool
	}{
		{codeSerializationFailure, true},
		{codeDeadlockDetected, true},
		{codeUniqueViolation, true},
		{"23503", false},
	}
	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			err := asConcurrentUpdate(&pq.Error{Code: pq.ErrorCode(tc.code)})
			assert.Equal(t, tc.want, errors.Is(err, domainavailability.ErrConcurrentUpdate))
		})
	}
	assert.True(t, isUniqueViolation(&pq.Error{Code: codeUniqueViolation}))
	assert.False(t, isUniqueViolation(errors.New("plain")))
}

func TestIdempotencyCutoff(t *testing.T) {
	assert.True(t, IdempotencyStore{}.cutoff().IsZero())
	got := IdempotencyStore{TTL: time.Hour}.cutoff()
	assert.WithinDuration(t, time.Now().Add(-time.Hour), got, time.Minute)
}

func TestSchemaDeclaresTables(t *testing.T) {
	for _, table := range []string{"properties", "intervals", "app_outbox", "app_idempotency", "app_inbox"} {
		assert.Contains(t, schema, "CREATE TABLE IF NOT EXISTS "+table)
	}
	assert.Contains(t, schema, "CHECK (end_date > start_date)")
}
