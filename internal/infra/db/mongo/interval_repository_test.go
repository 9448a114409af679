package mongo

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	domainavailability "github.com/andresg0412/waiwahost-plataforma/internal/domain/availability"
	"github.com/andresg0412/waiwahost-plataforma/internal/domain/shared/daterange"
)

func TestWindowFilter(t *testing.T) {
	from := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 3, 16, 0, 0, 0, 0, time.UTC)

	got := windowFilter(domainavailability.WindowQuery{
		CompanyID:  "c1",
		PropertyID: "p1",
		Range:      daterange.DateRange{Start: from, End: to},
	})
	assert.Equal(t, bson.M{
		"company_id":  bson.M{"$in": []string{"c1", ""}},
		"property_id": "p1",
		"start":       bson.M{"$lt": to},
		"end":         bson.M{"$gt": from},
		"status":      bson.M{"$ne": "cancelled"},
	}, got)

	assert.Empty(t, windowFilter(domainavailability.WindowQuery{IncludeCancelled: true}))
}

func TestIntervalDocumentRoundTrip(t *testing.T) {
	created := time.Date(2025, 2, 1, 10, 30, 0, 0, time.UTC)
	iv := &domainavailability.Interval{
		ID:         "01HX",
		PropertyID: "p1",
		CompanyID:  "c1",
		Kind:       domainavailability.KindBlock,
		BlockType:  "mantenimiento",
		Range:      daterange.MustNew(time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC), time.Date(2025, 3, 6, 0, 0, 0, 0, time.UTC)),
		Version:    3,
		CreatedAt:  created,
		UpdatedAt:  created,
	}
	doc := newIntervalDocument(iv)
	assert.Equal(t, "block/01HX", doc.ID)

	back := doc.toAggregate()
	assert.Equal(t, iv.Ref(), back.Ref())
	assert.True(t, iv.Range.Start.Equal(back.Range.Start))
	assert.Equal(t, 2, back.Nights())
	assert.Equal(t, int64(3), back.Version)
}

func TestAsConcurrentUpdate(t *testing.T) {
	conflict := mongo.CommandError{Code: 112, Name: "WriteConflict"}
	require.ErrorIs(t, asConcurrentUpdate(conflict), domainavailability.ErrConcurrentUpdate)

	other := errors.New("network down")
	assert.Same(t, other, asConcurrentUpdate(other))
}
