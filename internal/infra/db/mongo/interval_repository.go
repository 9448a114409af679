package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainavailability "github.com/andresg0412/waiwahost-plataforma/internal/domain/availability"
	"github.com/andresg0412/waiwahost-plataforma/internal/domain/shared/daterange"
)

// IntervalRepository stores reservations and blocks in one collection keyed
// by kind and id. Writes are guarded by the version field.
type IntervalRepository struct {
	col *mongo.Collection
}

func NewIntervalRepository(db *mongo.Database) *IntervalRepository {
	return &IntervalRepository{col: db.Collection(intervalsCollection)}
}

func (r *IntervalRepository) Window(ctx context.Context, q domainavailability.WindowQuery) ([]domainavailability.Interval, error) {
	cur, err := r.col.Find(ctx, windowFilter(q), options.Find().SetSort(bson.D{{Key: "start", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := make([]domainavailability.Interval, 0)
	for cur.Next(ctx) {
		var doc intervalDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		iv := doc.toAggregate()
		if q.Matches(iv) {
			out = append(out, iv)
		}
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	domainavailability.SortIntervals(out)
	return out, nil
}

func windowFilter(q domainavailability.WindowQuery) bson.M {
	filter := bson.M{}
	if q.CompanyID != "" {
		filter["company_id"] = bson.M{"$in": []string{q.CompanyID, ""}}
	}
	if q.PropertyID != "" {
		filter["property_id"] = string(q.PropertyID)
	}
	if !q.Range.IsZero() {
		filter["start"] = bson.M{"$lt": q.Range.End}
		filter["end"] = bson.M{"$gt": q.Range.Start}
	}
	if !q.IncludeCancelled {
		filter["status"] = bson.M{"$ne": string(domainavailability.StatusCancelled)}
	}
	return filter
}

func (r *IntervalRepository) ByRef(ctx context.Context, ref domainavailability.Ref) (*domainavailability.Interval, error) {
	var doc intervalDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": documentID(ref)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainavailability.ErrIntervalNotFound
		}
		return nil, err
	}
	iv := doc.toAggregate()
	return &iv, nil
}

// Save upserts iv when the stored version still equals iv.Version and bumps
// it on success.
func (r *IntervalRepository) Save(ctx context.Context, iv *domainavailability.Interval) error {
	doc := newIntervalDocument(iv)
	filter := bson.M{"_id": doc.ID, "version": iv.Version}
	doc.Version = iv.Version + 1
	res, err := r.col.UpdateOne(ctx, filter, bson.M{"$set": doc}, options.Update().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domainavailability.ErrConcurrentUpdate
		}
		return asConcurrentUpdate(err)
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return domainavailability.ErrConcurrentUpdate
	}
	iv.Version = doc.Version
	return nil
}

func (r *IntervalRepository) Delete(ctx context.Context, ref domainavailability.Ref) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": documentID(ref)})
	if err != nil {
		return asConcurrentUpdate(err)
	}
	if res.DeletedCount == 0 {
		return domainavailability.ErrIntervalNotFound
	}
	return nil
}

func documentID(ref domainavailability.Ref) string {
	return ref.String()
}

type intervalDocument struct {
	ID          string    `bson:"_id"`
	IntervalID  string    `bson:"interval_id"`
	Kind        string    `bson:"kind"`
	PropertyID  string    `bson:"property_id"`
	CompanyID   string    `bson:"company_id"`
	Status      string    `bson:"status"`
	BlockType   string    `bson:"block_type,omitempty"`
	Start       time.Time `bson:"start"`
	End         time.Time `bson:"end"`
	Label       string    `bson:"label,omitempty"`
	Description string    `bson:"description,omitempty"`
	Total       int64     `bson:"total"`
	Version     int64     `bson:"version"`
	CreatedAt   time.Time `bson:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at"`
}

func newIntervalDocument(iv *domainavailability.Interval) intervalDocument {
	return intervalDocument{
		ID:          documentID(iv.Ref()),
		IntervalID:  string(iv.ID),
		Kind:        string(iv.Kind),
		PropertyID:  string(iv.PropertyID),
		CompanyID:   iv.CompanyID,
		Status:      string(iv.Status),
		BlockType:   iv.BlockType,
		Start:       iv.Range.Start,
		End:         iv.Range.End,
		Label:       iv.Label,
		Description: iv.Description,
		Total:       iv.Total,
		Version:     iv.Version,
		CreatedAt:   iv.CreatedAt.UTC(),
		UpdatedAt:   iv.UpdatedAt.UTC(),
	}
}

// toAggregate reads dates back as calendar days; the driver returns them in
// UTC already.
func (d intervalDocument) toAggregate() domainavailability.Interval {
	return domainavailability.Interval{
		ID:          domainavailability.IntervalID(d.IntervalID),
		PropertyID:  domainavailability.PropertyID(d.PropertyID),
		CompanyID:   d.CompanyID,
		Kind:        domainavailability.Kind(d.Kind),
		Status:      domainavailability.Status(d.Status),
		BlockType:   d.BlockType,
		Range:       daterange.DateRange{Start: daterange.Day(d.Start.UTC()), End: daterange.Day(d.End.UTC())},
		Label:       d.Label,
		Description: d.Description,
		Total:       d.Total,
		Version:     d.Version,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

// asConcurrentUpdate maps transaction write conflicts to the domain error so
// callers can retry.
func asConcurrentUpdate(err error) error {
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) && (cmdErr.HasErrorLabel("TransientTransactionError") || cmdErr.Name == "WriteConflict") {
		return errors.Join(domainavailability.ErrConcurrentUpdate, err)
	}
	var writeErr mongo.WriteException
	if errors.As(err, &writeErr) && writeErr.HasErrorLabel("TransientTransactionError") {
		return errors.Join(domainavailability.ErrConcurrentUpdate, err)
	}
	return err
}

var _ domainavailability.Repository = (*IntervalRepository)(nil)
