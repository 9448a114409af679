package mongo

import (
	"context"
	"errors"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainavailability "github.com/andresg0412/waiwahost-plataforma/internal/domain/availability"
)

type PropertyRepository struct {
	col *mongo.Collection
}

func NewPropertyRepository(db *mongo.Database) *PropertyRepository {
	return &PropertyRepository{col: db.Collection(propertiesCollection)}
}

func (r *PropertyRepository) ByID(ctx context.Context, id domainavailability.PropertyID) (*domainavailability.Property, error) {
	var doc propertyDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainavailability.ErrPropertyNotFound
		}
		return nil, err
	}
	p := doc.toDomain()
	return &p, nil
}

// List narrows by company and id in the query; city and name matching is
// re-applied in memory so the rules stay identical across stores.
func (r *PropertyRepository) List(ctx context.Context, filter domainavailability.PropertyFilter) ([]domainavailability.Property, error) {
	f := filter.Normalized()
	query := bson.M{}
	if f.CompanyID != "" {
		query["company_id"] = f.CompanyID
	}
	if f.PropertyID != "" {
		query["_id"] = string(f.PropertyID)
	}
	if f.Search != "" {
		query["name"] = primitive.Regex{Pattern: regexp.QuoteMeta(f.Search), Options: "i"}
	}
	cur, err := r.col.Find(ctx, query, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var docs []propertyDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	items := make([]domainavailability.Property, 0, len(docs))
	for _, doc := range docs {
		items = append(items, doc.toDomain())
	}
	out := domainavailability.FilterProperties(items, filter)
	domainavailability.SortProperties(out)
	return out, nil
}

func (r *PropertyRepository) Save(ctx context.Context, p *domainavailability.Property) error {
	if p == nil || p.ID == "" {
		return &domainavailability.ValidationError{Field: "property_id", Reason: "required"}
	}
	doc := propertyDocument{ID: string(p.ID), CompanyID: p.CompanyID, Name: p.Name, City: p.City}
	_, err := r.col.UpdateByID(ctx, doc.ID, bson.M{"$set": doc}, options.Update().SetUpsert(true))
	return err
}

type propertyDocument struct {
	ID        string `bson:"_id"`
	CompanyID string `bson:"company_id"`
	Name      string `bson:"name"`
	City      string `bson:"city"`
}

func (d propertyDocument) toDomain() domainavailability.Property {
	return domainavailability.Property{
		ID:        domainavailability.PropertyID(d.ID),
		CompanyID: d.CompanyID,
		Name:      d.Name,
		City:      d.City,
	}
}

var _ domainavailability.PropertyRepository = (*PropertyRepository)(nil)
