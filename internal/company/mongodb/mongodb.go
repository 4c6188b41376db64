// Package mongodb implements the company repository on a MongoDB
// collection. Identifiers are ObjectIDs rendered as hex strings.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	e "github.com/gartstein/companydir/internal/company/errors"
	"github.com/gartstein/companydir/internal/company/filter"
	"github.com/gartstein/companydir/internal/company/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const disconnectTimeout = 5 * time.Second

type Config struct {
	URI        string
	Database   string
	Collection string
}

type Store struct {
	client *mongo.Client
	coll   *mongo.Collection
}

type document struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Name        string             `bson:"name"`
	Industry    string             `bson:"industry"`
	Country     string             `bson:"country"`
	City        string             `bson:"city"`
	Employees   int                `bson:"employees"`
	Description *string            `bson:"description,omitempty"`
	LogoURL     *string            `bson:"logoUrl,omitempty"`
	CreatedAt   time.Time          `bson:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt"`
}

// Connect opens a client, verifies the server is reachable and ensures the
// collection's secondary indexes exist.
func Connect(ctx context.Context, cfg Config) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	coll := client.Database(cfg.Database).Collection(cfg.Collection)
	_, err = coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "industry", Value: 1}}},
		{Keys: bson.D{{Key: "country", Value: 1}}},
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to create indexes: %w", err)
	}

	return &Store{client: client, coll: coll}, nil
}

func (s *Store) CreateCompany(ctx context.Context, in *models.CompanyInput) (*models.Company, error) {
	doc := toDocument(models.NewCompany("", in, models.Timestamp()))
	res, err := s.coll.InsertOne(ctx, doc)
	if err != nil {
		return nil, err
	}

	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return nil, fmt.Errorf("unexpected inserted id type %T", res.InsertedID)
	}
	doc.ID = oid
	return doc.toModel(), nil
}

// parseObjectID accepts only the lower-case hex form that toModel hands
// out, so every spelling of an id other than the issued one is unknown.
func parseObjectID(id string) (primitive.ObjectID, bool) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil || oid.Hex() != id {
		return primitive.NilObjectID, false
	}
	return oid, true
}

func (s *Store) GetCompany(ctx context.Context, id string) (*models.Company, error) {
	oid, ok := parseObjectID(id)
	if !ok {
		return nil, e.ErrNotFound
	}

	var doc document
	if err := s.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, e.ErrNotFound
		}
		return nil, err
	}
	return doc.toModel(), nil
}

func (s *Store) UpdateCompany(ctx context.Context, id string, update *models.CompanyUpdate) (*models.Company, error) {
	oid, ok := parseObjectID(id)
	if !ok {
		return nil, e.ErrNotFound
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc document
	err := s.coll.FindOneAndUpdate(ctx, bson.M{"_id": oid}, updateDocument(update, models.Timestamp()), opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, e.ErrNotFound
		}
		return nil, err
	}
	return doc.toModel(), nil
}

func (s *Store) DeleteCompany(ctx context.Context, id string) (bool, error) {
	oid, ok := parseObjectID(id)
	if !ok {
		return false, nil
	}

	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

// ListCompanies sorts by _id; ObjectIDs issued by one client increase
// monotonically, which yields insertion order.
func (s *Store) ListCompanies(ctx context.Context, spec filter.Spec) ([]*models.Company, error) {
	cursor, err := s.coll.Find(ctx, filterDocument(spec), options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}

	var docs []document
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	companies := make([]*models.Company, 0, len(docs))
	for i := range docs {
		companies = append(companies, docs[i].toModel())
	}
	return companies, nil
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), disconnectTimeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func filterDocument(spec filter.Spec) bson.M {
	doc := bson.M{}
	if search, ok := spec.Search(); ok {
		rx := primitive.Regex{Pattern: regexp.QuoteMeta(search), Options: "i"}
		doc["$or"] = bson.A{
			bson.M{"name": rx},
			bson.M{"description": rx},
		}
	}
	if industry, ok := spec.Industry(); ok {
		doc["industry"] = industry
	}
	if country, ok := spec.Country(); ok {
		doc["country"] = country
	}

	employees := bson.M{}
	if lo, ok := spec.MinEmployees(); ok {
		employees["$gte"] = lo
	}
	if hi, ok := spec.MaxEmployees(); ok {
		employees["$lte"] = hi
	}
	if len(employees) > 0 {
		doc["employees"] = employees
	}
	return doc
}

// updateDocument builds a $set for provided fields and an $unset for
// optional fields cleared with an empty string.
func updateDocument(u *models.CompanyUpdate, now time.Time) bson.M {
	set := bson.M{"updatedAt": now}
	unset := bson.M{}

	if u.Name != nil {
		set["name"] = *u.Name
	}
	if u.Industry != nil {
		set["industry"] = *u.Industry
	}
	if u.Country != nil {
		set["country"] = *u.Country
	}
	if u.City != nil {
		set["city"] = *u.City
	}
	if u.Employees != nil {
		set["employees"] = *u.Employees
	}
	optional := func(key string, v *string) {
		switch {
		case v == nil:
		case *v == "":
			unset[key] = ""
		default:
			set[key] = *v
		}
	}
	optional("description", u.Description)
	optional("logoUrl", u.LogoURL)

	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}
	return update
}

func toDocument(c *models.Company) *document {
	return &document{
		Name:        c.Name,
		Industry:    c.Industry,
		Country:     c.Country,
		City:        c.City,
		Employees:   c.Employees,
		Description: c.Description,
		LogoURL:     c.LogoURL,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func (d *document) toModel() *models.Company {
	return &models.Company{
		ID:          d.ID.Hex(),
		Name:        d.Name,
		Industry:    d.Industry,
		Country:     d.Country,
		City:        d.City,
		Employees:   d.Employees,
		Description: d.Description,
		LogoURL:     d.LogoURL,
		CreatedAt:   d.CreatedAt.UTC(),
		UpdatedAt:   d.UpdatedAt.UTC(),
	}
}
