package mongo

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/xenking/jokeshop/internal/domain/product"
)

var (
	_ product.Repository = (*ProductRepository)(nil)
	_ product.Writer     = (*ProductRepository)(nil)
)

// productDoc is the stored shape of a product. Price is kept raw on read so
// that catalogs written with plain doubles still decode.
type productDoc struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Name        string             `bson:"name"`
	Price       bson.RawValue      `bson:"price"`
	Description string             `bson:"description"`
	Image       string             `bson:"image"`
	Warning     string             `bson:"warning,omitempty"`
	Category    string             `bson:"category"`
	CreatedAt   time.Time          `bson:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt"`
}

// ProductRepository implements product.Repository backed by MongoDB.
type ProductRepository struct {
	coll *mongo.Collection
}

// NewProductRepository returns a ProductRepository over db's products
// collection.
func NewProductRepository(db *mongo.Database) *ProductRepository {
	return &ProductRepository{coll: db.Collection(productsCollection)}
}

// List returns catalog products in insertion order, optionally restricted to
// one category.
func (r *ProductRepository) List(ctx context.Context, filter product.Filter) ([]product.Product, error) {
	query := bson.M{}
	if filter.Category != "" {
		query["category"] = filter.Category
	}

	cur, err := r.coll.Find(ctx, query, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, errors.Wrap(err, "listing products")
	}
	return collectProducts(ctx, cur)
}

// GetByID returns a single product. Ids that are not valid ObjectIDs cannot
// exist and yield product.ErrNotFound.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*product.Product, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, product.ErrNotFound
	}

	var doc productDoc
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, product.ErrNotFound
		}
		return nil, errors.Wrapf(err, "getting product %q", id)
	}

	p, err := doc.toDomain()
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetByIDs returns the products matching ids, skipping unknown or malformed
// ids.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []string) ([]product.Product, error) {
	oids := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			oids = append(oids, oid)
		}
	}
	if len(oids) == 0 {
		return []product.Product{}, nil
	}

	cur, err := r.coll.Find(ctx, bson.M{"_id": bson.M{"$in": oids}})
	if err != nil {
		return nil, errors.Wrap(err, "getting products by ids")
	}
	return collectProducts(ctx, cur)
}

// Upsert inserts or replaces a catalog entry and returns its id. Entries
// without a valid id are matched by name.
func (r *ProductRepository) Upsert(ctx context.Context, p product.Product) (string, error) {
	price, err := primitive.ParseDecimal128(p.Price.String())
	if err != nil {
		return "", errors.Wrapf(err, "encoding price of %q", p.Name)
	}

	filter := bson.M{"name": p.Name}
	if oid, err := primitive.ObjectIDFromHex(p.ID); err == nil {
		filter = bson.M{"_id": oid}
	}

	now := time.Now().UTC()
	update := bson.M{
		"$set": bson.M{
			"name":        p.Name,
			"price":       price,
			"description": p.Description,
			"image":       p.Image,
			"warning":     p.Warning,
			"category":    p.Category,
			"updatedAt":   now,
		},
		"$setOnInsert": bson.M{"createdAt": now},
	}

	var doc struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After).
		SetProjection(bson.M{"_id": 1})
	if err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc); err != nil {
		return "", errors.Wrapf(err, "upserting product %q", p.Name)
	}
	return doc.ID.Hex(), nil
}

func collectProducts(ctx context.Context, cur *mongo.Cursor) ([]product.Product, error) {
	var docs []productDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(err, "decoding products")
	}

	out := make([]product.Product, 0, len(docs))
	for _, doc := range docs {
		p, err := doc.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (d productDoc) toDomain() (product.Product, error) {
	price, err := decodePrice(d.Price)
	if err != nil {
		return product.Product{}, errors.Wrapf(err, "product %s price", d.ID.Hex())
	}
	return product.Product{
		ID:          d.ID.Hex(),
		Name:        d.Name,
		Price:       price,
		Description: d.Description,
		Image:       d.Image,
		Warning:     d.Warning,
		Category:    d.Category,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}, nil
}

func decodePrice(v bson.RawValue) (decimal.Decimal, error) {
	switch v.Type {
	case bsontype.Decimal128:
		return decimal.NewFromString(v.Decimal128().String())
	case bsontype.Double:
		return decimal.NewFromFloat(v.Double()), nil
	case bsontype.Int32:
		return decimal.NewFromInt32(v.Int32()), nil
	case bsontype.Int64:
		return decimal.NewFromInt(v.Int64()), nil
	case bsontype.Null, bsontype.Undefined, 0:
		return decimal.Zero, nil
	default:
		return decimal.Zero, errors.Errorf("unsupported price type %s", v.Type)
	}
}
