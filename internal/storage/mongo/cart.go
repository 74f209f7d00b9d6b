package mongo

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/xenking/jokeshop/internal/domain/cart"
)

var _ cart.Repository = (*CartRepository)(nil)

// cartDoc is the stored shape of a cart. Product references are kept as
// strings so that any id a client sends can be stored and later resolved.
type cartDoc struct {
	ID        primitive.ObjectID `bson:"_id"`
	User      string             `bson:"user"`
	Items     []cartItemDoc      `bson:"items"`
	Version   int64              `bson:"version"`
	CreatedAt time.Time          `bson:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt"`
}

type cartItemDoc struct {
	Product  string `bson:"product"`
	Quantity int    `bson:"quantity"`
}

// CartRepository implements cart.Repository backed by MongoDB.
type CartRepository struct {
	coll *mongo.Collection
	now  func() time.Time
}

// NewCartRepository returns a CartRepository over db's carts collection.
func NewCartRepository(db *mongo.Database) *CartRepository {
	return &CartRepository{
		coll: db.Collection(cartsCollection),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Get returns the cart owned by userID.
func (r *CartRepository) Get(ctx context.Context, userID string) (*cart.Cart, error) {
	var doc cartDoc
	if err := r.coll.FindOne(ctx, bson.M{"user": userID}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, cart.ErrNotFound
		}
		return nil, errors.Wrapf(err, "getting cart of user %q", userID)
	}
	return doc.toDomain(), nil
}

// Create inserts a new cart at version 1. The unique index on user turns a
// concurrent second insert into cart.ErrConflict.
func (r *CartRepository) Create(ctx context.Context, c *cart.Cart) error {
	now := r.now()
	doc := cartDoc{
		ID:        primitive.NewObjectID(),
		User:      c.UserID,
		Items:     toItemDocs(c.Items),
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return cart.ErrConflict
		}
		return errors.Wrapf(err, "creating cart of user %q", c.UserID)
	}

	c.ID = doc.ID.Hex()
	c.Version = doc.Version
	c.CreatedAt = now
	c.UpdatedAt = now
	return nil
}

// Update writes the items of c if the stored version still matches.
func (r *CartRepository) Update(ctx context.Context, c *cart.Cart) error {
	oid, err := primitive.ObjectIDFromHex(c.ID)
	if err != nil {
		return errors.Wrapf(err, "cart id %q", c.ID)
	}

	now := r.now()
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": oid, "version": c.Version},
		bson.M{
			"$set": bson.M{"items": toItemDocs(c.Items), "updatedAt": now},
			"$inc": bson.M{"version": 1},
		},
	)
	if err != nil {
		return errors.Wrapf(err, "updating cart %q", c.ID)
	}
	if res.MatchedCount == 0 {
		return cart.ErrConflict
	}

	c.Version++
	c.UpdatedAt = now
	return nil
}

func toItemDocs(items []cart.Item) []cartItemDoc {
	docs := make([]cartItemDoc, len(items))
	for i, it := range items {
		docs[i] = cartItemDoc{Product: it.ProductID, Quantity: it.Quantity}
	}
	return docs
}

func (d cartDoc) toDomain() *cart.Cart {
	items := make([]cart.Item, len(d.Items))
	for i, it := range d.Items {
		items[i] = cart.Item{ProductID: it.Product, Quantity: it.Quantity}
	}
	return &cart.Cart{
		ID:        d.ID.Hex(),
		UserID:    d.User,
		Items:     items,
		Version:   d.Version,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}
