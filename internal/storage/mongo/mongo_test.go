//go:build integration

package mongo

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/xenking/jokeshop/internal/domain/cart"
	"github.com/xenking/jokeshop/internal/domain/product"
	"github.com/xenking/jokeshop/internal/domain/user"
)

func startMongo(t *testing.T) *mongo.Database {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "mongo:7",
			ExposedPorts: []string{"27017/tcp"},
			WaitingFor:   wait.ForListeningPort("27017/tcp"),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = c.Terminate(context.Background())
	})

	host, err := c.Host(ctx)
	require.NoError(t, err)
	port, err := c.MappedPort(ctx, "27017/tcp")
	require.NoError(t, err)

	client, err := NewClient(ctx, fmt.Sprintf("mongodb://%s:%s", host, port.Port()))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = client.Disconnect(context.Background())
	})

	db := client.Database("jokeshop_test")
	require.NoError(t, EnsureIndexes(ctx, db))
	return db
}

func TestMongo(t *testing.T) {
	db := startMongo(t)
	ctx := context.Background()

	products := NewProductRepository(db)
	carts := NewCartRepository(db)
	users := NewUserRepository(db)

	t.Run("products", func(t *testing.T) {
		id, err := products.Upsert(ctx, product.Product{
			Name:     "Whoopee Cushion",
			Price:    decimal.RequireFromString("4.99"),
			Image:    "https://example.com/whoopee.png",
			Category: "Classic",
		})
		require.NoError(t, err)

		again, err := products.Upsert(ctx, product.Product{
			Name:     "Whoopee Cushion",
			Price:    decimal.RequireFromString("5.49"),
			Category: "Classic",
		})
		require.NoError(t, err)
		assert.Equal(t, id, again, "upsert by name must not duplicate")

		_, err = products.Upsert(ctx, product.Product{
			Name:     "Fake Spider",
			Price:    decimal.NewFromInt(3),
			Warning:  "Not a real spider",
			Category: "Creepy",
		})
		require.NoError(t, err)

		all, err := products.List(ctx, product.Filter{})
		require.NoError(t, err)
		assert.Len(t, all, 2)

		creepy, err := products.List(ctx, product.Filter{Category: "Creepy"})
		require.NoError(t, err)
		require.Len(t, creepy, 1)
		assert.Equal(t, "Not a real spider", creepy[0].Warning)

		p, err := products.GetByID(ctx, id)
		require.NoError(t, err)
		assert.True(t, decimal.RequireFromString("5.49").Equal(p.Price))

		_, err = products.GetByID(ctx, "nope")
		require.ErrorIs(t, err, product.ErrNotFound)

		byIDs, err := products.GetByIDs(ctx, []string{id, "nope", "ffffffffffffffffffffffff"})
		require.NoError(t, err)
		assert.Len(t, byIDs, 1)
	})

	t.Run("legacy double price", func(t *testing.T) {
		_, err := db.Collection(productsCollection).InsertOne(ctx, bson.M{
			"name": "Joy Buzzer", "price": 2.5, "category": "Classic",
		})
		require.NoError(t, err)

		classic, err := products.List(ctx, product.Filter{Category: "Classic"})
		require.NoError(t, err)
		var found bool
		for _, p := range classic {
			if p.Name == "Joy Buzzer" {
				found = true
				assert.True(t, decimal.RequireFromString("2.5").Equal(p.Price))
			}
		}
		assert.True(t, found)
	})

	t.Run("carts", func(t *testing.T) {
		_, err := carts.Get(ctx, "u1")
		require.ErrorIs(t, err, cart.ErrNotFound)

		c := &cart.Cart{UserID: "u1", Items: []cart.Item{{ProductID: "a", Quantity: 1}}}
		require.NoError(t, carts.Create(ctx, c))
		assert.NotEmpty(t, c.ID)
		assert.Equal(t, int64(1), c.Version)

		dup := &cart.Cart{UserID: "u1"}
		require.ErrorIs(t, carts.Create(ctx, dup), cart.ErrConflict)

		stale, err := carts.Get(ctx, "u1")
		require.NoError(t, err)

		c.Add("a", 2)
		require.NoError(t, carts.Update(ctx, c))
		assert.Equal(t, int64(2), c.Version)

		stale.Add("b", 1)
		require.ErrorIs(t, carts.Update(ctx, stale), cart.ErrConflict)

		got, err := carts.Get(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, []cart.Item{{ProductID: "a", Quantity: 3}}, got.Items)
	})

	t.Run("users", func(t *testing.T) {
		u := &user.User{Name: "Jester", Email: "jester@example.com", PasswordHash: "hash"}
		require.NoError(t, users.Create(ctx, u))
		assert.NotEmpty(t, u.ID)

		require.ErrorIs(t, users.Create(ctx, &user.User{Email: "jester@example.com"}), user.ErrEmailTaken)

		byEmail, err := users.GetByEmail(ctx, "jester@example.com")
		require.NoError(t, err)
		assert.Equal(t, u.ID, byEmail.ID)

		byID, err := users.GetByID(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, "hash", byID.PasswordHash)

		_, err = users.GetByID(ctx, "bogus")
		require.ErrorIs(t, err, user.ErrNotFound)
	})
}
