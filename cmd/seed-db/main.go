package main

import (
	"bytes"
	"context"
	"flag"
	"io"
	"os"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/xenking/jokeshop/db"
	appkg "github.com/xenking/jokeshop/internal/app"
	"github.com/xenking/jokeshop/internal/domain/product"
)

func main() {
	var productsFile string
	flag.StringVar(&productsFile, "products-file", "", "path to a products JSON file, optionally gzip-compressed (default: embedded catalog)")
	flag.Parse()

	_ = godotenv.Load()

	app.Run(func(ctx context.Context, lg *zap.Logger, _ *app.Telemetry) error {
		cfg, err := appkg.LoadStorageConfig()
		if err != nil {
			return err
		}
		return run(ctx, lg, cfg, productsFile)
	})
}

func run(ctx context.Context, lg *zap.Logger, cfg *appkg.StorageConfig, productsFile string) error {
	store, err := appkg.OpenStorage(ctx, lg, *cfg)
	if err != nil {
		return errors.Wrap(err, "open storage")
	}
	defer func() { _ = store.Close(context.Background()) }()

	var src io.Reader = bytes.NewReader(db.Products)
	if productsFile != "" {
		f, err := os.Open(productsFile)
		if err != nil {
			return errors.Wrap(err, "open products file")
		}
		defer func() { _ = f.Close() }()
		src = f
	}
	lg.Info("Reading catalog", zap.String("path", productsFile))

	n, err := seedProducts(ctx, lg, store.Products, src)
	if err != nil {
		return errors.Wrap(err, "seed products")
	}
	lg.Info("Seed completed", zap.Int("products", n))
	return nil
}

func seedProducts(ctx context.Context, lg *zap.Logger, w product.Writer, src io.Reader) (int, error) {
	r, err := openCatalog(src)
	if err != nil {
		return 0, errors.Wrap(err, "open catalog")
	}
	defer func() { _ = r.Close() }()

	n := 0
	err = decodeCatalog(r, func(p product.Product) error {
		id, err := w.Upsert(ctx, p)
		if err != nil {
			return errors.Wrapf(err, "upsert product %q", p.Name)
		}
		n++
		lg.Info("Upserted product", zap.String("id", id), zap.String("name", p.Name))
		return nil
	})
	return n, err
}
