package main

import (
	"bufio"
	"bytes"
	"io"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"

	"github.com/xenking/jokeshop/internal/domain/product"
)

var gzipMagic = []byte{0x1f, 0x8b}

// openCatalog returns a reader over the JSON catalog in r, transparently
// decompressing gzip input.
func openCatalog(r io.Reader) (io.ReadCloser, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(len(gzipMagic))
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Wrap(err, "peek")
	}
	if !bytes.Equal(head, gzipMagic) {
		return io.NopCloser(br), nil
	}

	zr, err := pgzip.NewReader(br)
	if err != nil {
		return nil, errors.Wrap(err, "gzip")
	}
	return zr, nil
}

// decodeCatalog streams a JSON array of products, calling fn for each entry
// as soon as it is decoded. Unknown fields are ignored.
func decodeCatalog(r io.Reader, fn func(product.Product) error) error {
	d := jx.Decode(r, 4096)
	n := 0
	return d.Arr(func(d *jx.Decoder) error {
		n++
		p, err := decodeProduct(d)
		if err != nil {
			return errors.Wrapf(err, "product #%d", n)
		}
		if p.Name == "" {
			return errors.Errorf("product #%d: name is required", n)
		}
		if p.Price.IsNegative() {
			return errors.Errorf("product %q: negative price %s", p.Name, p.Price)
		}
		return fn(p)
	})
}

func decodeProduct(d *jx.Decoder) (product.Product, error) {
	var p product.Product
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "_id", "id":
			p.ID, err = d.Str()
		case "name":
			p.Name, err = d.Str()
		case "price":
			p.Price, err = decodePrice(d)
		case "description":
			p.Description, err = optionalStr(d)
		case "image":
			p.Image, err = optionalStr(d)
		case "warning":
			p.Warning, err = optionalStr(d)
		case "category":
			p.Category, err = d.Str()
		default:
			err = d.Skip()
		}
		if err != nil {
			return errors.Wrap(err, key)
		}
		return nil
	})
	return p, err
}

func decodePrice(d *jx.Decoder) (decimal.Decimal, error) {
	if d.Next() == jx.String {
		s, err := d.Str()
		if err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromString(s)
	}
	n, err := d.Num()
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(n.String())
}

func optionalStr(d *jx.Decoder) (string, error) {
	if d.Next() == jx.Null {
		return "", d.Null()
	}
	return d.Str()
}
