package orders

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

const productColumns = `id, sku, slug, name, price_minor, currency, stock, sizes, colors, images, created_at, updated_at`

// StockLevels: satu query batch, lock baris produk (FOR UPDATE) sampai commit.
func (t *pgTx) StockLevels(ctx context.Context, skus []string) (map[string]int, error) {
	rows, err := t.q.Query(ctx, `SELECT sku, stock FROM products WHERE sku = ANY($1) ORDER BY sku FOR UPDATE`, skus)
	if err != nil {
		return nil, errors.Wrap(err, "query stock")
	}
	defer rows.Close()

	out := make(map[string]int, len(skus))
	for rows.Next() {
		var sku string
		var stock int
		if err := rows.Scan(&sku, &stock); err != nil {
			return nil, errors.Wrap(err, "scan stock")
		}
		out[sku] = stock
	}
	return out, errors.Wrap(rows.Err(), "read stock")
}

func (t *pgTx) DecrementStock(ctx context.Context, sku string, qty int) (bool, error) {
	ct, err := t.q.Exec(ctx, `
		UPDATE products SET stock = stock - $2, updated_at = now()
		WHERE sku = $1 AND stock >= $2`, sku, qty)
	if err != nil {
		return false, errors.Wrapf(err, "decrement stock sku=%s", sku)
	}
	return ct.RowsAffected() == 1, nil
}

// ResolveProduct finds a product by reference. Priority: exact id, then slug,
// then SKU. ok is false when nothing matches.
func (r *Repo) ResolveProduct(ctx context.Context, ref string) (p Product, ok bool, err error) {
	if ref == "" {
		return Product{}, false, nil
	}
	if _, perr := uuid.Parse(ref); perr == nil {
		p, err = scanProduct(r.DB.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, ref))
		if err == nil {
			return p, true, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return Product{}, false, errors.Wrap(err, "find product by id")
		}
	}
	for _, col := range []string{"slug", "sku"} {
		p, err = scanProduct(r.DB.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE `+col+` = $1`, ref))
		if err == nil {
			return p, true, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return Product{}, false, errors.Wrapf(err, "find product by %s", col)
		}
	}
	return Product{}, false, nil
}

// Restock menambah stok produk secara atomik dan mengembalikan nilai terbaru.
func (r *Repo) Restock(ctx context.Context, productID string, qty int) (Product, error) {
	p, err := scanProduct(r.DB.QueryRow(ctx, `
		UPDATE products SET stock = stock + $2, updated_at = now()
		WHERE id = $1
		RETURNING `+productColumns, productID, qty))
	if err != nil {
		return Product{}, errors.Wrap(notFound(err), "restock")
	}
	return p, nil
}

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.SKU, &p.Slug, &p.Name, &p.PriceMinor, &p.Currency, &p.Stock,
		&p.Sizes, &p.Colors, &p.Images, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}
