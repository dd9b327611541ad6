package settlement

import (
	"context"
	"sort"

	"github.com/ariefcatur/storefront-settlement/internal/orders"
	"github.com/pkg/errors"
)

// reserveStock: cek semua stok dulu, baru kurangi. Kalau ada kekurangan pada
// salah satu item, tidak ada decrement yang dijalankan dan transaksi batal.
func reserveStock(ctx context.Context, tx orders.Tx, items []orders.LineItem) error {
	want := make(map[string]int, len(items))
	skus := make([]string, 0, len(items))
	for _, it := range items {
		if _, seen := want[it.SKU]; !seen {
			skus = append(skus, it.SKU)
		}
		want[it.SKU] += it.Qty
	}
	sort.Strings(skus)

	have, err := tx.StockLevels(ctx, skus)
	if err != nil {
		return errors.Wrap(err, "read stock levels")
	}

	var shortages []orders.Shortage
	for _, sku := range skus {
		if avail := have[sku]; avail < want[sku] {
			shortages = append(shortages, orders.Shortage{SKU: sku, Requested: want[sku], Available: avail})
		}
	}
	if len(shortages) > 0 {
		return &InsufficientStockError{Shortages: shortages}
	}

	for _, sku := range skus {
		ok, err := tx.DecrementStock(ctx, sku, want[sku])
		if err != nil {
			return err
		}
		if !ok {
			// lost the race between read and write
			avail := 0
			if now, err := tx.StockLevels(ctx, []string{sku}); err == nil {
				avail = now[sku]
			}
			return &InsufficientStockError{Shortages: []orders.Shortage{{SKU: sku, Requested: want[sku], Available: avail}}}
		}
	}
	return nil
}
