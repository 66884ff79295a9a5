package domain

import "time"

// StockEntry is the single quantity-on-hand counter for an item. Quantity is
// only ever mutated through the ledger's conditional reserve/release writes.
type StockEntry struct {
	ItemID    string
	Quantity  int
	UpdatedAt time.Time
}
