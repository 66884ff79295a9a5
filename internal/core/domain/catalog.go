package domain

import "github.com/shopspring/decimal"

// Catalog and customer records are owned by external subsystems; this core
// only reads them when building snapshots and listings.

type Item struct {
	ID        string
	Name      string
	SellPrice decimal.Decimal
}

type ShippingOption struct {
	ID     string
	Region string
	Rate   decimal.Decimal
}

type CustomerContact struct {
	ID       string
	FullName string
	Email    string
}
