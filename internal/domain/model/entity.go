// Package model contains domain models passed between layers.
package model

import "github.com/shopspring/decimal"

// Entity is one segmented subject, e.g. a customer with its lifetime sales.
type Entity struct {
	ID      string  // unique identifier
	Measure float64 // non-negative measure ranked across the population
}

// DetailRecord links an entity to a secondary grouping key, e.g. the sales
// of one customer within one product category.
type DetailRecord struct {
	EntityID string
	GroupKey string
	Amount   decimal.Decimal
}

// Snapshot is a read-only, already aggregated view of the warehouse.
type Snapshot struct {
	Entities []Entity
	Details  []DetailRecord
}
