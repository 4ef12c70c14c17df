// Package synth generates synthetic warehouse snapshots for local runs.
package synth

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/okian/segmentor/internal/adapters/source"
	"github.com/okian/segmentor/pkg/logger"
	"github.com/shopspring/decimal"
)

// Constants for customer generation.
const (
	firstCustomerKey = 11000
	maxCategories    = 3
	whaleShare       = 0.05 // share of customers buying bikes repeatedly
	casualShare      = 0.60 // share buying only accessories and clothing
	cancelCheckEvery = 1024
	months           = 24
)

// firstMonth is the first order month of generated period series.
var firstMonth = time.Date(2012, time.January, 1, 0, 0, 0, 0, time.UTC)

// categoryRange is the per-purchase amount range of a product category.
type categoryRange struct {
	name     string
	min, max float64
}

var catalog = []categoryRange{
	{name: "Bikes", min: 539.99, max: 3578.27},
	{name: "Accessories", min: 2.29, max: 159.00},
	{name: "Clothing", min: 8.99, max: 89.99},
	{name: "Components", min: 20.00, max: 1000.00},
}

// Config holds configuration for snapshot generation.
type Config struct {
	Customers int   // number of customers
	Seed      int64 // random seed; the same seed yields the same rows
	// Orphans adds detail rows that reference unknown customers.
	Orphans int
	// Now stamps the snapshot; defaults to time.Now.
	Now func() time.Time
}

// Generate builds a snapshot. Customer measures equal the sum of their
// detail amounts, like the lifetime-sales aggregate in the warehouse.
func Generate(ctx context.Context, cfg Config) (source.SnapshotDoc, error) {
	if cfg.Customers < 0 || cfg.Orphans < 0 {
		return source.SnapshotDoc{}, fmt.Errorf("%w: customers=%d orphans=%d", ErrInvalidConfig, cfg.Customers, cfg.Orphans)
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	log := logger.Named("synth")
	log.Info(ctx, "generating snapshot",
		logger.Int("customers", cfg.Customers),
		logger.Int("orphans", cfg.Orphans),
		logger.Any("seed", cfg.Seed),
	)

	rng := rand.New(rand.NewSource(cfg.Seed)) //nolint:gosec // reproducible test data
	doc := source.SnapshotDoc{
		ID:          uuid.NewSHA1(uuid.NameSpaceOID, []byte(strconv.FormatInt(cfg.Seed, 10)+"/"+strconv.Itoa(cfg.Customers))).String(),
		GeneratedAt: now().UTC(),
		Entities:    make([]source.EntityDoc, 0, cfg.Customers),
	}

	for i := 0; i < cfg.Customers; i++ {
		if i%cancelCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return source.SnapshotDoc{}, fmt.Errorf("generation cancelled: %w", err)
			}
		}

		id := strconv.Itoa(firstCustomerKey + i)
		total := decimal.Zero
		for _, d := range customerDetails(rng, id) {
			total = total.Add(d.Amount)
			doc.Details = append(doc.Details, d)
		}
		doc.Entities = append(doc.Entities, source.EntityDoc{ID: id, Measure: total.InexactFloat64()})
	}

	doc.Periods = monthlySeries(cfg.Seed, doc.Details)

	for i := 0; i < cfg.Orphans; i++ {
		c := catalog[rng.Intn(len(catalog))]
		doc.Details = append(doc.Details, source.DetailDoc{
			EntityID: strconv.Itoa(firstCustomerKey - 1 - i),
			Group:    c.name,
			Amount:   purchase(rng, c),
		})
	}

	log.Info(ctx, "snapshot generated",
		logger.String("id", doc.ID),
		logger.Int("entities", len(doc.Entities)),
		logger.Int("details", len(doc.Details)),
		logger.Int("periods", len(doc.Periods)),
	)
	return doc, nil
}

// monthlySeries books every detail amount on a random order month. It
// draws from its own generator so the customer rows do not depend on it.
func monthlySeries(seed int64, details []source.DetailDoc) []source.PeriodDoc {
	rng := rand.New(rand.NewSource(seed + 1)) //nolint:gosec // reproducible test data
	totals := make([]decimal.Decimal, months)
	for _, d := range details {
		m := rng.Intn(months)
		totals[m] = totals[m].Add(d.Amount)
	}

	out := make([]source.PeriodDoc, months)
	for m := range out {
		out[m] = source.PeriodDoc{
			Period: firstMonth.AddDate(0, m, 0).Format("2006-01"),
			Value:  totals[m],
		}
	}
	return out
}

// customerDetails draws the per-category totals of one customer.
func customerDetails(rng *rand.Rand, id string) []source.DetailDoc {
	profile := rng.Float64()

	var (
		categories []categoryRange
		orders     = 1 + rng.Intn(3)
	)
	switch {
	case profile < whaleShare:
		categories = []categoryRange{catalog[0], catalog[1], catalog[3]}
		orders += 3
	case profile < whaleShare+casualShare:
		categories = []categoryRange{catalog[1], catalog[2]}
	default:
		categories = []categoryRange{catalog[0], catalog[1], catalog[2]}
	}

	n := 1 + rng.Intn(min(maxCategories, len(categories)))
	rng.Shuffle(len(categories), func(a, b int) { categories[a], categories[b] = categories[b], categories[a] })

	out := make([]source.DetailDoc, 0, n)
	for _, c := range categories[:n] {
		amount := decimal.Zero
		for o := 0; o < orders; o++ {
			amount = amount.Add(purchase(rng, c))
		}
		out = append(out, source.DetailDoc{EntityID: id, Group: c.name, Amount: amount})
	}
	return out
}

func purchase(rng *rand.Rand, c categoryRange) decimal.Decimal {
	return decimal.NewFromFloat(c.min + rng.Float64()*(c.max-c.min)).Round(2)
}
