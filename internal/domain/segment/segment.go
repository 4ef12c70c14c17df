// Package segment ranks entities by a measure, buckets them into tiers and
// summarizes each tier.
//
// Compute is a pure function of its input: it does no I/O, holds no state
// between calls and is safe to call concurrently with separate inputs.
package segment

import (
	"context"
	"math"

	"github.com/okian/segmentor/internal/domain/model"
	"github.com/okian/segmentor/internal/domain/rank"
	"github.com/okian/segmentor/internal/domain/tier"
	"github.com/okian/segmentor/pkg/logger"
	"github.com/shopspring/decimal"
)

// maxUnmappedSample bounds the entity ids kept in Diagnostics.
const maxUnmappedSample = 20

// Input is one segmentation request.
type Input struct {
	Entities   []model.Entity
	Definition tier.Definition
	// Details is optional; without it every summary has a nil TopGroup.
	Details []model.DetailRecord
}

// GroupContribution is the summed detail amount of one group within a tier.
type GroupContribution struct {
	Key    string
	Amount decimal.Decimal
}

// Summary aggregates one tier.
type Summary struct {
	Label          string
	Threshold      float64
	Count          int
	AverageMeasure float64
	TopGroup       *GroupContribution // nil when no detail maps to the tier
}

// Assignment is the outcome for one entity.
type Assignment struct {
	EntityID    string
	Measure     float64
	PercentRank float64
	Tier        string
}

// Diagnostics collects non-fatal findings.
type Diagnostics struct {
	// UnmappedDetails counts detail records whose entity id is unknown.
	UnmappedDetails int
	// UnmappedEntityIDs holds up to 20 distinct unknown ids, first seen first.
	UnmappedEntityIDs []string
}

// Result holds summaries in the definition's declared order and
// assignments in input order.
type Result struct {
	Basis       tier.Basis
	Summaries   []Summary
	Assignments []Assignment
	Diagnostics Diagnostics
}

// Total returns the number of segmented entities.
func (r *Result) Total() int {
	n := 0
	for _, s := range r.Summaries {
		n += s.Count
	}
	return n
}

// Option applies a configuration option to the Calculator.
type Option func(*Calculator)

// WithLogger sets the logger used for non-fatal warnings.
func WithLogger(l logger.Logger) Option {
	return func(c *Calculator) {
		if l != nil {
			c.logger = l
		}
	}
}

// Calculator computes tier summaries.
type Calculator struct {
	logger logger.Logger
}

// New creates a Calculator.
func New(opts ...Option) *Calculator {
	c := &Calculator{logger: logger.Nop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compute validates in and segments it. Integrity errors are returned
// before any work is done and no partial result is produced.
func (c *Calculator) Compute(ctx context.Context, in Input) (*Result, error) {
	if err := validate(in); err != nil {
		return nil, err
	}

	def := in.Definition
	basis := def.EffectiveBasis()

	measures := make([]float64, len(in.Entities))
	for i, e := range in.Entities {
		measures[i] = e.Measure
	}
	ranks := rank.PercentRank(measures)

	summaries := make([]Summary, len(def.Tiers))
	for i, t := range def.Tiers {
		summaries[i] = Summary{Label: t.Label, Threshold: t.Threshold}
	}

	sums := make([]float64, len(def.Tiers))
	tierOf := make(map[string]int, len(in.Entities))
	assignments := make([]Assignment, len(in.Entities))
	for i, e := range in.Entities {
		value := ranks[i]
		if basis == tier.BasisMeasure {
			value = e.Measure
		}
		ti := def.Assign(value)
		tierOf[e.ID] = ti
		summaries[ti].Count++
		sums[ti] += e.Measure
		assignments[i] = Assignment{EntityID: e.ID, Measure: e.Measure, PercentRank: ranks[i], Tier: def.Tiers[ti].Label}
	}
	for i := range summaries {
		if summaries[i].Count > 0 {
			summaries[i].AverageMeasure = sums[i] / float64(summaries[i].Count)
		}
	}

	diag := c.contributions(ctx, in.Details, tierOf, summaries)

	return &Result{
		Basis:       basis,
		Summaries:   summaries,
		Assignments: assignments,
		Diagnostics: diag,
	}, nil
}

// contributions sums detail amounts per (tier, group) and stores the
// largest group of each tier; the first-seen group wins a tie.
func (c *Calculator) contributions(ctx context.Context, details []model.DetailRecord, tierOf map[string]int, summaries []Summary) Diagnostics {
	var diag Diagnostics
	if len(details) == 0 {
		return diag
	}

	type groupSums struct {
		order []string
		sum   map[string]decimal.Decimal
	}
	perTier := make([]groupSums, len(summaries))
	unmappedSeen := make(map[string]struct{})

	for _, d := range details {
		ti, ok := tierOf[d.EntityID]
		if !ok {
			diag.UnmappedDetails++
			if _, dup := unmappedSeen[d.EntityID]; !dup {
				unmappedSeen[d.EntityID] = struct{}{}
				if len(diag.UnmappedEntityIDs) < maxUnmappedSample {
					diag.UnmappedEntityIDs = append(diag.UnmappedEntityIDs, d.EntityID)
				}
			}
			c.logger.Debug(ctx, "dropping detail record for unknown entity",
				logger.String("entityID", d.EntityID),
				logger.String("group", d.GroupKey),
			)
			continue
		}

		g := &perTier[ti]
		if g.sum == nil {
			g.sum = make(map[string]decimal.Decimal)
		}
		prev, seen := g.sum[d.GroupKey]
		if !seen {
			g.order = append(g.order, d.GroupKey)
		}
		g.sum[d.GroupKey] = prev.Add(d.Amount)
	}

	for i, g := range perTier {
		for _, key := range g.order {
			amount := g.sum[key]
			if top := summaries[i].TopGroup; top == nil || amount.GreaterThan(top.Amount) {
				summaries[i].TopGroup = &GroupContribution{Key: key, Amount: amount}
			}
		}
	}

	if diag.UnmappedDetails > 0 {
		c.logger.Warn(ctx, "dropped detail records referencing unknown entities",
			logger.Int("count", diag.UnmappedDetails),
			logger.Any("entityIDs", diag.UnmappedEntityIDs),
		)
	}
	return diag
}

func validate(in Input) error {
	if err := in.Definition.Validate(); err != nil {
		return &InvalidTierDefinitionError{Err: err}
	}

	firstAt := make(map[string]int, len(in.Entities))
	for i, e := range in.Entities {
		if j, dup := firstAt[e.ID]; dup {
			return &DuplicateEntityError{ID: e.ID, First: j, Second: i}
		}
		firstAt[e.ID] = i
		if math.IsNaN(e.Measure) || math.IsInf(e.Measure, 0) || e.Measure < 0 {
			return &InvalidMeasureError{ID: e.ID, Measure: e.Measure}
		}
	}
	return nil
}
