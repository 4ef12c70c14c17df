// Package service runs one segmentation: it loads a snapshot from a source,
// computes tier summaries and renders the report.
package service

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/okian/segmentor/internal/adapters/render"
	"github.com/okian/segmentor/internal/adapters/source"
	"github.com/okian/segmentor/internal/domain/model"
	"github.com/okian/segmentor/internal/domain/rank"
	"github.com/okian/segmentor/internal/domain/segment"
	"github.com/okian/segmentor/internal/domain/tier"
	"github.com/okian/segmentor/pkg/logger"
	"github.com/okian/segmentor/pkg/metrics"
	pkgerrors "github.com/pkg/errors"
)

// Failure reasons used as metric labels.
const (
	ReasonSource          = "source"
	ReasonDuplicateEntity = "duplicate_entity"
	ReasonInvalidTiers    = "invalid_tiers"
	ReasonInvalidMeasure  = "invalid_measure"
	ReasonCanceled        = "canceled"
	ReasonOther           = "other"
)

// Run is the outcome of one segmentation.
type Run struct {
	ID       string
	Started  time.Time
	Duration time.Duration
	Result   *segment.Result
}

// Leaders returns the n largest entities of every tier by measure, ties
// included.
func (r *Run) Leaders(n int) []rank.Ranked {
	rows := make([]rank.Row, len(r.Result.Assignments))
	for i, a := range r.Result.Assignments {
		rows[i] = rank.Row{Group: a.Tier, Key: a.EntityID, Value: a.Measure}
	}
	return rank.TopNPerGroup(rows, n)
}

// Report converts the run into its serialized shape. A positive top adds
// the top entities of every tier.
func (r *Run) Report(top int) render.Report {
	rep := render.NewReport(r.ID, r.Result)
	if top > 0 {
		rep.AddLeaders(r.Leaders(top))
	}
	return rep
}

// Service wires a Source to the segment Calculator.
type Service struct {
	src         source.Source
	definition  tier.Definition
	skipDetails bool
	top         int
	newID       func() string
	now         func() time.Time
	logger      logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithDefinition sets the tier definition. Defaults to tier.CustomerValue.
func WithDefinition(def tier.Definition) Option {
	return func(s *Service) {
		s.definition = def
	}
}

// WithSkipDetails disables loading detail records; summaries then carry
// no top group.
func WithSkipDetails(skip bool) Option {
	return func(s *Service) {
		s.skipDetails = skip
	}
}

// WithTop adds the n largest entities of every tier to rendered reports.
func WithTop(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.top = n
		}
	}
}

// WithRunID sets the run id generator. Defaults to random UUIDs.
func WithRunID(fn func() string) Option {
	return func(s *Service) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New constructs a Service reading from src.
func New(src source.Source, opts ...Option) *Service {
	s := &Service{
		src:        src,
		definition: tier.CustomerValue(),
		newID:      uuid.NewString,
		now:        time.Now,
		logger:     nil, // replaced by logger.Get() below unless set
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	return s
}

// Validate checks the tier definition without touching the source.
func (s *Service) Validate() error {
	if err := s.definition.Validate(); err != nil {
		return &segment.InvalidTierDefinitionError{Err: err}
	}
	return nil
}

// Run loads the snapshot and segments it. Integrity errors abort the run
// and no partial result is returned.
func (s *Service) Run(ctx context.Context) (*Run, error) {
	run := &Run{ID: s.newID(), Started: s.now()}
	log := s.logger.With(logger.String("run_id", run.ID))
	metrics.RecordRun()

	// The definition is checked before the source is read.
	if err := s.Validate(); err != nil {
		return nil, s.fail(ctx, log, ReasonInvalidTiers, err)
	}

	log.Info(ctx, "loading snapshot",
		logger.String("source", s.src.Kind()),
		logger.Any("withDetails", !s.skipDetails),
	)
	snap, err := source.Load(ctx, s.src, !s.skipDetails)
	if err != nil {
		return nil, s.fail(ctx, log, reasonFor(err, ReasonSource), err)
	}
	log.Info(ctx, "snapshot loaded",
		logger.Int("entities", len(snap.Entities)),
		logger.Int("details", len(snap.Details)),
	)

	if err := ctx.Err(); err != nil {
		return nil, s.fail(ctx, log, ReasonCanceled, err)
	}

	res, err := s.compute(ctx, log, snap)
	if err != nil {
		return nil, s.fail(ctx, log, reasonFor(err, ReasonOther), err)
	}
	run.Result = res
	run.Duration = s.now().Sub(run.Started)

	metrics.UpdateEntities(res.Total())
	for _, sum := range res.Summaries {
		metrics.UpdateTierEntities(sum.Label, sum.Count)
	}
	metrics.AddUnmappedDetails(res.Diagnostics.UnmappedDetails)

	log.Info(ctx, "segmentation finished",
		logger.Int("entities", res.Total()),
		logger.Int("tiers", len(res.Summaries)),
		logger.Int("unmappedDetails", res.Diagnostics.UnmappedDetails),
		logger.Any("duration", run.Duration.String()),
	)
	return run, nil
}

func (s *Service) compute(ctx context.Context, log logger.Logger, snap model.Snapshot) (*segment.Result, error) {
	start := time.Now()
	defer func() {
		metrics.RecordComputeDuration(float64(time.Since(start).Microseconds()) / 1000)
	}()

	calc := segment.New(segment.WithLogger(log))
	return calc.Compute(ctx, segment.Input{
		Entities:   snap.Entities,
		Definition: s.definition,
		Details:    snap.Details,
	})
}

// Render writes the run's report to w with r.
func (s *Service) Render(w io.Writer, r *render.Renderer, run *Run) error {
	if run == nil || run.Result == nil {
		return pkgerrors.New("render: empty run")
	}
	return r.Write(w, run.Report(s.top))
}

// Trend loads the source's period series and compares every period with
// the one lag periods earlier.
func (s *Service) Trend(ctx context.Context, lag int) (render.TrendReport, error) {
	id := s.newID()
	log := s.logger.With(logger.String("run_id", id))
	if lag < 1 {
		lag = 1
	}

	points, err := source.LoadPeriods(ctx, s.src)
	if err != nil {
		return render.TrendReport{}, s.fail(ctx, log, reasonFor(err, ReasonSource), err)
	}
	changes := rank.PeriodOverPeriod(points, lag)
	log.Info(ctx, "trend computed",
		logger.Int("periods", len(points)),
		logger.Int("lag", lag),
	)
	return render.NewTrendReport(id, lag, changes), nil
}

// Close releases the source.
func (s *Service) Close() error {
	return s.src.Close()
}

func (s *Service) fail(ctx context.Context, log logger.Logger, reason string, err error) error {
	metrics.RecordFailure(reason)
	log.Error(ctx, "segmentation failed",
		logger.String("reason", reason),
		logger.Error(err),
	)
	return err
}

func reasonFor(err error, fallback string) string {
	switch {
	case errors.Is(err, segment.ErrDuplicateEntity):
		return ReasonDuplicateEntity
	case errors.Is(err, segment.ErrInvalidTierDefinition):
		return ReasonInvalidTiers
	case errors.Is(err, segment.ErrInvalidMeasure):
		return ReasonInvalidMeasure
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ReasonCanceled
	default:
		return fallback
	}
}
