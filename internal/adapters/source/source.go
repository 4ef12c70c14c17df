// Package source loads read-only warehouse snapshots for segmentation.
package source

import (
	"context"
	"time"

	"github.com/okian/segmentor/internal/domain/model"
	"github.com/okian/segmentor/internal/domain/rank"
	"github.com/okian/segmentor/pkg/metrics"
	"github.com/pkg/errors"
)

// Kinds of sources.
const (
	KindSQL  = "sql"
	KindFile = "file"
)

// Source provides already aggregated entities and detail records.
type Source interface {
	// Kind names the implementation, used as a metrics label.
	Kind() string
	// Entities returns one row per entity, e.g. lifetime sales per customer.
	Entities(ctx context.Context) ([]model.Entity, error)
	// Details returns (entity, group, amount) rows, e.g. sales per customer
	// and product category.
	Details(ctx context.Context) ([]model.DetailRecord, error)
	Close() error
}

// PeriodSource is implemented by sources that can total the measure per
// period, e.g. sales per order month.
type PeriodSource interface {
	Periods(ctx context.Context) ([]rank.Point, error)
}

// Config selects and parameterizes a Source.
type Config struct {
	// Kind is "sql" or "file".
	Kind string `koanf:"kind"`

	// Driver is the database/sql driver: mysql, postgres or sqlite3.
	Driver string `koanf:"driver"`
	// DSN is the driver-specific data source name.
	DSN string `koanf:"dsn"`
	// EntitiesQuery and DetailsQuery override the default warehouse queries.
	EntitiesQuery string `koanf:"entities_query"`
	DetailsQuery  string `koanf:"details_query"`
	PeriodsQuery  string `koanf:"periods_query"`

	// Path is the YAML snapshot file for the file kind.
	Path string `koanf:"path"`

	// SkipDetails disables loading detail records.
	SkipDetails bool `koanf:"skip_details"`
}

// New opens the Source described by cfg.
func New(ctx context.Context, cfg Config) (Source, error) {
	switch cfg.Kind {
	case KindSQL:
		var opts []SQLOption
		if cfg.EntitiesQuery != "" {
			opts = append(opts, WithEntitiesQuery(cfg.EntitiesQuery))
		}
		if cfg.DetailsQuery != "" {
			opts = append(opts, WithDetailsQuery(cfg.DetailsQuery))
		}
		if cfg.PeriodsQuery != "" {
			opts = append(opts, WithPeriodsQuery(cfg.PeriodsQuery))
		}
		return OpenSQL(ctx, cfg.Driver, cfg.DSN, opts...)
	case KindFile:
		return OpenFile(cfg.Path)
	default:
		return nil, errors.Wrapf(ErrUnknownKind, "kind %q", cfg.Kind)
	}
}

// Load reads a full snapshot from src. Details are skipped when withDetails
// is false.
func Load(ctx context.Context, src Source, withDetails bool) (model.Snapshot, error) {
	start := time.Now()
	defer func() {
		metrics.RecordSourceLoad(src.Kind(), float64(time.Since(start).Microseconds())/1000)
	}()

	entities, err := src.Entities(ctx)
	if err != nil {
		return model.Snapshot{}, errors.Wrap(err, "load entities")
	}
	metrics.AddSourceRows(src.Kind(), "entities", len(entities))

	snap := model.Snapshot{Entities: entities}
	if !withDetails {
		return snap, nil
	}

	if err := ctx.Err(); err != nil {
		return model.Snapshot{}, errors.WithStack(err)
	}
	details, err := src.Details(ctx)
	if err != nil {
		return model.Snapshot{}, errors.Wrap(err, "load details")
	}
	metrics.AddSourceRows(src.Kind(), "details", len(details))
	snap.Details = details
	return snap, nil
}

// LoadPeriods reads the period series from src. It returns ErrNoPeriods
// when src cannot aggregate by period.
func LoadPeriods(ctx context.Context, src Source) ([]rank.Point, error) {
	ps, ok := src.(PeriodSource)
	if !ok {
		return nil, errors.Wrapf(ErrNoPeriods, "source %s", src.Kind())
	}

	start := time.Now()
	defer func() {
		metrics.RecordSourceLoad(src.Kind(), float64(time.Since(start).Microseconds())/1000)
	}()

	points, err := ps.Periods(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load periods")
	}
	metrics.AddSourceRows(src.Kind(), "periods", len(points))
	return points, nil
}
