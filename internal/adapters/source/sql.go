package source

import (
	"context"
	"database/sql"
	"strings"

	"github.com/okian/segmentor/internal/domain/model"
	"github.com/okian/segmentor/internal/domain/rank"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	_ "github.com/go-sql-driver/mysql" // mysql driver
	_ "github.com/lib/pq"              // postgres driver
	_ "github.com/mattn/go-sqlite3"    // sqlite3 driver
)

// DefaultEntitiesQuery computes lifetime internet sales per customer.
const DefaultEntitiesQuery = `
SELECT f.CustomerKey, SUM(f.SalesAmount) AS LifetimeSales
FROM FactInternetSales f
GROUP BY f.CustomerKey
ORDER BY f.CustomerKey`

// DefaultDetailsQuery computes internet sales per customer and product category.
const DefaultDetailsQuery = `
SELECT f.CustomerKey, pc.EnglishProductCategoryName, SUM(f.SalesAmount) AS CategorySales
FROM FactInternetSales f
JOIN DimProduct p ON p.ProductKey = f.ProductKey
JOIN DimProductSubcategory ps ON ps.ProductSubcategoryKey = p.ProductSubcategoryKey
JOIN DimProductCategory pc ON pc.ProductCategoryKey = ps.ProductCategoryKey
GROUP BY f.CustomerKey, pc.EnglishProductCategoryName
ORDER BY f.CustomerKey, pc.EnglishProductCategoryName`

// DefaultPeriodsQuery computes internet sales per order month. OrderDateKey
// is the warehouse's YYYYMMDD integer date key, so the month key is YYYYMM00.
const DefaultPeriodsQuery = `
SELECT f.OrderDateKey - f.OrderDateKey % 100 AS MonthKey, SUM(f.SalesAmount) AS MonthlySales
FROM FactInternetSales f
GROUP BY f.OrderDateKey - f.OrderDateKey % 100
ORDER BY MonthKey`

var supportedDrivers = map[string]struct{}{
	"mysql":    {},
	"postgres": {},
	"sqlite3":  {},
}

// SQLOption applies a configuration option to the SQLSource.
type SQLOption func(*SQLSource)

// WithEntitiesQuery overrides the entities query. It must return
// (id, measure) rows.
func WithEntitiesQuery(q string) SQLOption {
	return func(s *SQLSource) {
		if q != "" {
			s.entitiesQuery = q
		}
	}
}

// WithDetailsQuery overrides the details query. It must return
// (entity id, group key, amount) rows.
func WithDetailsQuery(q string) SQLOption {
	return func(s *SQLSource) {
		if q != "" {
			s.detailsQuery = q
		}
	}
}

// WithPeriodsQuery overrides the periods query. It must return
// (period, value) rows in period order.
func WithPeriodsQuery(q string) SQLOption {
	return func(s *SQLSource) {
		if q != "" {
			s.periodsQuery = q
		}
	}
}

// SQLSource reads a snapshot from a relational warehouse.
type SQLSource struct {
	db            *sql.DB
	owned         bool
	entitiesQuery string
	detailsQuery  string
	periodsQuery  string
}

// OpenSQL opens and pings a database for driver and dsn.
func OpenSQL(ctx context.Context, driver, dsn string, opts ...SQLOption) (*SQLSource, error) {
	if _, ok := supportedDrivers[driver]; !ok {
		return nil, errors.Wrapf(ErrUnsupportedDriver, "driver %q", driver)
	}
	if dsn == "" {
		return nil, ErrEmptyDSN
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", driver)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrapf(err, "ping %s", driver)
	}

	s := NewSQL(db, opts...)
	s.owned = true
	return s, nil
}

// NewSQL wraps an existing handle. Close does not close a borrowed db.
func NewSQL(db *sql.DB, opts ...SQLOption) *SQLSource {
	s := &SQLSource{
		db:            db,
		entitiesQuery: DefaultEntitiesQuery,
		detailsQuery:  DefaultDetailsQuery,
		periodsQuery:  DefaultPeriodsQuery,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Kind implements Source.
func (s *SQLSource) Kind() string { return KindSQL }

// Entities implements Source.
func (s *SQLSource) Entities(ctx context.Context) ([]model.Entity, error) {
	rows, err := s.db.QueryContext(ctx, s.entitiesQuery)
	if err != nil {
		return nil, errors.Wrap(err, "query entities")
	}
	defer func() { _ = rows.Close() }()

	var out []model.Entity
	for rows.Next() {
		var (
			id      string
			measure decimal.NullDecimal
		)
		if err := rows.Scan(&id, &measure); err != nil {
			return nil, errors.Wrap(err, "scan entity")
		}
		e := model.Entity{ID: id}
		if measure.Valid {
			e.Measure = measure.Decimal.InexactFloat64()
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate entities")
	}
	return out, nil
}

// Details implements Source.
func (s *SQLSource) Details(ctx context.Context) ([]model.DetailRecord, error) {
	rows, err := s.db.QueryContext(ctx, s.detailsQuery)
	if err != nil {
		return nil, errors.Wrap(err, "query details")
	}
	defer func() { _ = rows.Close() }()

	var out []model.DetailRecord
	for rows.Next() {
		var (
			d      model.DetailRecord
			group  sql.NullString
			amount decimal.NullDecimal
		)
		if err := rows.Scan(&d.EntityID, &group, &amount); err != nil {
			return nil, errors.Wrap(err, "scan detail")
		}
		d.GroupKey = group.String
		if amount.Valid {
			d.Amount = amount.Decimal
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate details")
	}
	return out, nil
}

// Periods implements PeriodSource.
func (s *SQLSource) Periods(ctx context.Context) ([]rank.Point, error) {
	rows, err := s.db.QueryContext(ctx, s.periodsQuery)
	if err != nil {
		return nil, errors.Wrap(err, "query periods")
	}
	defer func() { _ = rows.Close() }()

	var out []rank.Point
	for rows.Next() {
		var (
			period string
			value  decimal.NullDecimal
		)
		if err := rows.Scan(&period, &value); err != nil {
			return nil, errors.Wrap(err, "scan period")
		}
		p := rank.Point{Period: monthLabel(period)}
		if value.Valid {
			p.Value = value.Decimal.InexactFloat64()
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate periods")
	}
	return out, nil
}

// monthLabel turns a YYYYMM00 month key into "YYYY-MM". Other keys are
// returned unchanged.
func monthLabel(key string) string {
	if len(key) != 8 || !strings.HasSuffix(key, "00") {
		return key
	}
	for _, r := range key {
		if r < '0' || r > '9' {
			return key
		}
	}
	return key[:4] + "-" + key[4:6]
}

// Close releases the database handle when the source opened it.
func (s *SQLSource) Close() error {
	if !s.owned {
		return nil
	}
	return errors.Wrap(s.db.Close(), "close db")
}
