package source

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/okian/segmentor/internal/domain/model"
	"github.com/okian/segmentor/internal/domain/rank"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// SnapshotDoc is the YAML layout of a snapshot file.
type SnapshotDoc struct {
	ID          string      `yaml:"id,omitempty"`
	GeneratedAt time.Time   `yaml:"generated_at,omitempty"`
	Entities    []EntityDoc `yaml:"entities"`
	Details     []DetailDoc `yaml:"details,omitempty"`
	Periods     []PeriodDoc `yaml:"periods,omitempty"`
}

// EntityDoc is one entity row.
type EntityDoc struct {
	ID      string  `yaml:"id"`
	Measure float64 `yaml:"measure"`
}

// DetailDoc is one detail row. Amount is decimal so money stays exact.
type DetailDoc struct {
	EntityID string          `yaml:"entity_id"`
	Group    string          `yaml:"group"`
	Amount   decimal.Decimal `yaml:"amount"`
}

// PeriodDoc is the measure total of one period, e.g. "2013-07".
type PeriodDoc struct {
	Period string          `yaml:"period"`
	Value  decimal.Decimal `yaml:"value"`
}

// FileSource serves a snapshot decoded from YAML.
type FileSource struct {
	doc SnapshotDoc
}

// OpenFile reads and decodes the snapshot at path.
func OpenFile(path string) (*FileSource, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open snapshot %s", path)
	}
	defer func() { _ = f.Close() }()

	src, err := ReadFile(f)
	if err != nil {
		return nil, errors.Wrapf(err, "snapshot %s", path)
	}
	return src, nil
}

// ReadFile decodes a snapshot from r.
func ReadFile(r io.Reader) (*FileSource, error) {
	var doc SnapshotDoc
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Wrap(err, "decode snapshot")
	}
	return &FileSource{doc: doc}, nil
}

// WriteFile encodes doc as YAML to path.
func WriteFile(path string, doc SnapshotDoc) error {
	if path == "" {
		return ErrEmptyPath
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create snapshot %s", path)
	}
	if err := Encode(f, doc); err != nil {
		_ = f.Close()
		return err
	}
	return errors.Wrapf(f.Close(), "close snapshot %s", path)
}

// Encode writes doc as YAML to w.
func Encode(w io.Writer, doc SnapshotDoc) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return errors.Wrap(err, "encode snapshot")
	}
	return errors.Wrap(enc.Close(), "flush snapshot")
}

// Kind implements Source.
func (s *FileSource) Kind() string { return KindFile }

// ID returns the snapshot id recorded in the file, if any.
func (s *FileSource) ID() string { return s.doc.ID }

// Entities implements Source.
func (s *FileSource) Entities(_ context.Context) ([]model.Entity, error) {
	out := make([]model.Entity, len(s.doc.Entities))
	for i, e := range s.doc.Entities {
		out[i] = model.Entity{ID: e.ID, Measure: e.Measure}
	}
	return out, nil
}

// Details implements Source.
func (s *FileSource) Details(_ context.Context) ([]model.DetailRecord, error) {
	out := make([]model.DetailRecord, len(s.doc.Details))
	for i, d := range s.doc.Details {
		out[i] = model.DetailRecord{EntityID: d.EntityID, GroupKey: d.Group, Amount: d.Amount}
	}
	return out, nil
}

// Periods implements PeriodSource. A file without periods returns
// ErrNoPeriods.
func (s *FileSource) Periods(_ context.Context) ([]rank.Point, error) {
	if len(s.doc.Periods) == 0 {
		return nil, ErrNoPeriods
	}
	out := make([]rank.Point, len(s.doc.Periods))
	for i, p := range s.doc.Periods {
		out[i] = rank.Point{Period: p.Period, Value: p.Value.InexactFloat64()}
	}
	return out, nil
}

// Close implements Source.
func (s *FileSource) Close() error { return nil }
