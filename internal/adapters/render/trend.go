package render

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/okian/segmentor/internal/domain/rank"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// TrendReport is the serialized shape of a period-over-period comparison.
type TrendReport struct {
	RunID   string     `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	Lag     int        `json:"lag" yaml:"lag"`
	Periods []TrendRow `json:"periods" yaml:"periods"`
}

// TrendRow is one period. Comparison fields are null for the first lag
// periods; Percent is also null when the previous value is 0.
type TrendRow struct {
	Period   string   `json:"period" yaml:"period"`
	Value    float64  `json:"value" yaml:"value"`
	Previous *float64 `json:"previous" yaml:"previous"`
	Delta    *float64 `json:"delta" yaml:"delta"`
	Percent  *float64 `json:"percent" yaml:"percent"`
}

// NewTrendReport converts period changes into a TrendReport.
func NewTrendReport(runID string, lag int, changes []rank.Change) TrendReport {
	rep := TrendReport{RunID: runID, Lag: lag, Periods: make([]TrendRow, len(changes))}
	for i, c := range changes {
		rep.Periods[i] = TrendRow{
			Period:   c.Period,
			Value:    c.Value,
			Previous: c.Previous,
			Delta:    c.Delta,
			Percent:  c.Percent,
		}
	}
	return rep
}

// WriteTrend renders rep to w.
func (r *Renderer) WriteTrend(w io.Writer, rep TrendReport) error {
	switch r.format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return errors.Wrap(enc.Encode(rep), "encode json")
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(rep); err != nil {
			return errors.Wrap(err, "encode yaml")
		}
		return errors.Wrap(enc.Close(), "flush yaml")
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PERIOD\tVALUE\tPREVIOUS\tCHANGE\tCHANGE %")
	for _, p := range rep.Periods {
		fmt.Fprintf(tw, "%s\t%.2f\t%s\t%s\t%s\n", p.Period, p.Value, optional(p.Previous, "%.2f"), optional(p.Delta, "%+.2f"), optional(p.Percent, "%+.1f%%"))
	}
	return errors.Wrap(tw.Flush(), "flush table")
}

func optional(v *float64, format string) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf(format, *v)
}
