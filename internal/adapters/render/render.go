// Package render writes segmentation results for people and tools.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/okian/segmentor/internal/domain/rank"
	"github.com/okian/segmentor/internal/domain/segment"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Formats.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

// Report is the serialized shape of a result.
type Report struct {
	RunID       string      `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	Basis       string      `json:"basis" yaml:"basis"`
	Entities    int         `json:"entities" yaml:"entities"`
	Tiers       []TierRow   `json:"tiers" yaml:"tiers"`
	Diagnostics Diagnostics `json:"diagnostics" yaml:"diagnostics"`
}

// TierRow is one tier summary. Top group fields are null when no detail
// record maps to the tier.
type TierRow struct {
	Label          string   `json:"label" yaml:"label"`
	Threshold      float64  `json:"threshold" yaml:"threshold"`
	Count          int      `json:"count" yaml:"count"`
	AverageMeasure float64  `json:"average_measure" yaml:"average_measure"`
	TopGroup       *string  `json:"top_group" yaml:"top_group"`
	TopGroupAmount *float64 `json:"top_group_amount" yaml:"top_group_amount"`
	Leaders        []Leader `json:"leaders,omitempty" yaml:"leaders,omitempty"`
}

// Leader is one of the largest entities of a tier.
type Leader struct {
	Rank     int     `json:"rank" yaml:"rank"`
	EntityID string  `json:"entity_id" yaml:"entity_id"`
	Measure  float64 `json:"measure" yaml:"measure"`
}

// Diagnostics mirrors segment.Diagnostics.
type Diagnostics struct {
	UnmappedDetails   int      `json:"unmapped_details" yaml:"unmapped_details"`
	UnmappedEntityIDs []string `json:"unmapped_entity_ids,omitempty" yaml:"unmapped_entity_ids,omitempty"`
}

// NewReport converts a result into a Report.
func NewReport(runID string, r *segment.Result) Report {
	rep := Report{
		RunID:    runID,
		Basis:    string(r.Basis),
		Entities: r.Total(),
		Tiers:    make([]TierRow, len(r.Summaries)),
		Diagnostics: Diagnostics{
			UnmappedDetails:   r.Diagnostics.UnmappedDetails,
			UnmappedEntityIDs: r.Diagnostics.UnmappedEntityIDs,
		},
	}
	for i, s := range r.Summaries {
		row := TierRow{
			Label:          s.Label,
			Threshold:      s.Threshold,
			Count:          s.Count,
			AverageMeasure: s.AverageMeasure,
		}
		if s.TopGroup != nil {
			key := s.TopGroup.Key
			amount := s.TopGroup.Amount.InexactFloat64()
			row.TopGroup = &key
			row.TopGroupAmount = &amount
		}
		rep.Tiers[i] = row
	}
	return rep
}

// AddLeaders attaches ranked rows to the tier rows named by their group.
// Rows for unknown tiers are ignored.
func (rep *Report) AddLeaders(ranked []rank.Ranked) {
	byLabel := make(map[string]int, len(rep.Tiers))
	for i, t := range rep.Tiers {
		byLabel[t.Label] = i
	}
	for _, r := range ranked {
		i, ok := byLabel[r.Group]
		if !ok {
			continue
		}
		rep.Tiers[i].Leaders = append(rep.Tiers[i].Leaders, Leader{Rank: r.Rank, EntityID: r.Key, Measure: r.Value})
	}
}

// Renderer writes reports in one format.
type Renderer struct {
	format string
}

// New returns a Renderer for format.
func New(format string) (*Renderer, error) {
	f := strings.ToLower(strings.TrimSpace(format))
	switch f {
	case "":
		f = FormatTable
	case FormatTable, FormatJSON, FormatYAML:
	default:
		return nil, errors.Wrapf(ErrUnknownFormat, "format %q", format)
	}
	return &Renderer{format: f}, nil
}

// Format returns the selected format.
func (r *Renderer) Format() string { return r.format }

// Write renders rep to w.
func (r *Renderer) Write(w io.Writer, rep Report) error {
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
	default:
		return writeTable(w, rep)
	}
}

func writeTable(w io.Writer, rep Report) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIER\tTHRESHOLD\tCUSTOMERS\tAVG MEASURE\tTOP GROUP\tTOP GROUP AMOUNT")
	for _, t := range rep.Tiers {
		group, amount := "-", "-"
		if t.TopGroup != nil {
			group = *t.TopGroup
			amount = fmt.Sprintf("%.2f", *t.TopGroupAmount)
		}
		fmt.Fprintf(tw, "%s\t%g\t%d\t%.2f\t%s\t%s\n", t.Label, t.Threshold, t.Count, t.AverageMeasure, group, amount)
	}
	if err := tw.Flush(); err != nil {
		return errors.Wrap(err, "flush table")
	}
	if err := writeLeaders(w, rep); err != nil {
		return err
	}
	if rep.Diagnostics.UnmappedDetails > 0 {
		_, err := fmt.Fprintf(w, "\n%d detail record(s) skipped for unknown entities\n", rep.Diagnostics.UnmappedDetails)
		return errors.Wrap(err, "write diagnostics")
	}
	return nil
}

func writeLeaders(w io.Writer, rep Report) error {
	found := false
	for _, t := range rep.Tiers {
		if len(t.Leaders) > 0 {
			found = true
			break
		}
	}
	if !found {
		return nil
	}

	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIER\tRANK\tENTITY\tMEASURE")
	for _, t := range rep.Tiers {
		for _, l := range t.Leaders {
			fmt.Fprintf(tw, "%s\t%d\t%s\t%.2f\n", t.Label, l.Rank, l.EntityID, l.Measure)
		}
	}
	return errors.Wrap(tw.Flush(), "flush leaders")
}
