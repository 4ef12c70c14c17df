package render_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/okian/segmentor/internal/adapters/render"
	"github.com/okian/segmentor/internal/domain/rank"
	"github.com/okian/segmentor/internal/domain/segment"
	"github.com/okian/segmentor/internal/domain/tier"
	"github.com/shopspring/decimal"
	. "github.com/smartystreets/goconvey/convey"
	"gopkg.in/yaml.v3"
)

func sampleResult() *segment.Result {
	return &segment.Result{
		Basis: tier.BasisPercentile,
		Summaries: []segment.Summary{
			{Label: "High Value", Threshold: 0.8, Count: 1, AverageMeasure: 500, TopGroup: &segment.GroupContribution{Key: "Bikes", Amount: decimal.RequireFromString("450.25")}},
			{Label: "Medium Value", Threshold: 0.5, Count: 2, AverageMeasure: 350},
			{Label: "Low Value", Threshold: 0, Count: 2, AverageMeasure: 150},
		},
		Diagnostics: segment.Diagnostics{UnmappedDetails: 2, UnmappedEntityIDs: []string{"99"}},
	}
}

func TestNewReport(t *testing.T) {
	Convey("Given a segmentation result", t, func() {
		rep := render.NewReport("run-1", sampleResult())

		Convey("Then the report should keep tier order and totals", func() {
			So(rep.RunID, ShouldEqual, "run-1")
			So(rep.Entities, ShouldEqual, 5)
			So(rep.Tiers[0].Label, ShouldEqual, "High Value")
			So(rep.Tiers[2].Label, ShouldEqual, "Low Value")
			So(*rep.Tiers[0].TopGroup, ShouldEqual, "Bikes")
			So(*rep.Tiers[0].TopGroupAmount, ShouldEqual, 450.25)
			So(rep.Tiers[1].TopGroup, ShouldBeNil)
			So(rep.Tiers[1].TopGroupAmount, ShouldBeNil)
		})
	})
}

func TestRenderer(t *testing.T) {
	Convey("Given a report", t, func() {
		rep := render.NewReport("run-1", sampleResult())
		var buf bytes.Buffer

		Convey("When rendering a table", func() {
			r, err := render.New("")
			So(err, ShouldBeNil)
			So(r.Format(), ShouldEqual, render.FormatTable)
			So(r.Write(&buf, rep), ShouldBeNil)

			Convey("Then rows should follow the declared order with dashes for missing groups", func() {
				lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
				So(lines[0], ShouldStartWith, "TIER")
				So(lines[1], ShouldStartWith, "High Value")
				So(lines[1], ShouldContainSubstring, "450.25")
				So(lines[2], ShouldStartWith, "Medium Value")
				So(lines[2], ShouldEndWith, "-")
				So(buf.String(), ShouldContainSubstring, "2 detail record(s) skipped")
			})
		})

		Convey("When rendering json", func() {
			r, err := render.New("JSON")
			So(err, ShouldBeNil)
			So(r.Write(&buf, rep), ShouldBeNil)

			Convey("Then missing top groups should be null", func() {
				var out map[string]any
				So(json.Unmarshal(buf.Bytes(), &out), ShouldBeNil)
				tiers := out["tiers"].([]any)
				So(tiers[0].(map[string]any)["top_group"], ShouldEqual, "Bikes")
				medium := tiers[1].(map[string]any)
				v, ok := medium["top_group"]
				So(ok, ShouldBeTrue)
				So(v, ShouldBeNil)
			})
		})

		Convey("When rendering yaml", func() {
			r, err := render.New("yaml")
			So(err, ShouldBeNil)
			So(r.Write(&buf, rep), ShouldBeNil)

			Convey("Then it should decode back into a report", func() {
				var back render.Report
				So(yaml.Unmarshal(buf.Bytes(), &back), ShouldBeNil)
				So(back.Tiers[1].Label, ShouldEqual, "Medium Value")
				So(back.Tiers[1].TopGroup, ShouldBeNil)
				So(back.Diagnostics.UnmappedDetails, ShouldEqual, 2)
			})
		})

		Convey("When the format is unknown", func() {
			_, err := render.New("xml")

			Convey("Then ErrUnknownFormat should be returned", func() {
				So(errors.Is(err, render.ErrUnknownFormat), ShouldBeTrue)
			})
		})
	})
}

func TestReportLeaders(t *testing.T) {
	Convey("Given a report and ranked tier members", t, func() {
		rep := render.NewReport("run-1", sampleResult())
		rep.AddLeaders([]rank.Ranked{
			{Row: rank.Row{Group: "Medium Value", Key: "B", Value: 400}, Rank: 1},
			{Row: rank.Row{Group: "High Value", Key: "A", Value: 500}, Rank: 1},
			{Row: rank.Row{Group: "Medium Value", Key: "C", Value: 300}, Rank: 2},
			{Row: rank.Row{Group: "Gone", Key: "X", Value: 1}, Rank: 1},
		})

		Convey("Then leaders should attach to their tiers", func() {
			So(rep.Tiers[0].Leaders, ShouldResemble, []render.Leader{{Rank: 1, EntityID: "A", Measure: 500}})
			So(len(rep.Tiers[1].Leaders), ShouldEqual, 2)
			So(rep.Tiers[1].Leaders[1].EntityID, ShouldEqual, "C")
			So(rep.Tiers[2].Leaders, ShouldBeEmpty)
		})

		Convey("When rendering a table", func() {
			r, _ := render.New(render.FormatTable)
			var buf bytes.Buffer
			So(r.Write(&buf, rep), ShouldBeNil)

			Convey("Then a leaders section should follow in tier order", func() {
				out := buf.String()
				So(out, ShouldContainSubstring, "ENTITY")
				So(strings.Index(out, "High Value    1"), ShouldBeLessThan, strings.Index(out, "Medium Value  2"))
			})
		})
	})
}

func TestTrendReport(t *testing.T) {
	Convey("Given period changes", t, func() {
		changes := rank.PeriodOverPeriod([]rank.Point{
			{Period: "2013-07", Value: 0},
			{Period: "2013-08", Value: 100},
			{Period: "2013-09", Value: 150},
		}, 1)
		rep := render.NewTrendReport("run-2", 1, changes)
		var buf bytes.Buffer

		Convey("When rendering a table", func() {
			r, _ := render.New("")
			So(r.WriteTrend(&buf, rep), ShouldBeNil)
			lines := strings.Split(strings.TrimSpace(buf.String()), "\n")

			Convey("Then missing comparisons should render as dashes", func() {
				So(lines[0], ShouldStartWith, "PERIOD")
				So(lines[1], ShouldStartWith, "2013-07")
				So(lines[1], ShouldEndWith, "-")
				So(lines[2], ShouldContainSubstring, "+100.00")
				So(lines[2], ShouldEndWith, "-")
				So(lines[3], ShouldContainSubstring, "+50.0%")
			})
		})

		Convey("When rendering json", func() {
			r, _ := render.New(render.FormatJSON)
			So(r.WriteTrend(&buf, rep), ShouldBeNil)

			Convey("Then the first period should have null comparisons", func() {
				var out render.TrendReport
				So(json.Unmarshal(buf.Bytes(), &out), ShouldBeNil)
				So(out.Lag, ShouldEqual, 1)
				So(out.Periods[0].Previous, ShouldBeNil)
				So(*out.Periods[2].Percent, ShouldEqual, 50)
			})
		})

		Convey("When rendering yaml", func() {
			r, _ := render.New(render.FormatYAML)
			So(r.WriteTrend(&buf, rep), ShouldBeNil)
			So(buf.String(), ShouldContainSubstring, "2013-09")
			So(buf.String(), ShouldContainSubstring, "lag: 1")
		})
	})
}
