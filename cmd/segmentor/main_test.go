package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/okian/segmentor/internal/domain/segment"
	"github.com/okian/segmentor/internal/domain/tier"
	"github.com/smartystreets/goconvey/convey"
)

// execute runs the CLI with args and returns stdout and stderr.
func execute(args ...string) (string, string, error) {
	var stdout, stderr bytes.Buffer
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func writeFile(dir, name, content string) string {
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		panic(err)
	}
	return path
}

func TestSynthAndRun(t *testing.T) {
	convey.Convey("Given a generated snapshot", t, func() {
		dir := t.TempDir()
		snapshot := filepath.Join(dir, "snapshot.yaml")

		_, _, err := execute("synth", "--customers", "50", "--seed", "7", "--orphans", "2", "--out", snapshot, "--log-level", "error")
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("When running with json output", func() {
			stdout, _, err := execute("run", "--snapshot", snapshot, "--format", "json", "--log-level", "error")
			convey.So(err, convey.ShouldBeNil)

			var rep struct {
				Entities int `json:"entities"`
				Tiers    []struct {
					Label    string  `json:"label"`
					Count    int     `json:"count"`
					TopGroup *string `json:"top_group"`
				} `json:"tiers"`
				Diagnostics struct {
					UnmappedDetails int `json:"unmapped_details"`
				} `json:"diagnostics"`
			}
			convey.So(json.Unmarshal([]byte(stdout), &rep), convey.ShouldBeNil)

			convey.Convey("Then every customer should land in exactly one tier", func() {
				convey.So(rep.Entities, convey.ShouldEqual, 50)
				convey.So(len(rep.Tiers), convey.ShouldEqual, 3)
				total := 0
				for _, tr := range rep.Tiers {
					total += tr.Count
				}
				convey.So(total, convey.ShouldEqual, 50)
				convey.So(rep.Tiers[0].Label, convey.ShouldEqual, "High Value")
				convey.So(rep.Tiers[0].TopGroup, convey.ShouldNotBeNil)
			})

			convey.Convey("Then orphan details should be reported", func() {
				convey.So(rep.Diagnostics.UnmappedDetails, convey.ShouldEqual, 2)
			})
		})

		convey.Convey("When running with custom tiers, a report file and a metrics textfile", func() {
			report := filepath.Join(dir, "report.txt")
			textfile := filepath.Join(dir, "segmentor.prom")
			stdout, _, err := execute("run",
				"--snapshot", snapshot,
				"--tiers", "Top=0.9,Rest=0",
				"--out", report,
				"--metrics-textfile", textfile,
				"--log-level", "error",
			)
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then the table should go to the file", func() {
				convey.So(stdout, convey.ShouldBeEmpty)
				b, err := os.ReadFile(report)
				convey.So(err, convey.ShouldBeNil)
				lines := strings.Split(strings.TrimSpace(string(b)), "\n")
				convey.So(lines[0], convey.ShouldStartWith, "TIER")
				convey.So(lines[1], convey.ShouldStartWith, "Top")
				convey.So(lines[2], convey.ShouldStartWith, "Rest")
			})

			convey.Convey("Then the metrics should be exported", func() {
				b, err := os.ReadFile(textfile)
				convey.So(err, convey.ShouldBeNil)
				convey.So(string(b), convey.ShouldContainSubstring, "segmentor_segmentation_runs_total")
				convey.So(string(b), convey.ShouldContainSubstring, `segmentor_segmentation_tier_entities{tier="Top"}`)
				convey.So(string(b), convey.ShouldContainSubstring, "segmentor_system_goroutine_count")
			})
		})

		convey.Convey("When comparing year over year", func() {
			stdout, _, err := execute("trend", "--snapshot", snapshot, "--lag", "12", "--format", "json", "--log-level", "error")
			convey.So(err, convey.ShouldBeNil)

			var rep struct {
				Lag     int `json:"lag"`
				Periods []struct {
					Period   string   `json:"period"`
					Previous *float64 `json:"previous"`
				} `json:"periods"`
			}
			convey.So(json.Unmarshal([]byte(stdout), &rep), convey.ShouldBeNil)

			convey.Convey("Then only the second year should have comparisons", func() {
				convey.So(rep.Lag, convey.ShouldEqual, 12)
				convey.So(len(rep.Periods), convey.ShouldEqual, 24)
				convey.So(rep.Periods[11].Previous, convey.ShouldBeNil)
				convey.So(rep.Periods[12].Period, convey.ShouldEqual, "2013-01")
				convey.So(rep.Periods[12].Previous, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When listing the top customers of every tier", func() {
			stdout, _, err := execute("run", "--snapshot", snapshot, "--top", "2", "--log-level", "error")

			convey.Convey("Then the table should have a leaders section", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(stdout, convey.ShouldContainSubstring, "ENTITY")
				convey.So(stdout, convey.ShouldContainSubstring, "skipped for unknown entities")
			})
		})

		convey.Convey("When synth writes to stdout", func() {
			stdout, _, err := execute("synth", "--customers", "3", "--seed", "7", "--log-level", "error")

			convey.Convey("Then the YAML should list the customers", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(stdout, convey.ShouldContainSubstring, "entities:")
				convey.So(stdout, convey.ShouldContainSubstring, "11002")
			})
		})
	})
}

func TestRunFailures(t *testing.T) {
	convey.Convey("Given snapshots the calculator must reject", t, func() {
		dir := t.TempDir()

		convey.Convey("When an entity id repeats", func() {
			path := writeFile(dir, "dup.yaml", "entities:\n  - {id: a, measure: 1}\n  - {id: a, measure: 2}\n")
			stdout, stderr, err := execute("run", "--snapshot", path, "--log-level", "error")

			convey.Convey("Then the run should fail without a report", func() {
				convey.So(errors.Is(err, segment.ErrDuplicateEntity), convey.ShouldBeTrue)
				convey.So(stdout, convey.ShouldBeEmpty)
				convey.So(stderr, convey.ShouldContainSubstring, "duplicate entity id")
			})
		})

		convey.Convey("When the snapshot file does not exist", func() {
			_, _, err := execute("run", "--snapshot", filepath.Join(dir, "missing.yaml"), "--log-level", "error")
			convey.So(err, convey.ShouldNotBeNil)
		})

		convey.Convey("When the tier list is malformed", func() {
			path := writeFile(dir, "ok.yaml", "entities:\n  - {id: a, measure: 1}\n")
			_, _, err := execute("run", "--snapshot", path, "--tiers", "High=0.2,Low=0.5", "--log-level", "error")
			convey.So(errors.Is(err, tier.ErrInvalidDefinition), convey.ShouldBeTrue)
		})
	})
}

func TestValidate(t *testing.T) {
	convey.Convey("Given the validate command", t, func() {
		convey.Convey("When the default configuration is checked", func() {
			stdout, _, err := execute("validate", "--log-level", "error")

			convey.Convey("Then the tiers should be listed in order", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(stdout, convey.ShouldContainSubstring, "basis: percentile")
				convey.So(stdout, convey.ShouldContainSubstring, "High Value: >= 0.8")
				convey.So(stdout, convey.ShouldContainSubstring, "Low Value: remainder")
			})
		})

		convey.Convey("When a config file sets measure tiers", func() {
			dir := t.TempDir()
			path := writeFile(dir, "config.yaml", `
tiers:
  basis: measure
  levels:
    - {label: "65+", threshold: 65}
    - {label: "Under 65", threshold: 0}
`)
			stdout, _, err := execute("validate", "--config", path, "--log-level", "error")

			convey.Convey("Then the file tiers should be used", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(stdout, convey.ShouldContainSubstring, "basis: measure")
				convey.So(stdout, convey.ShouldContainSubstring, "65+: >= 65")
			})
		})

		convey.Convey("When the tiers are out of order", func() {
			_, _, err := execute("validate", "--tiers", "Low=0.1,High=0.9", "--log-level", "error")

			convey.Convey("Then the offending tier should be reported", func() {
				var ide *tier.InvalidDefinitionError
				convey.So(errors.As(err, &ide), convey.ShouldBeTrue)
				convey.So(ide.Index, convey.ShouldEqual, 1)
			})
		})
	})
}
