package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/okian/kartscore/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

const telemetry = "game_id,time,track,difficulty,kart_type,steer,accel,speed,brake,on_ground,x,y,z,energy\n" +
	"1,0,lighthouse,Novice,tux,0,1,10,0,1,0,0,0,0\n" +
	"2,0,volcano_island,SuperTux,gnu,1,1,20,0,0,0,0,0,0\n" +
	"1,16,lighthouse,Novice,tux,0,1,10,0,1,0,0,0,0\n" +
	"2,16,volcano_island,SuperTux,gnu,-1,1,5,0,0,0,0,0,0\n"

func TestMain(m *testing.M) {
	if err := logger.InitWithWriter(&bytes.Buffer{}); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func TestRun(t *testing.T) {
	convey.Convey("Given a telemetry log on disk", t, func() {
		dir := t.TempDir()
		in := filepath.Join(dir, "telemetry.csv")
		out := filepath.Join(dir, "scores.csv")
		convey.So(os.WriteFile(in, []byte(telemetry), 0o600), convey.ShouldBeNil)
		var stderr bytes.Buffer

		convey.Convey("When running with -in and -out", func() {
			code := run(context.Background(), []string{"-in", in, "-out", out}, &stderr)

			convey.Convey("Then it exits cleanly and writes the table", func() {
				convey.So(code, convey.ShouldEqual, exitOK)
				data, err := os.ReadFile(out)
				convey.So(err, convey.ShouldBeNil)
				lines := strings.Split(strings.TrimSpace(string(data)), "\n")
				convey.So(len(lines), convey.ShouldEqual, 3)
				convey.So(lines[1], convey.ShouldStartWith, "1,lighthouse,Novice,")
			})
		})

		convey.Convey("When sorting by score with a report and metrics", func() {
			report := filepath.Join(dir, "summary.yaml")
			prom := filepath.Join(dir, "kartscore.prom")
			code := run(context.Background(), []string{
				"-in", in, "-out", out, "-sort", "score", "-report", report, "-metrics", prom,
			}, &stderr)

			convey.Convey("Then every artifact is written", func() {
				convey.So(code, convey.ShouldEqual, exitOK)
				data, _ := os.ReadFile(out)
				convey.So(strings.Split(string(data), "\n")[1], convey.ShouldStartWith, "2,")

				summary, err := os.ReadFile(report)
				convey.So(err, convey.ShouldBeNil)
				convey.So(string(summary), convey.ShouldContainSubstring, "sessions: 2")

				text, err := os.ReadFile(prom)
				convey.So(err, convey.ShouldBeNil)
				convey.So(string(text), convey.ShouldContainSubstring, "kartscore_pipeline_runs_total")
			})
		})

		convey.Convey("When metrics labels come from the environment", func() {
			_ = os.Setenv("KART_METRICS_LABELS__DATASET", "stk")
			defer func() { _ = os.Unsetenv("KART_METRICS_LABELS__DATASET") }()
			prom := filepath.Join(dir, "labelled.prom")
			code := run(context.Background(), []string{"-in", in, "-out", out, "-metrics", prom}, &stderr)

			convey.Convey("Then every sample in the textfile carries them", func() {
				convey.So(code, convey.ShouldEqual, exitOK)
				text, err := os.ReadFile(prom)
				convey.So(err, convey.ShouldBeNil)
				convey.So(string(text), convey.ShouldContainSubstring, `kartscore_pipeline_runs_total{dataset="stk",status="success"} 1`)
			})
		})

		convey.Convey("When the config comes from the environment", func() {
			_ = os.Setenv("KART_INPUT_PATH", in)
			_ = os.Setenv("KART_OUTPUT_PATH", out)
			_ = os.Setenv("KART_SORT_BY", "session")
			defer func() {
				_ = os.Unsetenv("KART_INPUT_PATH")
				_ = os.Unsetenv("KART_OUTPUT_PATH")
				_ = os.Unsetenv("KART_SORT_BY")
			}()
			code := run(context.Background(), nil, &stderr)

			convey.Convey("Then flags are not needed", func() {
				convey.So(code, convey.ShouldEqual, exitOK)
				_, err := os.Stat(out)
				convey.So(err, convey.ShouldBeNil)
			})
		})

		convey.Convey("When a flag overrides the environment", func() {
			_ = os.Setenv("KART_SORT_BY", "score")
			defer func() { _ = os.Unsetenv("KART_SORT_BY") }()
			code := run(context.Background(), []string{"-in", in, "-out", out, "-sort", "session"}, &stderr)

			convey.Convey("Then the flag wins", func() {
				convey.So(code, convey.ShouldEqual, exitOK)
				data, _ := os.ReadFile(out)
				convey.So(strings.Split(string(data), "\n")[1], convey.ShouldStartWith, "1,")
			})
		})

		convey.Convey("When the input is malformed", func() {
			convey.So(os.WriteFile(in, []byte(telemetry+"3,0,abyss,Legend,tux,0,1,1,0,1,0,0,0,0\n"), 0o600), convey.ShouldBeNil)
			code := run(context.Background(), []string{"-in", in, "-out", out}, &stderr)

			convey.Convey("Then it fails naming the row", func() {
				convey.So(code, convey.ShouldEqual, exitRun)
				convey.So(stderr.String(), convey.ShouldContainSubstring, "line 6")
				convey.So(stderr.String(), convey.ShouldContainSubstring, "difficulty")
			})

			convey.Convey("And -malformed skip lets it through", func() {
				stderr.Reset()
				code := run(context.Background(), []string{"-in", in, "-out", out, "-malformed", "skip"}, &stderr)
				convey.So(code, convey.ShouldEqual, exitOK)
			})
		})
	})
}

func TestRunUsage(t *testing.T) {
	convey.Convey("Given bad usage", t, func() {
		var stderr bytes.Buffer

		convey.Convey("When paths are missing", func() {
			code := run(context.Background(), nil, &stderr)

			convey.Convey("Then usage is printed", func() {
				convey.So(code, convey.ShouldEqual, exitUsage)
				convey.So(stderr.String(), convey.ShouldContainSubstring, "-in and -out are required")
			})
		})

		convey.Convey("When the sort key is unknown", func() {
			code := run(context.Background(), []string{"-in", "a.csv", "-out", "b.csv", "-sort", "speed"}, &stderr)

			convey.Convey("Then the config is rejected", func() {
				convey.So(code, convey.ShouldEqual, exitUsage)
				convey.So(stderr.String(), convey.ShouldContainSubstring, "sort_by")
			})
		})

		convey.Convey("When a metrics label name is invalid", func() {
			_ = os.Setenv("KART_METRICS_LABELS__9LIVES", "x")
			defer func() { _ = os.Unsetenv("KART_METRICS_LABELS__9LIVES") }()
			code := run(context.Background(), []string{"-in", "a.csv", "-out", "b.csv"}, &stderr)

			convey.Convey("Then the config is rejected", func() {
				convey.So(code, convey.ShouldEqual, exitUsage)
				convey.So(stderr.String(), convey.ShouldContainSubstring, "metrics label")
			})
		})

		convey.Convey("When the worker count is zero", func() {
			code := run(context.Background(), []string{"-in", "a.csv", "-out", "b.csv", "-workers", "0"}, &stderr)

			convey.Convey("Then the config is rejected", func() {
				convey.So(code, convey.ShouldEqual, exitUsage)
			})
		})

		convey.Convey("When an unknown flag is given", func() {
			code := run(context.Background(), []string{"-bogus"}, &stderr)

			convey.Convey("Then it exits with a usage error", func() {
				convey.So(code, convey.ShouldEqual, exitUsage)
			})
		})

		convey.Convey("When help is requested", func() {
			code := run(context.Background(), []string{"-h"}, &stderr)

			convey.Convey("Then usage is printed and it exits cleanly", func() {
				convey.So(code, convey.ShouldEqual, exitOK)
				convey.So(stderr.String(), convey.ShouldContainSubstring, "usage: kartscore")
			})
		})
	})
}
