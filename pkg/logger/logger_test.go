package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestInit(t *testing.T) {
	Convey("Given the logger package", t, func() {
		Convey("When initialized with defaults", func() {
			So(Init(), ShouldBeNil)

			Convey("Then the global logger is available", func() {
				So(Get(), ShouldNotBeNil)
				So(Named("test"), ShouldNotBeNil)
				So(Sync(), ShouldBeNil)
			})
		})

		Convey("When initialized with an unknown format", func() {
			err := Init(WithFormat("xml"))

			Convey("Then an error is returned", func() {
				So(err, ShouldNotBeNil)
			})
		})

		Convey("When initialized with an unknown level", func() {
			err := Init(WithLevel("loud"))

			Convey("Then an error is returned", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}

func TestJSONOutput(t *testing.T) {
	Convey("Given a JSON logger writing to a buffer", t, func() {
		var buf bytes.Buffer
		So(Init(WithFormat(FormatJSON), WithWriter(&buf), WithLevel("debug")), ShouldBeNil)
		defer func() { _ = Init() }()

		Convey("When logging with typed fields", func() {
			Named("finalize").Info(context.Background(), "trip closed",
				String("trip_id", "t-1"),
				Int("events", 3),
				Bool("insufficient", false),
				Duration("took", time.Second),
				Error(errors.New("boom")),
			)

			Convey("Then one structured record is written under the group", func() {
				var rec map[string]any
				So(json.Unmarshal(buf.Bytes(), &rec), ShouldBeNil)
				So(rec["msg"], ShouldEqual, "trip closed")
				group, ok := rec["finalize"].(map[string]any)
				So(ok, ShouldBeTrue)
				So(group["trip_id"], ShouldEqual, "t-1")
				So(group["events"], ShouldEqual, 3.0)
				So(group["source"], ShouldContainSubstring, "logger_test.go")
			})
		})
	})
}

func TestLevels(t *testing.T) {
	Convey("Given a logger at warn level", t, func() {
		var buf bytes.Buffer
		So(Init(WithWriter(&buf), WithLevel("warn")), ShouldBeNil)
		defer func() { _ = Init() }()

		Convey("Then debug and info are dropped", func() {
			ctx := context.Background()
			Get().Debug(ctx, "quiet")
			Get().Info(ctx, "quiet")
			Get().Warn(ctx, "loud")
			So(strings.Count(buf.String(), "\n"), ShouldEqual, 1)
			So(buf.String(), ShouldContainSubstring, "loud")
		})

		Convey("Then the level can be changed at runtime", func() {
			So(SetLevelString("DEBUG"), ShouldBeNil)
			Get().Debug(context.Background(), "now visible")
			So(buf.String(), ShouldContainSubstring, "now visible")
		})
	})
}

func TestDiscard(t *testing.T) {
	Convey("Given a discard logger", t, func() {
		l := Discard()

		Convey("Then logging is a no-op", func() {
			So(func() { l.Named("x").Info(context.Background(), "ignored") }, ShouldNotPanic)
		})
	})
}
