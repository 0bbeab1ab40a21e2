package service_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/okian/rallyeval/internal/adapters/plotting"
	service "github.com/okian/rallyeval/internal/app"
	"github.com/okian/rallyeval/internal/domain/matching"
	"github.com/okian/rallyeval/internal/domain/model"
	"github.com/okian/rallyeval/pkg/logger"
	"github.com/okian/rallyeval/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

const sampleLog = `{
	"10": {"y": 210.5, "action": "hit", "pred_action": "hit"},
	"13": {"y": 190.0, "action": "none", "pred_action": "bounce"},
	"20": {"y": 150.25, "action": "bounce", "pred_action": "none"},
	"24": {"y": null, "action": "none", "pred_action": "none"}
}`

func newService(opts ...service.Option) *service.Service {
	m := metrics.NewManager(metrics.WithPrometheusRegistry(prometheus.NewRegistry()))
	return service.New(append([]service.Option{service.WithMetrics(m)}, opts...)...)
}

func decodeSample(svc *service.Service) model.Log {
	log, err := svc.Decode(context.Background(), strings.NewReader(sampleLog))
	So(err, ShouldBeNil)
	return log
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()

		Convey("Then it should have sensible defaults", func() {
			So(svc, ShouldNotBeNil)
			stats := svc.GetStats()
			So(stats["tolerance"], ShouldEqual, 5)
			So(stats["mode"], ShouldEqual, "any")
			So(stats["evaluations"], ShouldEqual, int64(0))
		})
	})

	Convey("Given a new service with custom options", t, func() {
		svc := service.New(
			service.WithLogger(logger.Get()),
			service.WithTolerance(2),
			service.WithMode(matching.ModeOneToOne),
			service.WithPlotSize(4, 3),
		)

		Convey("Then the options are reflected in its stats", func() {
			stats := svc.GetStats()
			So(stats["tolerance"], ShouldEqual, 2)
			So(stats["mode"], ShouldEqual, "one_to_one")
		})
	})
}

func TestService_Evaluate(t *testing.T) {
	Convey("Given a service and a decoded log", t, func() {
		svc := newService()
		log := decodeSample(svc)
		ctx := context.Background()

		Convey("When evaluating with the default tolerance", func() {
			report, err := svc.Evaluate(ctx, log, service.Request{})
			So(err, ShouldBeNil)

			Convey("Then the report carries the table and outcomes", func() {
				So(report.RunID, ShouldNotBeEmpty)
				So(report.Tolerance, ShouldEqual, 5)
				So(report.Mode, ShouldEqual, "any")
				So(report.Frames, ShouldEqual, 4)
				So(report.Table.Get(model.Hit, matching.Correct), ShouldEqual, 1)
				So(report.Table.Get(model.Bounce, matching.Incorrect), ShouldEqual, 1)
				So(report.Recall["Hit"], ShouldEqual, 1.0)
				So(report.Recall["Bounce"], ShouldEqual, 0.0)
				So(report.MeanOffset["Hit"], ShouldEqual, 0.0)
				So(report.Outcomes, ShouldHaveLength, 2)
				So(*report.Outcomes[0].MatchedFrame, ShouldEqual, 10)
				So(report.Outcomes[1].MatchedFrame, ShouldBeNil)
			})

			Convey("And the stats count the evaluation", func() {
				stats := svc.GetStats()
				So(stats["evaluations"], ShouldEqual, int64(1))
				So(stats["lastRunID"], ShouldEqual, report.RunID)
			})
		})

		Convey("When a request overrides the tolerance", func() {
			tol := 10
			report, err := svc.Evaluate(ctx, log, service.Request{Tolerance: &tol})
			So(err, ShouldBeNil)

			Convey("Then the bounce falls inside the wider window", func() {
				So(report.Tolerance, ShouldEqual, 10)
				So(report.Table.Get(model.Bounce, matching.Correct), ShouldEqual, 1)
			})
		})

		Convey("When a request carries a negative tolerance", func() {
			tol := -1
			_, err := svc.Evaluate(ctx, log, service.Request{Tolerance: &tol})

			Convey("Then it is rejected as an invalid tolerance", func() {
				So(errors.Is(err, matching.ErrInvalidTolerance), ShouldBeTrue)
				So(service.ErrorKind(err), ShouldEqual, "invalid_tolerance")
				So(svc.GetStats()["rejected"], ShouldEqual, int64(1))
			})
		})
	})
}

func TestService_Metrics(t *testing.T) {
	Convey("Given a service with an isolated metrics manager", t, func() {
		reg := prometheus.NewRegistry()
		svc := service.New(service.WithMetrics(metrics.NewManager(metrics.WithPrometheusRegistry(reg))))

		Convey("When a malformed log is decoded", func() {
			_, err := svc.Decode(context.Background(), strings.NewReader(`{"x": {}}`))

			Convey("Then the rejection is counted by kind", func() {
				So(errors.Is(err, model.ErrMalformedLog), ShouldBeTrue)
				So(service.ErrorKind(err), ShouldEqual, "malformed_log")
				count, cerr := testutil.GatherAndCount(reg, "rallyeval_matcher_evaluation_errors_total")
				So(cerr, ShouldBeNil)
				So(count, ShouldEqual, 1)
			})
		})

		Convey("When a log is evaluated", func() {
			log := decodeSample(svc)
			_, err := svc.Evaluate(context.Background(), log, service.Request{})
			So(err, ShouldBeNil)

			Convey("Then the evaluation counter moves", func() {
				count, cerr := testutil.GatherAndCount(reg, "rallyeval_matcher_evaluations_total")
				So(cerr, ShouldBeNil)
				So(count, ShouldEqual, 1)
			})
		})
	})
}

func TestService_Render(t *testing.T) {
	Convey("Given a service and a decoded log", t, func() {
		svc := newService(service.WithPlotSize(4, 4))
		log := decodeSample(svc)
		ctx := context.Background()

		Convey("When plotting as SVG", func() {
			var buf bytes.Buffer
			err := svc.Plot(ctx, &buf, log, plotting.FormatSVG)

			Convey("Then an SVG document is written", func() {
				So(err, ShouldBeNil)
				So(buf.String(), ShouldContainSubstring, "<svg")
				So(svc.GetStats()["renders"], ShouldEqual, int64(1))
			})
		})

		Convey("When plotting in an unknown format", func() {
			var buf bytes.Buffer
			err := svc.Plot(ctx, &buf, log, plotting.Format("bmp"))

			Convey("Then the render fails", func() {
				So(errors.Is(err, plotting.ErrUnsupportedFormat), ShouldBeTrue)
			})
		})

		Convey("When rendering the chart page", func() {
			var buf bytes.Buffer
			err := svc.Chart(ctx, &buf, log)

			Convey("Then an HTML page is written", func() {
				So(err, ShouldBeNil)
				So(buf.String(), ShouldContainSubstring, "Predicted Hits and Bounces")
			})
		})
	})
}
