package api_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/okian/rallyeval/internal/adapters/http/api"
	service "github.com/okian/rallyeval/internal/app"
	"github.com/okian/rallyeval/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	. "github.com/smartystreets/goconvey/convey"
)

const sampleLog = `{
	"10": {"y": 210.5, "action": "hit", "pred_action": "hit"},
	"13": {"y": 190.0, "action": "none", "pred_action": "bounce"},
	"20": {"y": 150.25, "action": "bounce", "pred_action": "none"}
}`

type mockStatsProvider struct {
	stats map[string]interface{}
}

func (m *mockStatsProvider) GetStats() map[string]interface{} {
	return m.stats
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type reportBody struct {
	RunID     string `json:"run_id"`
	Tolerance int    `json:"tolerance"`
	Mode      string `json:"mode"`
	Frames    int    `json:"frames"`
	Table     struct {
		Rows []struct {
			Event     string `json:"event"`
			Correct   int    `json:"correct"`
			Incorrect int    `json:"incorrect"`
		} `json:"rows"`
	} `json:"table"`
	Outcomes []struct {
		Event        string `json:"event"`
		Frame        int    `json:"frame"`
		Correct      bool   `json:"correct"`
		MatchedFrame *int   `json:"matched_frame"`
	} `json:"outcomes"`
}

func newMux(opts ...api.Option) *http.ServeMux {
	svc := service.New(service.WithMetrics(metrics.NewManager(metrics.WithPrometheusRegistry(prometheus.NewRegistry()))))
	server := api.NewServer(svc, &mockStatsProvider{stats: map[string]interface{}{"evaluations": 0}}, opts...)
	mux := http.NewServeMux()
	server.Register(mux)
	return mux
}

func do(mux *http.ServeMux, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decodeError(w *httptest.ResponseRecorder) errorBody {
	var body errorBody
	So(json.NewDecoder(w.Body).Decode(&body), ShouldBeNil)
	return body
}

func TestServer_Register(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		mux := newMux()

		Convey("Then the health endpoint serves metrics", func() {
			w := do(mux, http.MethodGet, "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("Then the stats endpoint returns JSON", func() {
			w := do(mux, http.MethodGet, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get("Content-Type"), ShouldStartWith, "application/json")
			var stats map[string]interface{}
			So(json.NewDecoder(w.Body).Decode(&stats), ShouldBeNil)
			So(stats["evaluations"], ShouldEqual, 0.0)
		})

		Convey("Then the wrong method is not found", func() {
			So(do(mux, http.MethodPost, "/stats", "").Code, ShouldEqual, http.StatusNotFound)
			So(do(mux, http.MethodGet, "/evaluate", "").Code, ShouldEqual, http.StatusNotFound)
			So(do(mux, http.MethodGet, "/plot", "").Code, ShouldEqual, http.StatusNotFound)
			So(do(mux, http.MethodGet, "/chart", "").Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestEvaluateHandler(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		mux := newMux()

		Convey("When posting a well-formed log", func() {
			w := do(mux, http.MethodPost, "/evaluate", sampleLog)

			Convey("Then the report is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var report reportBody
				So(json.NewDecoder(w.Body).Decode(&report), ShouldBeNil)
				So(report.RunID, ShouldNotBeEmpty)
				So(report.Tolerance, ShouldEqual, 5)
				So(report.Mode, ShouldEqual, "any")
				So(report.Frames, ShouldEqual, 3)
				So(report.Table.Rows, ShouldHaveLength, 2)
				So(report.Table.Rows[0].Event, ShouldEqual, "Hit")
				So(report.Table.Rows[0].Correct, ShouldEqual, 1)
				So(report.Table.Rows[1].Event, ShouldEqual, "Bounce")
				So(report.Table.Rows[1].Incorrect, ShouldEqual, 1)
				So(report.Outcomes, ShouldHaveLength, 2)
			})
		})

		Convey("When overriding tolerance and mode", func() {
			w := do(mux, http.MethodPost, "/evaluate?tolerance=7&mode=one_to_one", sampleLog)

			Convey("Then the overrides are applied", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var report reportBody
				So(json.NewDecoder(w.Body).Decode(&report), ShouldBeNil)
				So(report.Tolerance, ShouldEqual, 7)
				So(report.Mode, ShouldEqual, "one_to_one")
				So(report.Table.Rows[1].Correct, ShouldEqual, 1)
			})
		})

		Convey("When the tolerance is negative", func() {
			w := do(mux, http.MethodPost, "/evaluate?tolerance=-1", sampleLog)

			Convey("Then it is rejected as invalid_tolerance", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decodeError(w).Code, ShouldEqual, "invalid_tolerance")
			})
		})

		Convey("When the tolerance is negative and the body is malformed", func() {
			w := do(mux, http.MethodPost, "/evaluate?tolerance=-1", `{"x": {"y": 1, "action": "hit", "pred_action": "hit"}}`)

			Convey("Then the tolerance is reported first", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				body := decodeError(w)
				So(body.Code, ShouldEqual, "invalid_tolerance")
				So(body.Message, ShouldContainSubstring, "-1 frames")
				So(strings.Count(body.Message, "invalid tolerance"), ShouldEqual, 1)
			})
		})

		Convey("When the query is not parseable", func() {
			cases := []struct {
				name   string
				target string
			}{
				{"non-integer tolerance", "/evaluate?tolerance=five"},
				{"unknown mode", "/evaluate?mode=greedy"},
			}
			for _, tc := range cases {
				Convey("Then "+tc.name+" is a bad request", func() {
					w := do(mux, http.MethodPost, tc.target, sampleLog)
					So(w.Code, ShouldEqual, http.StatusBadRequest)
					So(decodeError(w).Code, ShouldEqual, "bad_request")
				})
			}
		})

		Convey("When the body is malformed", func() {
			w := do(mux, http.MethodPost, "/evaluate", `{"3": {"y": 1, "action": "smash", "pred_action": "none"}}`)

			Convey("Then it is rejected as malformed_log", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				body := decodeError(w)
				So(body.Code, ShouldEqual, "malformed_log")
				So(body.Message, ShouldContainSubstring, "smash")
				So(strings.Count(body.Message, "malformed event log"), ShouldEqual, 1)
			})
		})
	})

	Convey("Given a server with a tiny body limit", t, func() {
		mux := newMux(api.WithMaxBodyBytes(16))

		Convey("When posting a larger log", func() {
			w := do(mux, http.MethodPost, "/evaluate", sampleLog)

			Convey("Then the payload is rejected as too large", func() {
				So(w.Code, ShouldEqual, http.StatusRequestEntityTooLarge)
				So(decodeError(w).Code, ShouldEqual, "payload_too_large")
			})
		})
	})
}

func TestRenderHandler(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		mux := newMux()

		Convey("When requesting an SVG plot", func() {
			w := do(mux, http.MethodPost, "/plot?format=svg", sampleLog)

			Convey("Then an SVG image is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldStartWith, "image/svg+xml")
				So(w.Body.String(), ShouldContainSubstring, "<svg")
			})
		})

		Convey("When requesting the default plot format", func() {
			w := do(mux, http.MethodPost, "/plot", sampleLog)

			Convey("Then a PNG image is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldEqual, "image/png")
				So(strings.HasPrefix(w.Body.String(), "\x89PNG"), ShouldBeTrue)
			})
		})

		Convey("When requesting an unsupported format", func() {
			w := do(mux, http.MethodPost, "/plot?format=gif", sampleLog)

			Convey("Then it is a bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decodeError(w).Code, ShouldEqual, "bad_request")
			})
		})

		Convey("When requesting the chart page", func() {
			w := do(mux, http.MethodPost, "/chart", sampleLog)

			Convey("Then an HTML page is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldStartWith, "text/html")
				So(w.Body.String(), ShouldContainSubstring, "Actual Hits and Bounces")
			})
		})

		Convey("When the chart body is malformed", func() {
			w := do(mux, http.MethodPost, "/chart", `[1, 2]`)

			Convey("Then it is rejected as malformed_log", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decodeError(w).Code, ShouldEqual, "malformed_log")
			})
		})
	})
}

func TestKindError(t *testing.T) {
	Convey("Given a wrapped API error", t, func() {
		cause := errors.New("boom")
		err := api.WrapKind("api.test", api.ErrBadRequest, cause)

		Convey("Then both the kind and the cause match", func() {
			So(errors.Is(err, api.ErrBadRequest), ShouldBeTrue)
			So(errors.Is(err, cause), ShouldBeTrue)
			So(err.Error(), ShouldEqual, "api.test: bad request: boom")
		})

		Convey("Then a bare kind error omits the cause", func() {
			So(api.NewKind("api.test", api.ErrRender).Error(), ShouldEqual, "api.test: render failed")
		})
	})
}
