package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dock108/scrolldown/internal/adapters/http/api"
	"github.com/dock108/scrolldown/internal/adapters/mq/queue"
	"github.com/dock108/scrolldown/internal/app/loader"
	"github.com/dock108/scrolldown/internal/domain/model"
	"github.com/dock108/scrolldown/internal/domain/timeline"
	"github.com/dock108/scrolldown/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

// mockDependencies records calls and returns canned results.
type mockDependencies struct {
	state      loader.State
	loadErr    error
	lastMoment model.Moment
	sessions   []string

	seen       map[string]bool
	enqueueErr error
	enqueued   []model.ID
}

func (m *mockDependencies) GetStats() map[string]interface{} {
	return map[string]interface{}{"started": true}
}

func (m *mockDependencies) LoadMoment(_ context.Context, session string, mo model.Moment) (loader.State, error) {
	m.sessions = append(m.sessions, session)
	m.lastMoment = mo
	return m.state, m.loadErr
}

func (m *mockDependencies) OrderEvents(_ context.Context, mo model.Moment, events []model.Event) ([]model.Event, timeline.Stats) {
	return timeline.Ordered(mo, events), timeline.Summarize(mo, events)
}

func (m *mockDependencies) SeenAndRecord(_ context.Context, id string) bool {
	if m.seen == nil {
		m.seen = make(map[string]bool)
	}
	if m.seen[id] {
		return true
	}
	m.seen[id] = true
	return false
}

func (m *mockDependencies) Unrecord(_ context.Context, id string) {
	delete(m.seen, id)
}

func (m *mockDependencies) EnqueuePrefetch(_ context.Context, id model.ID) error {
	if m.enqueueErr != nil {
		return m.enqueueErr
	}
	m.enqueued = append(m.enqueued, id)
	return nil
}

func serve(h http.Handler, method, target, body string, header map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestServer_Routes(t *testing.T) {
	Convey("Given an API server", t, func() {
		deps := &mockDependencies{}
		h := api.NewServer(deps).Routes(context.Background())

		Convey("Then health should serve metrics", func() {
			w := serve(h, http.MethodGet, "/healthz", "", nil)
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("Then stats should be JSON", func() {
			w := serve(h, http.MethodGet, "/stats", "", nil)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get("Content-Type"), ShouldContainSubstring, "application/json")
			So(w.Body.String(), ShouldContainSubstring, `"started":true`)
		})

		Convey("Then unknown routes should be not found", func() {
			w := serve(h, http.MethodGet, "/moments", "", nil)
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("Then the wrong method should be rejected", func() {
			w := serve(h, http.MethodGet, "/prefetch", "", nil)
			So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
		})
	})
}

func TestMomentsHandler(t *testing.T) {
	Convey("Given a moments endpoint", t, func() {
		deps := &mockDependencies{state: loader.State{
			MomentID: model.IntID(7),
			Events:   []model.Event{{ID: model.IntID(1)}, {ID: model.IntID(3)}},
		}}
		h := api.NewServer(deps).Routes(context.Background())

		Convey("When requesting a moment with period and clock", func() {
			w := serve(h, http.MethodGet, "/moments/7/pbp?period=2&clock=5:30", "",
				map[string]string{api.SessionHeader: "abc"})

			Convey("Then the session's timeline should be returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get(api.SessionHeader), ShouldEqual, "abc")
				So(deps.sessions, ShouldResemble, []string{"abc"})
				So(*deps.lastMoment.Period, ShouldEqual, 2)
				So(*deps.lastMoment.GameClock, ShouldEqual, "5:30")

				var body types.MomentPbp
				So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
				So(body.MomentID.String(), ShouldEqual, "7")
				So(body.LoadedMomentID.String(), ShouldEqual, "7")
				So(body.TimeLabel, ShouldEqual, "Q2 • 5:30")
				So(len(body.Events), ShouldEqual, 2)
				So(body.IsLoading, ShouldBeFalse)
			})
		})

		Convey("When no session header is sent", func() {
			w := serve(h, http.MethodGet, "/moments/abc-1/pbp", "", nil)

			Convey("Then a session id should be generated and echoed", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get(api.SessionHeader), ShouldNotBeEmpty)
				So(deps.sessions[0], ShouldEqual, w.Header().Get(api.SessionHeader))
				So(deps.lastMoment.ID.Kind(), ShouldEqual, model.KindString)
			})
		})

		Convey("When the period is not a number", func() {
			w := serve(h, http.MethodGet, "/moments/7/pbp?period=first", "", nil)

			Convey("Then the request should be rejected", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(len(deps.sessions), ShouldEqual, 0)
			})
		})

		Convey("When loading another moment failed", func() {
			deps.state.ErrorMessage = "upstream timeout"
			w := serve(h, http.MethodGet, "/moments/8/pbp", "", nil)

			Convey("Then the kept events should be labelled with their own moment", func() {
				So(w.Code, ShouldEqual, http.StatusBadGateway)
				var body types.MomentPbp
				So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
				So(body.ErrorMessage, ShouldEqual, "upstream timeout")
				So(body.MomentID.String(), ShouldEqual, "8")
				So(body.LoadedMomentID.String(), ShouldEqual, "7")
				So(len(body.Events), ShouldEqual, 2)
			})
		})

		Convey("When nothing has loaded yet", func() {
			deps.state = loader.State{Events: []model.Event{}}
			w := serve(h, http.MethodGet, "/moments/7/pbp", "", nil)

			Convey("Then the loaded moment should be omitted", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldNotContainSubstring, "loaded_moment_id")
			})
		})

		Convey("When the service is not running", func() {
			deps.loadErr = errors.New("not started")
			w := serve(h, http.MethodGet, "/moments/7/pbp", "", nil)

			Convey("Then it should be unavailable", func() {
				So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
			})
		})
	})
}

func TestOrderHandler(t *testing.T) {
	Convey("Given an order endpoint", t, func() {
		h := api.NewServer(&mockDependencies{}).Routes(context.Background())

		Convey("When posting a moment and events", func() {
			body := `{"moment":{"id":1,"period":1,"game_clock":"11:00"},` +
				`"events":[{"id":2,"elapsed_seconds":90},{"id":1,"elapsed_seconds":0},{"id":3,"elapsed_seconds":30}]}`
			w := serve(h, http.MethodPost, "/moments/order", body, nil)

			Convey("Then the moment-relative order should be returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var resp types.OrderResponse
				So(json.Unmarshal(w.Body.Bytes(), &resp), ShouldBeNil)
				So(len(resp.Events), ShouldEqual, 2)
				So(resp.Events[0].ID.String(), ShouldEqual, "1")
				So(resp.Events[1].ID.String(), ShouldEqual, "3")
				So(resp.FilteredOut, ShouldEqual, 1)
			})
		})

		Convey("When the body is malformed", func() {
			w := serve(h, http.MethodPost, "/moments/order", `{"moment":`, nil)

			Convey("Then it should be a bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(w.Body.String(), ShouldContainSubstring, "bad_request")
			})
		})
	})
}

func TestPrefetchHandler(t *testing.T) {
	Convey("Given a prefetch endpoint", t, func() {
		deps := &mockDependencies{}
		h := api.NewServer(deps).Routes(context.Background())

		Convey("When a moment is prefetched twice", func() {
			first := serve(h, http.MethodPost, "/prefetch", `{"moment_id":42}`, nil)
			second := serve(h, http.MethodPost, "/prefetch", `{"moment_id":"42"}`, nil)

			Convey("Then the first should be accepted and the second a duplicate", func() {
				So(first.Code, ShouldEqual, http.StatusAccepted)
				So(second.Code, ShouldEqual, http.StatusOK)
				So(second.Body.String(), ShouldContainSubstring, "duplicate")
				So(len(deps.enqueued), ShouldEqual, 1)
			})
		})

		Convey("When the moment id is missing", func() {
			w := serve(h, http.MethodPost, "/prefetch", `{}`, nil)

			Convey("Then it should be a bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the queue is full", func() {
			deps.enqueueErr = fmt.Errorf("prefetch 42: %w", queue.ErrFull)
			w := serve(h, http.MethodPost, "/prefetch", `{"moment_id":42}`, nil)

			Convey("Then it should report backpressure and roll back the record", func() {
				So(w.Code, ShouldEqual, http.StatusTooManyRequests)
				So(w.Body.String(), ShouldContainSubstring, "backpressure")
				So(deps.seen["42"], ShouldBeFalse)
			})
		})

		Convey("When enqueueing fails otherwise", func() {
			deps.enqueueErr = errors.New("not started")
			w := serve(h, http.MethodPost, "/prefetch", `{"moment_id":42}`, nil)

			Convey("Then it should be unavailable", func() {
				So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
				So(deps.seen["42"], ShouldBeFalse)
			})
		})
	})
}
