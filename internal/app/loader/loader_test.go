package loader_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dock108/scrolldown/internal/app/loader"
	"github.com/dock108/scrolldown/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

// fakeFetcher serves canned responses per moment id. When gated, each fetch
// blocks until released through its channel.
type fakeFetcher struct {
	mu        sync.Mutex
	responses map[string][]model.Event
	errs      map[string]error
	gates     map[string]chan struct{}
	started   chan string
	calls     atomic.Int32
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		responses: map[string][]model.Event{},
		errs:      map[string]error{},
		gates:     map[string]chan struct{}{},
		started:   make(chan string, 16),
	}
}

func (f *fakeFetcher) gate(id string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.gates[id] = ch
	return ch
}

func (f *fakeFetcher) FetchMomentPbp(ctx context.Context, id model.ID) ([]model.Event, error) {
	f.calls.Add(1)
	f.mu.Lock()
	gate := f.gates[id.String()]
	events, err := f.responses[id.String()], f.errs[id.String()]
	f.mu.Unlock()

	f.started <- id.String()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return events, err
}

func moment(id int64, period int, clock string) model.Moment {
	return model.Moment{ID: model.IntID(id), Period: model.Ptr(period), GameClock: model.Ptr(clock)}
}

func elapsed(id int64, v float64) model.Event {
	return model.Event{ID: model.IntID(id), ElapsedSeconds: model.Ptr(v)}
}

func ids(events []model.Event) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.ID.String()
	}
	return out
}

func TestLoaderLoad(t *testing.T) {
	ctx := context.Background()

	Convey("Given a loader over a fetcher with events for moment 1", t, func() {
		f := newFakeFetcher()
		f.responses["1"] = []model.Event{elapsed(2, 90), elapsed(1, 0), elapsed(3, 30)}
		var published []loader.State
		l := loader.New(f, loader.WithObserver(func(s loader.State) { published = append(published, s) }))

		Convey("When nothing has been loaded", func() {
			st := l.State()

			Convey("Then the state should be idle and empty", func() {
				So(st.MomentID.IsZero(), ShouldBeTrue)
				So(st.Events, ShouldBeEmpty)
				So(st.IsLoading, ShouldBeFalse)
				So(st.ErrorMessage, ShouldBeEmpty)
			})
		})

		Convey("When the moment is loaded", func() {
			st := l.Load(ctx, moment(1, 1, "11:00"))

			Convey("Then the ordered, filtered events should be published", func() {
				So(ids(st.Events), ShouldResemble, []string{"1", "3"})
				So(st.IsLoading, ShouldBeFalse)
				So(st.ErrorMessage, ShouldBeEmpty)
				So(st.MomentID.String(), ShouldEqual, "1")
			})

			Convey("Then observers should see loading then loaded", func() {
				So(len(published), ShouldEqual, 2)
				So(published[0].IsLoading, ShouldBeTrue)
				So(published[1].IsLoading, ShouldBeFalse)
			})

			Convey("And the same moment is loaded again", func() {
				again := l.Load(ctx, model.Moment{ID: model.StringID("1")})

				Convey("Then no second fetch should happen", func() {
					So(f.calls.Load(), ShouldEqual, 1)
					So(ids(again.Events), ShouldResemble, []string{"1", "3"})
					So(len(published), ShouldEqual, 2)
				})
			})
		})

		Convey("When the returned state is modified", func() {
			st := l.Load(ctx, moment(1, 1, "11:00"))
			st.Events[0] = elapsed(99, 0)

			Convey("Then the loader's state should be unaffected", func() {
				So(ids(l.State().Events), ShouldResemble, []string{"1", "3"})
			})
		})
	})

	Convey("Given a loader whose fetch fails", t, func() {
		f := newFakeFetcher()
		f.responses["1"] = []model.Event{elapsed(1, 10)}
		f.errs["2"] = errors.New("network unreachable")
		l := loader.New(f)
		l.Load(ctx, moment(1, 1, "0:00"))

		Convey("When a different moment fails to load", func() {
			st := l.Load(ctx, moment(2, 1, "0:00"))

			Convey("Then the error is published verbatim and prior events are kept", func() {
				So(st.ErrorMessage, ShouldEqual, "network unreachable")
				So(st.IsLoading, ShouldBeFalse)
				So(ids(st.Events), ShouldResemble, []string{"1"})
				So(st.MomentID.String(), ShouldEqual, "1")
			})

			Convey("And the same moment is retried after recovery", func() {
				f.mu.Lock()
				delete(f.errs, "2")
				f.responses["2"] = []model.Event{elapsed(5, 1), elapsed(4, 0)}
				f.mu.Unlock()

				retried := l.Load(ctx, moment(2, 1, "0:00"))

				Convey("Then it should fetch again and clear the error", func() {
					So(f.calls.Load(), ShouldEqual, 3)
					So(retried.ErrorMessage, ShouldBeEmpty)
					So(ids(retried.Events), ShouldResemble, []string{"4", "5"})
				})
			})
		})
	})
}

func TestLoaderConcurrency(t *testing.T) {
	ctx := context.Background()

	Convey("Given two loads started in order A then B", t, func() {
		f := newFakeFetcher()
		f.responses["10"] = []model.Event{elapsed(100, 1)}
		f.responses["20"] = []model.Event{elapsed(200, 1)}
		gateA := f.gate("10")
		l := loader.New(f)

		doneA := make(chan loader.State, 1)
		go func() { doneA <- l.Load(ctx, moment(10, 4, "0:00")) }()
		So(<-f.started, ShouldEqual, "10")

		stB := l.Load(ctx, moment(20, 4, "0:00"))

		Convey("When A finishes after B", func() {
			close(gateA)
			<-doneA

			Convey("Then B's result should stay published", func() {
				st := l.State()
				So(stB.ErrorMessage, ShouldBeEmpty)
				So(ids(st.Events), ShouldResemble, []string{"200"})
				So(st.MomentID.String(), ShouldEqual, "20")
				So(st.IsLoading, ShouldBeFalse)
			})
		})
	})

	Convey("Given a load in flight", t, func() {
		f := newFakeFetcher()
		f.responses["7"] = []model.Event{elapsed(1, 1)}
		gate := f.gate("7")
		l := loader.New(f)

		first := make(chan loader.State, 1)
		go func() { first <- l.Load(ctx, moment(7, 1, "0:00")) }()
		So(<-f.started, ShouldEqual, "7")

		Convey("When the same moment is requested again", func() {
			second := make(chan loader.State, 1)
			go func() { second <- l.Load(ctx, moment(7, 1, "0:00")) }()

			So(l.State().IsLoading, ShouldBeTrue)
			close(gate)

			Convey("Then both callers should share one fetch", func() {
				a, b := <-first, <-second
				So(f.calls.Load(), ShouldEqual, 1)
				So(ids(a.Events), ShouldResemble, []string{"1"})
				So(ids(b.Events), ShouldResemble, []string{"1"})
			})
		})

		Convey("When a joining caller's context ends first", func() {
			cctx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
			defer cancel()
			st := l.Load(cctx, moment(7, 1, "0:00"))
			close(gate)
			<-first

			Convey("Then it should return the loading state without waiting", func() {
				So(st.IsLoading, ShouldBeTrue)
				So(f.calls.Load(), ShouldEqual, 1)
			})
		})
	})

	Convey("Given a loaded moment and a pending load of another", t, func() {
		f := newFakeFetcher()
		f.responses["1"] = []model.Event{elapsed(1, 1)}
		f.responses["2"] = []model.Event{elapsed(2, 1)}
		l := loader.New(f)
		l.Load(ctx, moment(1, 1, "0:00"))
		<-f.started

		gate := f.gate("2")
		pending := make(chan loader.State, 1)
		go func() { pending <- l.Load(ctx, moment(2, 1, "0:00")) }()
		So(<-f.started, ShouldEqual, "2")

		Convey("When the loaded moment is selected again", func() {
			st := l.Load(ctx, moment(1, 1, "0:00"))
			close(gate)
			<-pending

			Convey("Then the pending load should be discarded", func() {
				So(st.IsLoading, ShouldBeFalse)
				So(ids(l.State().Events), ShouldResemble, []string{"1"})
				So(l.State().MomentID.String(), ShouldEqual, "1")
				So(f.calls.Load(), ShouldEqual, 2)
			})
		})
	})
}

// flakyFetcher panics on its first call and succeeds afterwards.
type flakyFetcher struct {
	calls atomic.Int32
}

func (f *flakyFetcher) FetchMomentPbp(_ context.Context, _ model.ID) ([]model.Event, error) {
	if f.calls.Add(1) == 1 {
		panic("decoder blew up")
	}
	return []model.Event{elapsed(1, 1)}, nil
}

func TestLoaderFetcherPanic(t *testing.T) {
	ctx := context.Background()

	Convey("Given a fetcher that panics once", t, func() {
		f := &flakyFetcher{}
		l := loader.New(f)

		Convey("When the panicking load unwinds", func() {
			So(func() { l.Load(ctx, moment(3, 1, "0:00")) }, ShouldPanic)

			Convey("Then the loader should not stay loading", func() {
				st := l.State()
				So(st.IsLoading, ShouldBeFalse)
				So(st.ErrorMessage, ShouldNotBeEmpty)
				So(st.MomentID.IsZero(), ShouldBeTrue)
			})

			Convey("And a retry of the same moment should fetch again", func() {
				done := make(chan loader.State, 1)
				go func() { done <- l.Load(ctx, moment(3, 1, "0:00")) }()

				var st loader.State
				select {
				case st = <-done:
				case <-time.After(time.Second):
				}
				So(f.calls.Load(), ShouldEqual, 2)
				So(st.IsLoading, ShouldBeFalse)
				So(st.ErrorMessage, ShouldBeEmpty)
				So(ids(st.Events), ShouldResemble, []string{"1"})
			})
		})
	})
}
