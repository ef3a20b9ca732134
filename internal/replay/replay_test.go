package replay_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dock108/scrolldown/internal/adapters/http/api"
	"github.com/dock108/scrolldown/internal/adapters/pbp"
	service "github.com/dock108/scrolldown/internal/app"
	"github.com/dock108/scrolldown/internal/domain/model"
	"github.com/dock108/scrolldown/internal/replay"
	"github.com/dock108/scrolldown/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func at(id int64, v float64) model.Event {
	return model.Event{ID: model.IntID(id), ElapsedSeconds: model.Ptr(v)}
}

func TestVerify(t *testing.T) {
	Convey("Given a moment one minute into the game", t, func() {
		m := model.Moment{ID: model.IntID(1), Period: model.Ptr(1), GameClock: model.Ptr("11:00")}

		Convey("Then an ordered timeline with trailing unresolved events should pass", func() {
			So(replay.Verify(m, []model.Event{at(1, 0), at(2, 30), at(3, 30), {ID: model.IntID(4)}}), ShouldBeNil)
		})

		Convey("Then an empty timeline should pass", func() {
			So(replay.Verify(m, nil), ShouldBeNil)
		})

		Convey("Then an event after the moment should fail", func() {
			So(replay.Verify(m, []model.Event{at(1, 0), at(2, 90)}), ShouldNotBeNil)
		})

		Convey("Then a decreasing timeline should fail", func() {
			So(replay.Verify(m, []model.Event{at(1, 30), at(2, 0)}), ShouldNotBeNil)
		})

		Convey("Then a resolved event after an unresolved one should fail", func() {
			So(replay.Verify(m, []model.Event{{ID: model.IntID(4)}, at(1, 0)}), ShouldNotBeNil)
		})
	})

	Convey("Given a moment without a time", t, func() {
		m := model.Moment{ID: model.IntID(1)}

		Convey("Then late events are allowed but order still matters", func() {
			So(replay.Verify(m, []model.Event{at(1, 0), at(2, 2000)}), ShouldBeNil)
			So(replay.Verify(m, []model.Event{at(2, 2000), at(1, 0)}), ShouldNotBeNil)
		})
	})
}

func TestMoments(t *testing.T) {
	Convey("Given generated moments", t, func() {
		moments := replay.Moments(9)

		Convey("Then IDs should be sequential and times valid", func() {
			So(len(moments), ShouldEqual, 9)
			So(moments[0].ID.String(), ShouldEqual, "1")
			So(moments[8].ID.String(), ShouldEqual, "9")
			for _, m := range moments {
				So(*m.Period, ShouldBeBetweenOrEqual, 1, 4)
				So(m.TimeLabel(), ShouldNotBeEmpty)
			}
			So(*moments[1].GameClock, ShouldEqual, "0:37")
		})
	})
}

func TestRun(t *testing.T) {
	Convey("Given a running server backed by mock data", t, func() {
		ctx := context.Background()
		svc := service.New(
			service.WithFetcher(pbp.NewMockFetcher(pbp.WithLatency(0))),
			service.WithWorkerCount(2),
		)
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop(ctx)

		srv := httptest.NewServer(api.NewServer(svc).Routes(ctx))
		defer srv.Close()

		Convey("When replaying moments with prefetch", func() {
			stats, err := replay.Run(ctx, &replay.Config{
				BaseURL:  srv.URL,
				Moments:  12,
				Sessions: 3,
				Prefetch: true,
				Timeout:  5 * time.Second,
			})

			Convey("Then every timeline should verify", func() {
				So(err, ShouldBeNil)
				So(stats.Loaded, ShouldEqual, 12)
				So(stats.LoadFailed, ShouldEqual, 0)
				So(stats.Violations, ShouldEqual, 0)
				So(stats.Prefetched, ShouldEqual, 12)
				So(stats.EventsReceived, ShouldBeGreaterThan, 0)
			})
		})
	})

	Convey("Given no server", t, func() {
		_, err := replay.Run(context.Background(), &replay.Config{
			BaseURL:  "http://127.0.0.1:1",
			Moments:  1,
			Sessions: 1,
			Timeout:  time.Second,
		})

		Convey("Then the health check should fail", func() {
			So(err, ShouldNotBeNil)
			So(errors.Is(err, replay.ErrViolations), ShouldBeFalse)
		})
	})
}
