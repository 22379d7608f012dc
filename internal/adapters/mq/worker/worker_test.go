package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/okian/salesboard/internal/adapters/mq/queue"
	"github.com/okian/salesboard/internal/adapters/mq/worker"
	"github.com/okian/salesboard/internal/domain/model"
	logging "github.com/okian/salesboard/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

type recordingBroadcaster struct {
	mu     sync.Mutex
	frames []model.Frame
	fail   map[string]error
}

func (b *recordingBroadcaster) Broadcast(_ context.Context, f model.Frame) error { //nolint:gocritic // hugeParam: test double
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.fail[f.ID]; err != nil {
		return err
	}
	b.frames = append(b.frames, f)
	return nil
}

func (b *recordingBroadcaster) ids() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.frames))
	for _, f := range b.frames {
		out = append(out, f.ID)
	}
	return out
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func TestDispatcher(t *testing.T) {
	convey.Convey("Given a dispatcher over a frame queue", t, func() {
		_ = logging.Init()

		q := queue.NewInMemoryQueue(queue.WithCapacity(16))
		b := &recordingBroadcaster{fail: map[string]error{}}
		d := worker.NewDispatcher(q, b, worker.WithName("test-dispatcher"))

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go d.Run(ctx)

		convey.Convey("When frames are enqueued", func() {
			for _, id := range []string{"start", "end", "render"} {
				convey.So(q.Enqueue(ctx, model.Frame{ID: id}), convey.ShouldBeNil)
			}

			convey.Convey("Then they are broadcast in order", func() {
				convey.So(waitFor(func() bool { return len(b.ids()) == 3 }), convey.ShouldBeTrue)
				convey.So(b.ids(), convey.ShouldResemble, []string{"start", "end", "render"})
				dispatched, failed := d.Stats()
				convey.So(dispatched, convey.ShouldEqual, 3)
				convey.So(failed, convey.ShouldEqual, 0)
			})
		})

		convey.Convey("When a broadcast fails", func() {
			b.fail["bad"] = errors.New("socket gone")
			convey.So(q.Enqueue(ctx, model.Frame{ID: "bad"}), convey.ShouldBeNil)
			convey.So(q.Enqueue(ctx, model.Frame{ID: "good"}), convey.ShouldBeNil)

			convey.Convey("Then later frames still flow", func() {
				convey.So(waitFor(func() bool { return len(b.ids()) == 1 }), convey.ShouldBeTrue)
				convey.So(b.ids(), convey.ShouldResemble, []string{"good"})
				_, failed := d.Stats()
				convey.So(failed, convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When shutting down", func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Second)
			defer shutdownCancel()

			convey.Convey("Then it stops gracefully and a second call is harmless", func() {
				convey.So(d.Shutdown(shutdownCtx), convey.ShouldBeNil)
				convey.So(d.Shutdown(shutdownCtx), convey.ShouldBeNil)
			})
		})
	})
}

func TestDispatcherQueueClosed(t *testing.T) {
	convey.Convey("Given a closed queue with buffered frames", t, func() {
		_ = logging.Init()

		q := queue.NewInMemoryQueue()
		b := &recordingBroadcaster{fail: map[string]error{}}
		convey.So(q.Enqueue(context.Background(), model.Frame{ID: "last"}), convey.ShouldBeNil)
		convey.So(q.Close(), convey.ShouldBeNil)

		d := worker.NewDispatcher(q, b)

		convey.Convey("When the dispatcher runs", func() {
			done := make(chan struct{})
			go func() {
				d.Run(context.Background())
				close(done)
			}()

			convey.Convey("Then it drains and exits", func() {
				select {
				case <-done:
				case <-time.After(time.Second):
					t.Fatal("dispatcher did not exit")
				}
				convey.So(b.ids(), convey.ShouldResemble, []string{"last"})
			})
		})
	})
}
