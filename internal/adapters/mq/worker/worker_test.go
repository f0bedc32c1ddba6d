package worker_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	queue "github.com/okian/careerpulse/internal/adapters/mq/queue"
	worker "github.com/okian/careerpulse/internal/adapters/mq/worker"
	"github.com/smartystreets/goconvey/convey"
)

func TestPool(t *testing.T) {
	convey.Convey("Given a started pool of two workers", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		q := queue.NewInMemoryQueue(queue.WithCapacity(16))
		p := worker.NewPool(2, q)
		p.Start(ctx)

		convey.Convey("When jobs are submitted", func() {
			var ran atomic.Int32
			errBoom := errors.New("boom")

			okErr := p.Submit(ctx, "ok", func(context.Context) error { ran.Add(1); return nil })
			failErr := p.Submit(ctx, "fail", func(context.Context) error { ran.Add(1); return errBoom })
			panicErr := p.Submit(ctx, "panic", func(context.Context) error { panic("disk gone") })

			convey.Convey("Then each caller receives its own result", func() {
				convey.So(okErr, convey.ShouldBeNil)
				convey.So(errors.Is(failErr, errBoom), convey.ShouldBeTrue)
				convey.So(panicErr, convey.ShouldNotBeNil)
				convey.So(ran.Load(), convey.ShouldEqual, 2)
				convey.So(p.Size(), convey.ShouldEqual, 2)
			})
		})

		convey.Convey("When many callers submit concurrently", func() {
			var sum atomic.Int64
			var wg sync.WaitGroup
			for i := 1; i <= 50; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_ = p.Submit(ctx, "add", func(context.Context) error { sum.Add(int64(i)); return nil })
				}()
			}
			wg.Wait()

			convey.Convey("Then every job runs exactly once", func() {
				convey.So(sum.Load(), convey.ShouldEqual, 1275)
			})
		})

		convey.Convey("When the pool is shut down", func() {
			convey.So(p.Shutdown(context.Background()), convey.ShouldBeNil)
			err := p.Submit(ctx, "late", func(context.Context) error { return nil })

			convey.Convey("Then new work is rejected as closed", func() {
				convey.So(errors.Is(err, queue.ErrQueueClosed), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the caller gives up before the job finishes", func() {
			waitCtx, stop := context.WithTimeout(ctx, 20*time.Millisecond)
			defer stop()
			release := make(chan struct{})
			err := p.Submit(waitCtx, "slow", func(context.Context) error { <-release; return nil })
			close(release)

			convey.Convey("Then Submit returns the context error", func() {
				convey.So(errors.Is(err, context.DeadlineExceeded), convey.ShouldBeTrue)
			})
		})
	})

	convey.Convey("Given a pool whose queue is full", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(1))
		p := worker.NewPool(1, q)
		// Not started: the first job occupies the only slot.
		go func() { _ = p.Submit(context.Background(), "parked", func(context.Context) error { return nil }) }()
		for q.Len(context.Background()) == 0 {
			time.Sleep(time.Millisecond)
		}

		err := p.Submit(context.Background(), "overflow", func(context.Context) error { return nil })

		convey.Convey("Then the submit fails fast with ErrQueueFull", func() {
			convey.So(errors.Is(err, queue.ErrQueueFull), convey.ShouldBeTrue)
		})

		p.Start(context.Background())
		convey.So(p.Shutdown(context.Background()), convey.ShouldBeNil)
	})
}

func TestWorkerShutdown(t *testing.T) {
	convey.Convey("Given a running worker", t, func() {
		q := queue.NewInMemoryQueue()
		w := worker.NewInMemoryWorker(q, worker.WithName("solo"))
		go w.Run(context.Background())

		convey.Convey("Then shutdown returns once the loop exits", func() {
			convey.So(w.Shutdown(context.Background()), convey.ShouldBeNil)
		})
	})
}
