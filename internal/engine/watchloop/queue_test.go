package watchloop_test

import (
	"context"
	"sync"
	"testing"
	"testing/synctest"

	"github.com/stretchr/testify/assert"

	"go.trai.ch/basis/internal/engine/watchloop"
)

type runLog struct {
	mu   sync.Mutex
	runs []string
}

func (r *runLog) add(task string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, task)
}

func (r *runLog) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.runs...)
}

func TestQueue_CoalescesRequestsWhileRunning(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		q := watchloop.NewQueue()
		var log runLog
		release := make(chan struct{})

		ctx, cancel := context.WithCancel(t.Context())
		done := make(chan struct{})
		go func() {
			defer close(done)
			q.Serve(ctx, func(_ context.Context, task string) {
				log.add(task)
				if len(log.all()) == 1 {
					<-release
				}
			})
		}()

		q.Request("styles")
		synctest.Wait()
		assert.Equal(t, "styles", q.Running())

		// Three requests while running collapse into one pending re-run.
		q.Request("styles")
		q.Request("styles")
		q.Request("styles")
		assert.Equal(t, []string{"styles"}, q.Pending())

		close(release)
		synctest.Wait()

		assert.Equal(t, []string{"styles", "styles"}, log.all())
		assert.Empty(t, q.Running())
		assert.Empty(t, q.Pending())

		cancel()
		<-done
	})
}

func TestQueue_RunsTasksInRequestOrder(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		q := watchloop.NewQueue()
		var log runLog

		q.Request("styles")
		q.Request("scripts")
		q.Request("styles")

		ctx, cancel := context.WithCancel(t.Context())
		done := make(chan struct{})
		go func() {
			defer close(done)
			q.Serve(ctx, func(_ context.Context, task string) { log.add(task) })
		}()
		synctest.Wait()

		assert.Equal(t, []string{"styles", "scripts"}, log.all())

		cancel()
		<-done
	})
}
