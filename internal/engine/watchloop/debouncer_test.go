package watchloop_test

import (
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.trai.ch/basis/internal/engine/watchloop"
)

type batches struct {
	mu  sync.Mutex
	got [][]string
}

func (b *batches) add(paths []string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.got = append(b.got, paths)
}

func (b *batches) all() [][]string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.got
}

func TestDebouncer_CoalescesAndDeduplicates(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		var b batches
		d := watchloop.NewDebouncer(time.Second, b.add)

		d.Add("src/sass/_b.scss")
		d.Add("src/sass/_a.scss")
		d.Add("src/sass/_b.scss")

		time.Sleep(1500 * time.Millisecond)
		synctest.Wait()

		require.Len(t, b.all(), 1)
		assert.Equal(t, []string{"src/sass/_a.scss", "src/sass/_b.scss"}, b.all()[0])
	})
}

func TestDebouncer_ChangeResetsTimer(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		var b batches
		d := watchloop.NewDebouncer(time.Second, b.add)

		d.Add("a.scss")
		time.Sleep(800 * time.Millisecond)
		d.Add("b.scss")
		time.Sleep(800 * time.Millisecond)
		synctest.Wait()
		assert.Empty(t, b.all())

		time.Sleep(300 * time.Millisecond)
		synctest.Wait()
		assert.Equal(t, [][]string{{"a.scss", "b.scss"}}, b.all())
	})
}

func TestDebouncer_Flush(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		var b batches
		d := watchloop.NewDebouncer(time.Second, b.add)

		d.Flush()
		assert.Empty(t, b.all())

		d.Add("a.scss")
		d.Flush()
		assert.Equal(t, [][]string{{"a.scss"}}, b.all())

		// The original timer must not fire a second batch.
		time.Sleep(2 * time.Second)
		synctest.Wait()
		assert.Len(t, b.all(), 1)
	})
}

func TestDebouncer_Stop(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		var b batches
		d := watchloop.NewDebouncer(time.Second, b.add)

		d.Add("a.scss")
		d.Stop()
		d.Add("b.scss")

		time.Sleep(2 * time.Second)
		synctest.Wait()
		assert.Empty(t, b.all())
	})
}

func TestDebouncer_NilCallback(t *testing.T) {
	synctest.Test(t, func(_ *testing.T) {
		d := watchloop.NewDebouncer(50*time.Millisecond, nil)
		d.Add("a.scss")
		time.Sleep(100 * time.Millisecond)
		synctest.Wait()
		d.Flush()
	})
}
