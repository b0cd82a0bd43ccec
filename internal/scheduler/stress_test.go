package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/makerio90/checklist/internal/model"
)

func TestEngineStressConcurrentTogglesAndTicks(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2024, 1, 2, 12, 0, 0, 0, time.UTC))
	store := newMemStore()

	labels := make([]string, 32)
	for i := range labels {
		labels[i] = fmt.Sprintf("task-%02d", i)
	}
	sched := mustSchedule(t, "0 0 * * *")
	bulk, err := model.NewChecklist(model.Definition{Name: "bulk", Schedule: sched, Todo: labels})
	require.NoError(t, err)
	toggled, err := model.NewChecklist(model.Definition{Name: "toggled", Schedule: sched, Todo: labels})
	require.NoError(t, err)
	engine, coll := newTestEngine(t, clock, store, []*model.Checklist{bulk, toggled}, WithEventBuffer(1))

	const cycles = 200
	stop := make(chan struct{})
	var wg sync.WaitGroup
	var partial atomic.Int64

	wg.Add(3)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			if err := coll.SetAll("bulk", true); err != nil {
				t.Errorf("set all: %v", err)
				return
			}
		}
	}()
	go func() {
		defer wg.Done()
		i := 0
		for {
			select {
			case <-stop:
				return
			default:
			}
			if _, err := coll.Toggle("toggled", labels[i%len(labels)]); err != nil {
				t.Errorf("toggle: %v", err)
				return
			}
			i++
		}
	}()
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			for _, view := range coll.Snapshot(clock.Now()) {
				if view.Name == "bulk" && view.Done != 0 && view.Done != view.Total {
					partial.Add(1)
				}
			}
		}
	}()

	for i := 0; i < cycles; i++ {
		require.NoError(t, engine.Tick(context.Background()))
		clock.Advance(24 * time.Hour)
		require.NoError(t, engine.Tick(context.Background()))
	}
	close(stop)
	wg.Wait()

	require.Zero(t, partial.Load(), "observed a partially reset checklist")
	saves, _ := store.counts()
	require.Equal(t, cycles*2*2, saves)
}
