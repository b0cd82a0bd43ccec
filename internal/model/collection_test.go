package model

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func TestNewCollectionRejectsDuplicates(t *testing.T) {
	a, _ := NewChecklist(Definition{Name: "daily"})
	b, _ := NewChecklist(Definition{Name: "daily"})
	if _, err := NewCollection([]*Checklist{a, b}); !errors.Is(err, ErrInvalidName) {
		t.Fatalf("expected duplicate name error, got %v", err)
	}
}

func TestCollectionSnapshotOrderAndCopy(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	next := now.Add(90 * time.Minute)
	daily := RestoreChecklist(Definition{Name: "daily", Schedule: mustSchedule(t, "0 0 * * *"), Todo: []string{"dishes", "laundry"}},
		map[string]bool{"dishes": true, "laundry": false}, &next)
	oneoff, _ := NewChecklist(Definition{Name: "oneoff", Todo: []string{"buy milk"}})

	coll, err := NewCollection([]*Checklist{daily, oneoff})
	if err != nil {
		t.Fatalf("new collection: %v", err)
	}
	views := coll.Snapshot(now)
	if len(views) != 2 || views[0].Name != "daily" || views[1].Name != "oneoff" {
		t.Fatalf("unexpected snapshot: %+v", views)
	}
	v := views[0]
	if v.Tasks[0].Label != "dishes" || !v.Tasks[0].Done || v.Tasks[1].Label != "laundry" {
		t.Fatalf("unexpected task views: %+v", v.Tasks)
	}
	if !v.HasReset || v.ResetIn != 90*time.Minute || v.State != StateAwaitingReset {
		t.Fatalf("unexpected reset info: %+v", v)
	}
	if v.Done != 1 || v.Total != 2 || v.Schedule != "0 0 * * *" {
		t.Fatalf("unexpected progress: %+v", v)
	}
	if views[1].HasReset || views[1].State != StateNoSchedule {
		t.Fatalf("unexpected oneoff view: %+v", views[1])
	}

	*v.NextReset = now
	got, _ := coll.Get("daily")
	if !got.NextReset.Equal(next) {
		t.Fatal("snapshot aliases collection state")
	}
}

func TestCollectionToggleSetAll(t *testing.T) {
	daily, _ := NewChecklist(Definition{Name: "daily", Todo: []string{"dishes", "laundry"}})
	coll, _ := NewCollection([]*Checklist{daily})

	done, err := coll.Toggle("daily", "dishes")
	if err != nil || !done {
		t.Fatalf("toggle: done=%v err=%v", done, err)
	}
	if err := coll.SetAll("daily", true); err != nil {
		t.Fatalf("set all: %v", err)
	}
	got, _ := coll.Get("daily")
	if !got.Tasks["dishes"] || !got.Tasks["laundry"] {
		t.Fatalf("expected all checked: %#v", got.Tasks)
	}
	if err := coll.SetDone("daily", "laundry", false); err != nil {
		t.Fatalf("set done: %v", err)
	}
	if _, err := coll.Toggle("weekly", "dishes"); !errors.Is(err, ErrUnknownChecklist) {
		t.Fatalf("expected ErrUnknownChecklist, got %v", err)
	}
	if _, err := coll.Toggle("daily", "mop"); !errors.Is(err, ErrUnknownTask) {
		t.Fatalf("expected ErrUnknownTask, got %v", err)
	}
}

func TestCollectionConcurrentAccess(t *testing.T) {
	daily, _ := NewChecklist(Definition{Name: "daily", Todo: []string{"a", "b", "c", "d"}})
	coll, _ := NewCollection([]*Checklist{daily})

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			_, _ = coll.Toggle("daily", "a")
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			_ = coll.Update(func(lists []*Checklist) error {
				lists[0].Reset()
				return nil
			})
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			for _, v := range coll.Snapshot(time.Now()) {
				if v.Total != 4 {
					t.Errorf("unexpected total %d", v.Total)
					return
				}
			}
		}
	}()
	wg.Wait()
}
