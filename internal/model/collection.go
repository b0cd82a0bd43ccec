package model

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

var ErrUnknownChecklist = errors.New("model: unknown checklist")

type TaskView struct {
	Label string
	Done  bool
}

// ChecklistView is a copy of one checklist taken under the collection lock.
type ChecklistView struct {
	Name      string
	Schedule  string
	Tasks     []TaskView
	State     LifecycleState
	NextReset *time.Time
	ResetIn   time.Duration
	HasReset  bool
	Done      int
	Total     int
}

// Collection is the state shared by the lifecycle engine and the UI. One
// mutex guards every checklist in it, so no reader sees a half-reset list.
type Collection struct {
	mu    sync.Mutex
	lists []*Checklist
	index map[string]int
}

func NewCollection(lists []*Checklist) (*Collection, error) {
	c := &Collection{
		lists: make([]*Checklist, 0, len(lists)),
		index: make(map[string]int, len(lists)),
	}
	for _, cl := range lists {
		if cl == nil {
			return nil, errors.New("model: nil checklist")
		}
		if err := cl.Validate(); err != nil {
			return nil, err
		}
		if _, dup := c.index[cl.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate checklist %q", ErrInvalidName, cl.Name)
		}
		c.index[cl.Name] = len(c.lists)
		c.lists = append(c.lists, cl)
	}
	return c, nil
}

func (c *Collection) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.lists)
}

func (c *Collection) Names() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.lists))
	for _, cl := range c.lists {
		out = append(out, cl.Name)
	}
	return out
}

// Update runs fn with exclusive access to every checklist. fn must not keep
// the pointers after it returns.
func (c *Collection) Update(fn func(lists []*Checklist) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return fn(c.lists)
}

// Get returns a deep copy of the named checklist.
func (c *Collection) Get(name string) (*Checklist, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i, ok := c.index[name]
	if !ok {
		return nil, false
	}
	return c.lists[i].Clone(), true
}

func (c *Collection) Snapshot(now time.Time) []ChecklistView {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]ChecklistView, 0, len(c.lists))
	for _, cl := range c.lists {
		out = append(out, viewOf(cl, now))
	}
	return out
}

func (c *Collection) Toggle(name, label string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cl, err := c.lookup(name)
	if err != nil {
		return false, err
	}
	return cl.Toggle(label)
}

func (c *Collection) SetDone(name, label string, done bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cl, err := c.lookup(name)
	if err != nil {
		return err
	}
	return cl.SetDone(label, done)
}

// SetAll sets every flag of one checklist. Unlike a reset it leaves the
// pending reset instant alone.
func (c *Collection) SetAll(name string, done bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cl, err := c.lookup(name)
	if err != nil {
		return err
	}
	for label := range cl.Tasks {
		cl.Tasks[label] = done
	}
	return nil
}

func (c *Collection) lookup(name string) (*Checklist, error) {
	i, ok := c.index[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownChecklist, name)
	}
	return c.lists[i], nil
}

func viewOf(cl *Checklist, now time.Time) ChecklistView {
	v := ChecklistView{
		Name:     cl.Name,
		Schedule: cl.Schedule.String(),
		Tasks:    make([]TaskView, 0, len(cl.Order)),
		State:    cl.State(now),
	}
	for _, label := range cl.Order {
		if done, ok := cl.Tasks[label]; ok {
			v.Tasks = append(v.Tasks, TaskView{Label: label, Done: done})
		}
	}
	if cl.NextReset != nil {
		at := *cl.NextReset
		v.NextReset = &at
	}
	v.ResetIn, v.HasReset = cl.ResetIn(now)
	v.Done, v.Total = cl.Progress()
	return v
}
