package scheduler

import (
	"errors"
	"sort"
	"time"
)

var (
	ErrPendingFull      = errors.New("pending set is full")
	ErrPendingDuplicate = errors.New("task already pending")
)

// TaskID identifies one dispatched task within a scheduler.
type TaskID uint64

// Pending is a dispatched task that has not been collected yet.
type Pending struct {
	ID         TaskID
	Frame      int64
	Dispatched time.Time
}

// PendingSet is a fixed-capacity arena of pending tasks. Slots are reused
// once their task is collected, so the set never grows past its capacity.
type PendingSet struct {
	slots []Pending
	free  []int
	index map[TaskID]int
}

func NewPendingSet(capacity int) *PendingSet {
	if capacity < 1 {
		capacity = 1
	}

	free := make([]int, capacity)
	for i := range free {
		free[i] = capacity - 1 - i
	}

	return &PendingSet{
		slots: make([]Pending, capacity),
		free:  free,
		index: make(map[TaskID]int, capacity),
	}
}

// Add stores a task in a free slot.
func (ps *PendingSet) Add(id TaskID, frame int64) error {
	if _, exists := ps.index[id]; exists {
		return ErrPendingDuplicate
	}
	if len(ps.free) == 0 {
		return ErrPendingFull
	}

	slot := ps.free[len(ps.free)-1]
	ps.free = ps.free[:len(ps.free)-1]

	ps.slots[slot] = Pending{ID: id, Frame: frame, Dispatched: time.Now()}
	ps.index[id] = slot
	return nil
}

// Remove releases the slot held by id and returns what was stored there.
func (ps *PendingSet) Remove(id TaskID) (Pending, bool) {
	slot, exists := ps.index[id]
	if !exists {
		return Pending{}, false
	}

	entry := ps.slots[slot]
	ps.slots[slot] = Pending{}
	delete(ps.index, id)
	ps.free = append(ps.free, slot)
	return entry, true
}

func (ps *PendingSet) Len() int {
	return len(ps.index)
}

func (ps *PendingSet) Cap() int {
	return len(ps.slots)
}

func (ps *PendingSet) Full() bool {
	return len(ps.free) == 0
}

// Frames returns the frame indices of all pending tasks in ascending order.
func (ps *PendingSet) Frames() []int64 {
	frames := make([]int64, 0, len(ps.index))
	for _, slot := range ps.index {
		frames = append(frames, ps.slots[slot].Frame)
	}
	sort.Slice(frames, func(i, j int) bool { return frames[i] < frames[j] })
	return frames
}
