package scheduling

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/noah-isme/spa-scheduler-api/internal/models"
	"github.com/noah-isme/spa-scheduler-api/pkg/clock"
)

// ResourceKind names the two resource families that cannot be double-booked.
type ResourceKind string

const (
	ResourceStaff ResourceKind = "staff"
	ResourceRoom  ResourceKind = "room"

	// ResourceBooking keys only serialise writers of one booking; they are
	// never stored in the index.
	ResourceBooking ResourceKind = "booking"
)

// ResourceKey identifies one resource on one date.
type ResourceKey struct {
	Kind ResourceKind
	ID   int64
	Date clock.Date
}

// StaffKey builds the key for a staff member's day.
func StaffKey(id int64, date clock.Date) ResourceKey {
	return ResourceKey{Kind: ResourceStaff, ID: id, Date: date}
}

// RoomKey builds the key for a room's day.
func RoomKey(id int64, date clock.Date) ResourceKey {
	return ResourceKey{Kind: ResourceRoom, ID: id, Date: date}
}

// BookingKey builds the lock key for a single booking.
func BookingKey(id int64, date clock.Date) ResourceKey {
	return ResourceKey{Kind: ResourceBooking, ID: id, Date: date}
}

// String renders kind:id:date, used for lock and cache names.
func (k ResourceKey) String() string {
	return fmt.Sprintf("%s:%d:%s", k.Kind, k.ID, k.Date)
}

// Less orders keys by (kind, id, date); locks are always taken in this order.
func (k ResourceKey) Less(other ResourceKey) bool {
	if k.Kind != other.Kind {
		return k.Kind < other.Kind
	}
	if k.ID != other.ID {
		return k.ID < other.ID
	}
	return k.Date < other.Date
}

// Interval is one committed booking window held by a resource.
type Interval struct {
	BookingID int64
	Start     clock.Time
	End       clock.Time
}

// bucket is an immutable snapshot of one resource-day. Entries are sorted by
// start; maxEnd[i] is the largest end among entries[0..i], which keeps queries
// at O(log n + k) even if persisted data ever contained overlaps.
type bucket struct {
	entries []Interval
	maxEnd  []clock.Time
}

func newBucket(entries []Interval) *bucket {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Start != entries[j].Start {
			return entries[i].Start < entries[j].Start
		}
		return entries[i].BookingID < entries[j].BookingID
	})
	maxEnd := make([]clock.Time, len(entries))
	var running clock.Time
	for i, e := range entries {
		if i == 0 || e.End > running {
			running = e.End
		}
		maxEnd[i] = running
	}
	return &bucket{entries: entries, maxEnd: maxEnd}
}

func (b *bucket) overlapping(start, end clock.Time, exclude int64) []Interval {
	if b == nil || len(b.entries) == 0 || start >= end {
		return nil
	}
	// Everything at or after hi starts at/after end and cannot overlap.
	hi := sort.Search(len(b.entries), func(i int) bool { return b.entries[i].Start >= end })
	var out []Interval
	for i := hi - 1; i >= 0 && b.maxEnd[i] > start; i-- {
		e := b.entries[i]
		if e.BookingID == exclude {
			continue
		}
		if clock.Overlaps(e.Start, e.End, start, end) {
			out = append(out, e)
		}
	}
	return out
}

// ConflictIndex holds committed intervals per resource-day.
//
// Readers never block: each resource-day is an atomically swapped immutable
// bucket. Writers copy-on-write under an internal mutex; callers that need
// check-then-write atomicity serialise on the resource-day via a Locker.
type ConflictIndex struct {
	mu      sync.Mutex
	buckets sync.Map // ResourceKey -> *atomic.Pointer[bucket]
	size    atomic.Int64
}

// NewConflictIndex returns an empty index.
func NewConflictIndex() *ConflictIndex {
	return &ConflictIndex{}
}

func (ix *ConflictIndex) load(key ResourceKey) *bucket {
	ref, ok := ix.buckets.Load(key)
	if !ok {
		return nil
	}
	return ref.(*atomic.Pointer[bucket]).Load()
}

func (ix *ConflictIndex) ref(key ResourceKey) *atomic.Pointer[bucket] {
	ref, _ := ix.buckets.LoadOrStore(key, &atomic.Pointer[bucket]{})
	return ref.(*atomic.Pointer[bucket])
}

// HasConflict reports whether any interval other than excludeBookingID
// overlaps [start,end) for the resource-day.
func (ix *ConflictIndex) HasConflict(key ResourceKey, start, end clock.Time, excludeBookingID int64) bool {
	return len(ix.load(key).overlapping(start, end, excludeBookingID)) > 0
}

// Conflicts returns the overlapping intervals ordered by start.
func (ix *ConflictIndex) Conflicts(key ResourceKey, start, end clock.Time, excludeBookingID int64) []Interval {
	found := ix.load(key).overlapping(start, end, excludeBookingID)
	for i, j := 0, len(found)-1; i < j; i, j = i+1, j-1 {
		found[i], found[j] = found[j], found[i]
	}
	return found
}

// Intervals returns a copy of the intervals held for the resource-day.
func (ix *ConflictIndex) Intervals(key ResourceKey) []Interval {
	b := ix.load(key)
	if b == nil {
		return nil
	}
	return append([]Interval(nil), b.entries...)
}

// Insert records a booking window, replacing any previous entry for it.
func (ix *ConflictIndex) Insert(key ResourceKey, bookingID int64, start, end clock.Time) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ref := ix.ref(key)
	current := ref.Load()
	next := make([]Interval, 0, 1+lenOf(current))
	if current != nil {
		for _, e := range current.entries {
			if e.BookingID == bookingID {
				ix.size.Add(-1)
				continue
			}
			next = append(next, e)
		}
	}
	next = append(next, Interval{BookingID: bookingID, Start: start, End: end})
	ix.size.Add(1)
	ref.Store(newBucket(next))
}

// Remove drops a booking from the resource-day and reports whether it was present.
func (ix *ConflictIndex) Remove(key ResourceKey, bookingID int64) bool {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	current := ix.load(key)
	if current == nil {
		return false
	}
	next := make([]Interval, 0, len(current.entries))
	removed := false
	for _, e := range current.entries {
		if e.BookingID == bookingID {
			removed = true
			continue
		}
		next = append(next, e)
	}
	if !removed {
		return false
	}
	ix.size.Add(-1)
	ix.ref(key).Store(newBucket(next))
	return true
}

// Replace swaps the full content of one resource-day, used when reloading
// it from persisted bookings.
func (ix *ConflictIndex) Replace(key ResourceKey, intervals []Interval) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ref := ix.ref(key)
	ix.size.Add(int64(len(intervals) - lenOf(ref.Load())))
	ref.Store(newBucket(append([]Interval(nil), intervals...)))
}

// Reset clears the index and loads the given resource-days.
func (ix *ConflictIndex) Reset(content map[ResourceKey][]Interval) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.buckets.Range(func(k, _ interface{}) bool {
		ix.buckets.Delete(k)
		return true
	})
	var total int64
	for key, intervals := range content {
		ref := &atomic.Pointer[bucket]{}
		ref.Store(newBucket(append([]Interval(nil), intervals...)))
		ix.buckets.Store(key, ref)
		total += int64(len(intervals))
	}
	ix.size.Store(total)
}

// Size returns the number of intervals held across all resource-days.
func (ix *ConflictIndex) Size() int {
	return int(ix.size.Load())
}

func lenOf(b *bucket) int {
	if b == nil {
		return 0
	}
	return len(b.entries)
}

// IntervalsFromBookings groups the assigned, non-cancelled bookings into
// staff and room resource-days, ready for Reset.
func IntervalsFromBookings(bookings []models.Booking) map[ResourceKey][]Interval {
	out := make(map[ResourceKey][]Interval)
	for _, b := range bookings {
		if b.Status == models.BookingStatusCancelled {
			continue
		}
		iv := Interval{BookingID: b.ID, Start: b.StartTime, End: b.EndTime}
		if b.AssignedStaffID != nil {
			key := StaffKey(*b.AssignedStaffID, b.SlotDate)
			out[key] = append(out[key], iv)
		}
		if b.AssignedRoomID != nil {
			key := RoomKey(*b.AssignedRoomID, b.SlotDate)
			out[key] = append(out[key], iv)
		}
	}
	return out
}
