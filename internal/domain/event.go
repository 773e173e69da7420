package domain

import "time"

// Event represents a time-boxed meet-and-greet with a virtual queue.
//
// SlotDuration is the number of minutes allotted per queue position.
// PhysicalLineThreshold is the count of people assumed to be already queued
// in person; they occupy slots ahead of every virtual position.
type Event struct {
	ID                    string    `json:"id"`
	OrganizerID           string    `json:"organizer_id"`
	Title                 string    `json:"title"`
	Description           string    `json:"description"`
	Location              string    `json:"location"`
	Code                  string    `json:"code"`
	StartTime             time.Time `json:"start_time"`
	EndTime               time.Time `json:"end_time"`
	SlotDuration          int       `json:"slot_duration"`
	MaxCapacity           int       `json:"max_capacity"`
	PhysicalLineThreshold int       `json:"physical_line_threshold"`
	Price                 int64     `json:"price"`
	IsActive              bool      `json:"is_active"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

// SlotLength returns the duration of a single queue slot.
func (e *Event) SlotLength() time.Duration {
	return time.Duration(e.SlotDuration) * time.Minute
}

// EstimatedCallTime computes when the holder of the given position is
// expected to be called: startTime plus one slot for every person ahead,
// physical line included.
func (e *Event) EstimatedCallTime(position int) time.Time {
	slotsAhead := position - 1 + e.PhysicalLineThreshold
	return e.StartTime.Add(time.Duration(slotsAhead) * e.SlotLength())
}

// IsPriced reports whether joining the queue requires payment.
func (e *Event) IsPriced() bool {
	return e.Price > 0
}

// EventWithQueueStats extends Event with live queue occupancy.
type EventWithQueueStats struct {
	Event
	QueueCount     int `json:"queue_count"`
	AvailableSlots int `json:"available_slots"`
}
