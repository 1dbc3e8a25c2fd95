package battle

import (
	"time"

	"github.com/google/uuid"
)

type EventStatus string

const (
	EventUpcoming EventStatus = "upcoming"
	EventOngoing  EventStatus = "ongoing"
	EventEnded    EventStatus = "ended"
)

// rank orders statuses so transitions can only move forward
func (s EventStatus) rank() int {
	switch s {
	case EventUpcoming:
		return 0
	case EventOngoing:
		return 1
	case EventEnded:
		return 2
	}
	return -1
}

// Before reports whether s comes earlier in the upcoming -> ongoing -> ended lifecycle than other.
func (s EventStatus) Before(other EventStatus) bool {
	return s.rank() < other.rank()
}

func (s EventStatus) Valid() bool {
	return s.rank() >= 0
}

type Event struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	Title       string     `db:"title" json:"title"`
	Description string     `db:"description" json:"description"`
	Theme       string     `db:"theme" json:"theme"`
	MidwayTheme *string    `db:"midway_theme" json:"midway_theme,omitempty"`
	StartTime   time.Time  `db:"start_time" json:"start_time"`
	EndTime     time.Time  `db:"end_time" json:"end_time"`
	MidwayTime  *time.Time `db:"midway_time" json:"midway_time,omitempty"`
	TeamAName   string     `db:"team_a_name" json:"team_a_name"`
	TeamBName   string     `db:"team_b_name" json:"team_b_name"`

	// Cached value of StatusAt, refreshed by the lifecycle clock
	Status EventStatus `db:"status" json:"status"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// StatusAt derives the status the event should have at the given wall-clock time.
func (e *Event) StatusAt(now time.Time) EventStatus {
	switch {
	case now.Before(e.StartTime):
		return EventUpcoming
	case now.Before(e.EndTime):
		return EventOngoing
	default:
		return EventEnded
	}
}

// CurrentTheme returns the midway theme once the midway time has passed, the main theme otherwise.
func (e *Event) CurrentTheme(now time.Time) string {
	if e.MidwayTime != nil && e.MidwayTheme != nil && !now.Before(*e.MidwayTime) {
		return *e.MidwayTheme
	}
	return e.Theme
}

func (e *Event) IsOngoing() bool {
	return e.Status == EventOngoing
}

func (e *Event) TeamName(team Team) string {
	if team == TeamB {
		return e.TeamBName
	}
	return e.TeamAName
}
