package battle

import (
	"time"

	"github.com/google/uuid"
)

type Team string

const (
	TeamA Team = "A"
	TeamB Team = "B"
)

func (t Team) Valid() bool {
	return t == TeamA || t == TeamB
}

type Participant struct {
	EventID  uuid.UUID `db:"event_id" json:"event_id"`
	UserID   uuid.UUID `db:"user_id" json:"user_id"`
	Team     Team      `db:"team" json:"team"`
	JoinedAt time.Time `db:"joined_at" json:"joined_at"`
}

// BalancedTeam picks the team with fewer members, ties go to A.
func BalancedTeam(countA, countB int) Team {
	if countB < countA {
		return TeamB
	}
	return TeamA
}

// TeamOf returns nil for a nil participant so callers can pass lookups straight through.
func TeamOf(p *Participant) *Team {
	if p == nil {
		return nil
	}
	team := p.Team
	return &team
}
