package battle

import (
	"time"

	"github.com/AdamBeresnev/art-battle/internal/apperr"
	"github.com/google/uuid"
)

// CheckInteraction returns the reason actor may not like or attack an artwork owned by owner, or nil.
// A missing team on either side does not block the interaction.
func CheckInteraction(actor, owner uuid.UUID, actorTeam, ownerTeam *Team, event *Event) error {
	if event == nil || !event.IsOngoing() {
		return apperr.NotEligible(apperr.CodeEventNotOngoing, "The event is not running")
	}
	if actor == owner {
		return apperr.NotEligible(apperr.CodeSelfInteraction, "You cannot interact with your own artwork")
	}
	if actorTeam != nil && ownerTeam != nil && *actorTeam == *ownerTeam {
		return apperr.NotEligible(apperr.CodeSameTeam, "You cannot interact with your own team's artwork")
	}
	return nil
}

func CanInteract(actor, owner uuid.UUID, actorTeam, ownerTeam *Team, event *Event) bool {
	return CheckInteraction(actor, owner, actorTeam, ownerTeam, event) == nil
}

// CheckUpload returns the reason the participant may not submit artwork at now, or nil.
func CheckUpload(participant *Participant, event *Event, now time.Time) error {
	if event == nil || !event.IsOngoing() {
		return apperr.NotEligible(apperr.CodeEventNotOngoing, "The event is not running")
	}
	if participant == nil {
		return apperr.NotEligible(apperr.CodeNotParticipant, "Join the event before submitting artwork")
	}
	if event.MidwayTime != nil && now.Before(*event.MidwayTime) {
		return apperr.NotEligible(apperr.CodeUploadNotOpen, "Submissions open at the midway point")
	}
	return nil
}

func CanUploadArtwork(participant *Participant, event *Event, now time.Time) bool {
	return CheckUpload(participant, event, now) == nil
}
