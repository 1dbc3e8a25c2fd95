package battle

import (
	"testing"
	"time"

	"github.com/AdamBeresnev/art-battle/internal/apperr"
	"github.com/AdamBeresnev/art-battle/internal/utils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestCheckInteraction(t *testing.T) {
	actor := uuid.New()
	owner := uuid.New()
	ongoing := &Event{Status: EventOngoing}
	ended := &Event{Status: EventEnded}

	testCases := []struct {
		name         string
		actor        uuid.UUID
		actorTeam    *Team
		ownerTeam    *Team
		event        *Event
		expectedCode apperr.Code
	}{
		{name: "cross team", actor: actor, actorTeam: utils.Ptr(TeamA), ownerTeam: utils.Ptr(TeamB), event: ongoing},
		{name: "self artwork", actor: owner, actorTeam: utils.Ptr(TeamA), ownerTeam: utils.Ptr(TeamA), event: ongoing, expectedCode: apperr.CodeSelfInteraction},
		{name: "self artwork without teams", actor: owner, event: ongoing, expectedCode: apperr.CodeSelfInteraction},
		{name: "same team", actor: actor, actorTeam: utils.Ptr(TeamB), ownerTeam: utils.Ptr(TeamB), event: ongoing, expectedCode: apperr.CodeSameTeam},
		{name: "event ended", actor: actor, actorTeam: utils.Ptr(TeamA), ownerTeam: utils.Ptr(TeamB), event: ended, expectedCode: apperr.CodeEventNotOngoing},
		{name: "missing event", actor: actor, actorTeam: utils.Ptr(TeamA), ownerTeam: utils.Ptr(TeamB), expectedCode: apperr.CodeEventNotOngoing},
		{name: "actor without team is permitted", actor: actor, ownerTeam: utils.Ptr(TeamB), event: ongoing},
		{name: "owner without team is permitted", actor: actor, actorTeam: utils.Ptr(TeamA), event: ongoing},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := CheckInteraction(tc.actor, owner, tc.actorTeam, tc.ownerTeam, tc.event)
			if tc.expectedCode == "" {
				assert.NoError(t, err)
				assert.True(t, CanInteract(tc.actor, owner, tc.actorTeam, tc.ownerTeam, tc.event))
				return
			}
			assert.Equal(t, apperr.KindNotEligible, apperr.KindOf(err))
			assert.Equal(t, tc.expectedCode, apperr.CodeOf(err))
			assert.False(t, CanInteract(tc.actor, owner, tc.actorTeam, tc.ownerTeam, tc.event))
		})
	}
}

func TestCanUploadArtwork(t *testing.T) {
	now := time.Date(2025, 3, 1, 13, 0, 0, 0, time.UTC)
	participant := &Participant{UserID: uuid.New(), Team: TeamA}
	pastMidway := now.Add(-time.Minute)
	futureMidway := now.Add(time.Minute)

	testCases := []struct {
		name         string
		participant  *Participant
		event        *Event
		expectedCode apperr.Code
	}{
		{name: "ongoing without midway", participant: participant, event: &Event{Status: EventOngoing}},
		{name: "ongoing after midway", participant: participant, event: &Event{Status: EventOngoing, MidwayTime: &pastMidway}},
		{name: "exactly at midway", participant: participant, event: &Event{Status: EventOngoing, MidwayTime: &now}},
		{name: "before midway", participant: participant, event: &Event{Status: EventOngoing, MidwayTime: &futureMidway}, expectedCode: apperr.CodeUploadNotOpen},
		{name: "not a participant", event: &Event{Status: EventOngoing}, expectedCode: apperr.CodeNotParticipant},
		{name: "upcoming event", participant: participant, event: &Event{Status: EventUpcoming}, expectedCode: apperr.CodeEventNotOngoing},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := CheckUpload(tc.participant, tc.event, now)
			if tc.expectedCode == "" {
				assert.NoError(t, err)
				assert.True(t, CanUploadArtwork(tc.participant, tc.event, now))
				return
			}
			assert.Equal(t, tc.expectedCode, apperr.CodeOf(err))
			assert.False(t, CanUploadArtwork(tc.participant, tc.event, now))
		})
	}
}
