package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    Status
		action  Action
		actor   Actor
		want    Status
		wantErr error
	}{
		{"osas assigns pending", StatusPending, ActionAssign, ActorOSAS, StatusUnderReview, nil},
		{"admin assigns pending", StatusPending, ActionAssign, ActorAdmin, StatusUnderReview, nil},
		{"assign only from pending", StatusUnderReview, ActionAssign, ActorOSAS, "", ErrInvalidTransition},
		{"student cannot assign", StatusPending, ActionAssign, ActorStudent, "", ErrActorNotAllowed},

		{"osas approves pending directly", StatusPending, ActionRecommendApprove, ActorOSAS, StatusOSASApproved, nil},
		{"osas rejects under review", StatusUnderReview, ActionRecommendReject, ActorOSAS, StatusOSASRejected, nil},
		{"osas requests info", StatusUnderReview, ActionRequestInfo, ActorOSAS, StatusAdditionalInfoRequired, nil},
		{"osas re-requests info", StatusAdditionalInfoRequired, ActionRequestInfo, ActorOSAS, StatusAdditionalInfoRequired, nil},
		{"osas approves after info", StatusAdditionalInfoRequired, ActionRecommendApprove, ActorOSAS, StatusOSASApproved, nil},
		{"admin cannot recommend", StatusUnderReview, ActionRecommendApprove, ActorAdmin, "", ErrActorNotAllowed},

		{"osas locked after approval", StatusOSASApproved, ActionRecommendReject, ActorOSAS, "", ErrLocked},
		{"osas locked after rejection", StatusOSASRejected, ActionRequestInfo, ActorOSAS, "", ErrLocked},
		{"osas cannot assign decided", StatusOSASApproved, ActionAssign, ActorOSAS, "", ErrLocked},

		{"admin approves recommended", StatusOSASApproved, ActionFinalApprove, ActorAdmin, StatusApproved, nil},
		{"admin overrides rejection", StatusOSASRejected, ActionFinalApprove, ActorAdmin, StatusApproved, nil},
		{"admin rejects recommended", StatusOSASApproved, ActionFinalReject, ActorAdmin, StatusRejected, nil},
		{"osas cannot finalize", StatusOSASApproved, ActionFinalApprove, ActorOSAS, "", ErrActorNotAllowed},
		{"admin cannot skip osas", StatusPending, ActionFinalApprove, ActorAdmin, "", ErrInvalidTransition},
		{"admin cannot decide under review", StatusUnderReview, ActionFinalReject, ActorAdmin, "", ErrInvalidTransition},

		{"approved is terminal", StatusApproved, ActionFinalReject, ActorAdmin, "", ErrTerminal},
		{"rejected is terminal for osas", StatusRejected, ActionRecommendApprove, ActorOSAS, "", ErrTerminal},
		{"unknown action", StatusPending, Action("escalate"), ActorOSAS, "", ErrUnknownAction},
		{"unknown status", Status("draft"), ActionAssign, ActorOSAS, "", ErrUnknownStatus},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Transition(tt.from, tt.action, tt.actor)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTerminalStatesRejectEveryAction(t *testing.T) {
	for _, from := range []Status{StatusApproved, StatusRejected} {
		for action := range rules {
			for _, actor := range []Actor{ActorStudent, ActorOSAS, ActorAdmin} {
				_, err := Transition(from, action, actor)
				assert.ErrorIs(t, err, ErrTerminal, "%s %s by %s", from, action, actor)
			}
		}
	}
}

func TestOnlyAdminReachesFinalStates(t *testing.T) {
	for _, from := range AllStatuses() {
		for action := range rules {
			for _, actor := range []Actor{ActorStudent, ActorOSAS} {
				to, err := Transition(from, action, actor)
				if err != nil {
					continue
				}
				assert.False(t, to.IsTerminal(), "%s reached %s via %s", actor, to, action)
			}
		}
	}
}

func TestCheckSlots(t *testing.T) {
	assert.NoError(t, CheckSlots(0, 1))
	assert.NoError(t, CheckSlots(4, 5))
	assert.ErrorIs(t, CheckSlots(5, 5), ErrNoSlotsAvailable)
	assert.ErrorIs(t, CheckSlots(6, 5), ErrNoSlotsAvailable)

	assert.Equal(t, 3, RemainingSlots(5, 2))
	assert.Equal(t, 0, RemainingSlots(5, 5))
	assert.Equal(t, 0, RemainingSlots(2, 7))
}

func TestStatusPredicates(t *testing.T) {
	assert.True(t, CanStudentEdit(StatusPending))
	assert.True(t, CanStudentEdit(StatusAdditionalInfoRequired))
	assert.False(t, CanStudentEdit(StatusUnderReview))
	assert.False(t, CanStudentEdit(StatusOSASApproved))
	assert.False(t, CanStudentEdit(StatusApproved))

	assert.True(t, StatusOSASApproved.IsOSASDecided())
	assert.True(t, StatusOSASRejected.IsOSASDecided())
	assert.False(t, StatusApproved.IsOSASDecided())

	assert.True(t, StatusRejected.IsTerminal())
	assert.False(t, StatusPending.IsTerminal())

	assert.True(t, CanOSASReview(StatusAdditionalInfoRequired))
	assert.False(t, CanOSASReview(StatusOSASRejected))
	assert.True(t, CanAdminDecide(StatusOSASRejected))

	_, err := ParseStatus("bogus")
	assert.ErrorIs(t, err, ErrUnknownStatus)
	s, err := ParseStatus("under_review")
	require.NoError(t, err)
	assert.Equal(t, "Under Review by OSAS", s.Label())
}

func TestParseFormValues(t *testing.T) {
	a, err := ParseRecommendation("approve")
	require.NoError(t, err)
	assert.Equal(t, ActionRecommendApprove, a)

	a, err = ParseRecommendation("request_info")
	require.NoError(t, err)
	assert.Equal(t, ActionRequestInfo, a)

	_, err = ParseRecommendation("final_approve")
	assert.ErrorIs(t, err, ErrUnknownAction)

	a, err = ParseDecision("reject")
	require.NoError(t, err)
	assert.Equal(t, ActionFinalReject, a)

	_, err = ParseDecision("request_info")
	assert.ErrorIs(t, err, ErrUnknownAction)

	actor, ok := ActorFromRole("OSAS")
	assert.True(t, ok)
	assert.Equal(t, ActorOSAS, actor)
	_, ok = ActorFromRole("INSTRUCTOR")
	assert.False(t, ok)
}
