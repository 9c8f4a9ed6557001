package workflow

import (
	"errors"
	"fmt"
	"slices"
)

// Action is a review step requested by staff.
type Action string

const (
	ActionAssign           Action = "assign"
	ActionRecommendApprove Action = "recommend_approve"
	ActionRecommendReject  Action = "recommend_reject"
	ActionRequestInfo      Action = "request_info"
	ActionFinalApprove     Action = "final_approve"
	ActionFinalReject      Action = "final_reject"
)

// Actor is the role performing an action.
type Actor string

const (
	ActorStudent Actor = "STUDENT"
	ActorOSAS    Actor = "OSAS"
	ActorAdmin   Actor = "ADMIN"
)

var (
	ErrTerminal          = errors.New("application already has a final decision")
	ErrLocked            = errors.New("application has already been reviewed by OSAS")
	ErrActorNotAllowed   = errors.New("actor is not allowed to perform this action")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrNoSlotsAvailable  = errors.New("no more slots available for this scholarship")
	ErrUnknownAction     = errors.New("unknown review action")
	ErrUnknownStatus     = errors.New("unknown application status")
)

type rule struct {
	actors []Actor
	from   []Status
	to     Status
}

var osasOpen = []Status{StatusPending, StatusUnderReview, StatusAdditionalInfoRequired}

var rules = map[Action]rule{
	ActionAssign:           {actors: []Actor{ActorOSAS, ActorAdmin}, from: []Status{StatusPending}, to: StatusUnderReview},
	ActionRecommendApprove: {actors: []Actor{ActorOSAS}, from: osasOpen, to: StatusOSASApproved},
	ActionRecommendReject:  {actors: []Actor{ActorOSAS}, from: osasOpen, to: StatusOSASRejected},
	ActionRequestInfo:      {actors: []Actor{ActorOSAS}, from: osasOpen, to: StatusAdditionalInfoRequired},
	ActionFinalApprove:     {actors: []Actor{ActorAdmin}, from: []Status{StatusOSASApproved, StatusOSASRejected}, to: StatusApproved},
	ActionFinalReject:      {actors: []Actor{ActorAdmin}, from: []Status{StatusOSASApproved, StatusOSASRejected}, to: StatusRejected},
}

// IsFinal reports whether the action is an admin decision.
func (a Action) IsFinal() bool {
	return a == ActionFinalApprove || a == ActionFinalReject
}

// IsValid reports whether a is a known action.
func (a Action) IsValid() bool {
	_, ok := rules[a]
	return ok
}

// Transition returns the status reached when actor performs action on an application in from.
//
// Check order: unknown input, terminal state, actor permission, OSAS lock, source state.
func Transition(from Status, action Action, actor Actor) (Status, error) {
	r, ok := rules[action]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
	if !from.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, from)
	}
	if from.IsTerminal() {
		return "", fmt.Errorf("%w: status is %s", ErrTerminal, from)
	}
	if !slices.Contains(r.actors, actor) {
		return "", fmt.Errorf("%w: %s cannot %s", ErrActorNotAllowed, actor, action)
	}
	if actor == ActorOSAS && from.IsOSASDecided() {
		return "", fmt.Errorf("%w: status is %s", ErrLocked, from)
	}
	if !slices.Contains(r.from, from) {
		return "", fmt.Errorf("%w: cannot %s from %s", ErrInvalidTransition, action, from)
	}
	return r.to, nil
}

// CheckSlots refuses an approval once every slot is taken.
func CheckSlots(approvedCount, slots int) error {
	if approvedCount >= slots {
		return fmt.Errorf("%w: %d of %d slots filled", ErrNoSlotsAvailable, approvedCount, slots)
	}
	return nil
}

// RemainingSlots never goes below zero.
func RemainingSlots(slots, approvedCount int) int {
	if approvedCount >= slots {
		return 0
	}
	return slots - approvedCount
}

// ActorFromRole maps a user role to a workflow actor.
func ActorFromRole(role string) (Actor, bool) {
	switch Actor(role) {
	case ActorStudent, ActorOSAS, ActorAdmin:
		return Actor(role), true
	}
	return "", false
}

// ParseRecommendation maps an OSAS form value (approve, reject, request_info) to an action.
func ParseRecommendation(raw string) (Action, error) {
	switch raw {
	case "approve", string(ActionRecommendApprove):
		return ActionRecommendApprove, nil
	case "reject", string(ActionRecommendReject):
		return ActionRecommendReject, nil
	case "request_info", "additional_info_required":
		return ActionRequestInfo, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAction, raw)
}

// ParseDecision maps an admin form value (approve, reject) to an action.
func ParseDecision(raw string) (Action, error) {
	switch raw {
	case "approve", string(ActionFinalApprove):
		return ActionFinalApprove, nil
	case "reject", string(ActionFinalReject):
		return ActionFinalReject, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAction, raw)
}
