package pick

import (
	"errors"
	"fmt"
)

// Pick precondition failures. All of them are recoverable at the caller:
// the ledger remains the source of truth and a refetch resynchronizes.
var (
	// ErrDraftComplete means no unused pick slot exists.
	ErrDraftComplete = errors.New("draft is complete")

	// ErrPlayerAlreadyDrafted means the target player is already bound to a
	// pick. Implies the caller's view of the player pool was stale.
	ErrPlayerAlreadyDrafted = errors.New("player has already been drafted")

	// ErrPlayerIsKeeper means the target player is kept for the active
	// season and excluded from the draft pool.
	ErrPlayerIsKeeper = errors.New("player is a keeper and cannot be drafted")

	// ErrPickAlreadyUsed means another client won the race for the current
	// pick slot. Implies the caller's view of the ledger was stale.
	ErrPickAlreadyUsed = errors.New("pick has already been used")

	// ErrPickNotFound means the pick id does not exist in the ledger.
	ErrPickNotFound = errors.New("pick not found")

	// ErrTeamNotFound means the target team of a trade does not exist.
	ErrTeamNotFound = errors.New("team not found")
)

// NotYourTurnError is returned when the caller's team is not on the clock.
// OnClockTeam names the team that is, for display.
type NotYourTurnError struct {
	OnClockTeam string
}

func (e *NotYourTurnError) Error() string {
	return fmt.Sprintf("not your turn: %s is on the clock", e.OnClockTeam)
}

// Wire codes for pick failures, shared by the HTTP handlers and the client.
const (
	CodeDraftComplete        = "draft_complete"
	CodeNotYourTurn          = "not_your_turn"
	CodePlayerAlreadyDrafted = "player_already_drafted"
	CodePlayerIsKeeper       = "player_is_keeper"
	CodePickAlreadyUsed      = "pick_already_used"
)

// Code maps a pick error to its wire code. Empty string means the error is
// not a pick precondition failure.
func Code(err error) string {
	var notYourTurn *NotYourTurnError
	switch {
	case errors.Is(err, ErrDraftComplete):
		return CodeDraftComplete
	case errors.As(err, &notYourTurn):
		return CodeNotYourTurn
	case errors.Is(err, ErrPlayerAlreadyDrafted):
		return CodePlayerAlreadyDrafted
	case errors.Is(err, ErrPlayerIsKeeper):
		return CodePlayerIsKeeper
	case errors.Is(err, ErrPickAlreadyUsed):
		return CodePickAlreadyUsed
	}
	return ""
}

// FromCode reverses Code on the client side. The on-clock team name is only
// meaningful for not_your_turn responses.
func FromCode(code, onClockTeam string) error {
	switch code {
	case CodeDraftComplete:
		return ErrDraftComplete
	case CodeNotYourTurn:
		return &NotYourTurnError{OnClockTeam: onClockTeam}
	case CodePlayerAlreadyDrafted:
		return ErrPlayerAlreadyDrafted
	case CodePlayerIsKeeper:
		return ErrPlayerIsKeeper
	case CodePickAlreadyUsed:
		return ErrPickAlreadyUsed
	}
	return nil
}
