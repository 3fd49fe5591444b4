package domain

// NextAction is the follow-up a presentation layer should offer alongside
// an error or a terminal outcome, so the user is never left at a dead end.
type NextAction string

const (
	ActionNone          NextAction = "none"
	ActionRetry         NextAction = "retry"
	ActionOpenHistory   NextAction = "open-history"
	ActionOpenBalance   NextAction = "open-balance"
	ActionLogin         NextAction = "login"
	ActionNewPrediction NextAction = "new-prediction"
)

// ActionFor picks the follow-up for an error kind.
func ActionFor(kind ErrorKind) NextAction {
	switch kind {
	case KindAuthRequired:
		return ActionLogin
	case KindInsufficientFunds:
		return ActionOpenBalance
	case KindNotFound:
		return ActionOpenHistory
	default:
		return ActionRetry
	}
}
