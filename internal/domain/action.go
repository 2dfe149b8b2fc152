package domain

// ActionType classifies what the decision engine wants done.
type ActionType string

// Action type constants.
const (
	ActionNone ActionType = "NONE"
	ActionBuy  ActionType = "BUY"
	ActionSell ActionType = "SELL"
)

// Action is the outcome of one decision tick.
type Action struct {
	Type ActionType

	// LossThreshold accompanies a buy: the stop fraction the new position
	// is frozen with, taken from the settings in force at buy time.
	LossThreshold float64
}

// None, Buy and Sell construct the three possible actions.

func None() Action { return Action{Type: ActionNone} }

func Buy(lossThreshold float64) Action {
	return Action{Type: ActionBuy, LossThreshold: lossThreshold}
}

func Sell() Action { return Action{Type: ActionSell} }
