package replay

import "errors"

// ErrInvalidOrdering is returned when observations are not properly ordered.
var ErrInvalidOrdering = errors.New("observations are not in chronological order")

// ErrEmptyScenario is returned when a scenario carries no observations.
var ErrEmptyScenario = errors.New("scenario has no observations")
