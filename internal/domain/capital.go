package domain

// WorkingCapital is the capital pool allocated to a trade key.
// DefaultWC is the baseline used for the daily/weekly stop-loss
// thresholds; CurrentWC is the live balance maintained by the order
// dispatcher. The decision engine only reads these values.
// Corresponds to the working_capital table.
type WorkingCapital struct {
	CurrentWC float64
	DefaultWC float64
}
