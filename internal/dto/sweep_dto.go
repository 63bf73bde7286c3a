package dto

import "time"

// SweepRequest triggers a scheduler pass at a simulated instant. Now is
// RFC3339; Hour and Minute default to the configured delivery time.
type SweepRequest struct {
	Now    string `json:"now"`
	Hour   *int   `json:"hour"`
	Minute *int   `json:"minute"`
}

type SweepReport struct {
	Now                time.Time `json:"now"`
	UsersEvaluated     int       `json:"users_evaluated"`
	UsersSkipped       int       `json:"users_skipped"`
	ProjectionsCreated int       `json:"projections_created"`
	UpcomingItems      int       `json:"upcoming_items"`
	ConfirmItems       int       `json:"confirm_items"`
	BatchesDispatched  int       `json:"batches_dispatched"`
	DispatchFailures   int       `json:"dispatch_failures"`
}
