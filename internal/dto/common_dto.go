package dto

import "github.com/google/uuid"

type ErrorResponse struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	DB        string `json:"db"`
	PlanCount int    `json:"plan_count"`
}

// IDsRequest carries a batch of ids. For cancel they may be subscription or
// transaction ids.
type IDsRequest struct {
	IDs []uuid.UUID `json:"ids"`
}

type BatchFailure struct {
	ID    uuid.UUID `json:"id"`
	Error string    `json:"error"`
}

// BatchResult reports per-id outcomes of cancel and confirm.
type BatchResult struct {
	Succeeded []uuid.UUID    `json:"succeeded"`
	Skipped   []uuid.UUID    `json:"skipped"`
	Failed    []BatchFailure `json:"failed"`
}

func NewBatchResult() *BatchResult {
	return &BatchResult{
		Succeeded: []uuid.UUID{},
		Skipped:   []uuid.UUID{},
		Failed:    []BatchFailure{},
	}
}

func (r *BatchResult) Fail(id uuid.UUID, err error) {
	r.Failed = append(r.Failed, BatchFailure{ID: id, Error: err.Error()})
}
