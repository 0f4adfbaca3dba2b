package domain

import "time"

// OutcomeStatus classifies a registration across the store and the provider.
type OutcomeStatus string

const (
	// OutcomeSuccess means both the local row and the provider identity exist.
	OutcomeSuccess OutcomeStatus = "success"
	// OutcomePartial means the local row was written but a provider step failed.
	OutcomePartial OutcomeStatus = "partial"
	// OutcomeFailure means nothing was written.
	OutcomeFailure OutcomeStatus = "failure"
)

// Registration steps that can fail.
const (
	StepStoreCreate    = "store_create"
	StepProviderCreate = "provider_create"
	StepProviderPasswd = "provider_set_password"
)

// RegistrationOutcome is the recorded result of one registration attempt.
type RegistrationOutcome struct {
	UserID     int64         `json:"user_id,omitempty"`
	Email      string        `json:"email"`
	Status     OutcomeStatus `json:"status"`
	FailedStep string        `json:"failed_step,omitempty"`
	Reason     string        `json:"reason,omitempty"`
	RecordedAt time.Time     `json:"recorded_at"`
}
