package types

import "time"

// Result is what a finished automation flow reports back
type Result struct {
	FinalURL    string   `json:"final_url"`
	Title       string   `json:"title"`
	Screenshots []string `json:"screenshots"`
}

// Outcome of a whole demo run
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// RunRecord is one row of the run journal
type RunRecord struct {
	ID           string    `json:"id"`
	Vendor       string    `json:"vendor"`
	Flow         string    `json:"flow"`
	ProfileID    string    `json:"profile_id"`
	ProfileOwned bool      `json:"profile_owned"`
	Endpoint     string    `json:"endpoint"`
	Outcome      Outcome   `json:"outcome"`
	FailedStage  string    `json:"failed_stage,omitempty"`
	Error        string    `json:"error,omitempty"`
	FinalURL     string    `json:"final_url,omitempty"`
	Title        string    `json:"title,omitempty"`
	Screenshots  []string  `json:"screenshots"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
}

// Duration is how long the run took
func (r RunRecord) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
