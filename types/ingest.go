package types

// IngestRecord is one entry of an inbound signup batch. The upstream
// producer has already created the account row; the record only asks
// for a fresh verification token to be issued.
type IngestRecord struct {
	Email     string `json:"email"`
	UserID    int64  `json:"user_id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// RecordFailure describes a single failed record within an invocation.
type RecordFailure struct {
	UserID int64  `json:"user_id"`
	Email  string `json:"email"`
	Reason string `json:"reason"`
}

// IngestResult summarizes one worker invocation over a batch of records.
type IngestResult struct {
	InvocationID string          `json:"invocation_id"`
	Processed    int             `json:"processed"`
	Failures     []RecordFailure `json:"failures,omitempty"`
}

// Failed reports whether any record in the invocation failed.
func (r IngestResult) Failed() bool {
	return len(r.Failures) > 0
}
