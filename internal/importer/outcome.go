package importer

import "time"

// ItemError records one per-item failure. Ref is the remote uid or the staged
// path the failure belongs to.
type ItemError struct {
	Ref   string `json:"ref"`
	Cause string `json:"cause"`
}

// Outcome is the per-cycle aggregate handed back to the trigger. It is the
// sole artifact a caller sees; the API and CLI layers render it.
type Outcome struct {
	Downloaded int         `json:"downloaded"`
	Imported   int         `json:"imported"`
	Skipped    int         `json:"skipped"`
	Errors     []ItemError `json:"errors"`
	StartedAt  time.Time   `json:"started_at"`
	FinishedAt time.Time   `json:"finished_at"`
}

func (o *Outcome) recordError(ref string, err error) {
	o.Errors = append(o.Errors, ItemError{Ref: ref, Cause: err.Error()})
}
