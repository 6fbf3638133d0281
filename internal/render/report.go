package render

import (
	"time"

	"github.com/vallemsec/spectra-web/internal/cms"
	"github.com/vallemsec/spectra-web/internal/config"
	"github.com/vallemsec/spectra-web/internal/scanner"
	"github.com/vallemsec/spectra-web/internal/target"
)

// State is the lifecycle of one report section.
type State string

const (
	StatePending State = "pending"
	StateSuccess State = "success"
	StateFailed  State = "failed"
)

// User-facing messages for failed sections. Details only go to the log.
const (
	ScanFailedMessage  = "De scan van dit domein is mislukt. Probeer het later opnieuw."
	LeaksFailedMessage = "De controle op gelekte e-mailadressen is mislukt. Probeer het later opnieuw."
)

// Disclaimer is shown next to the AI advice.
const Disclaimer = "Het advies is gegenereerd door AI en kan onjuistheden bevatten. Raadpleeg altijd een expert."

// Outcome holds the settled value of one section or the reason it failed.
type Outcome[T any] struct {
	State State  `json:"state"`
	Value T      `json:"value,omitempty"`
	Error string `json:"error,omitempty"`
}

// Pending reports whether the section has not settled yet.
func (o Outcome[T]) Pending() bool { return o.State == StatePending }

// Succeeded reports whether Value is usable.
func (o Outcome[T]) Succeeded() bool { return o.State == StateSuccess }

// Failed reports whether the section failed.
func (o Outcome[T]) Failed() bool { return o.State == StateFailed }

// Report is everything one results page shows.
type Report struct {
	Targets     target.Targets                    `json:"targets"`
	Mode        config.Mode                       `json:"mode"`
	Scan        Outcome[scanner.ScanResult]       `json:"scan"`
	Leaks       *Outcome[scanner.EmailLeakResult] `json:"email_leaks,omitempty"`
	Posts       []cms.Post                        `json:"posts,omitempty"`
	GeneratedAt time.Time                         `json:"generated_at"`
}

// NewReport returns a report for t with every requested section pending.
// The email section only exists when an email address was given.
func NewReport(t target.Targets, mode config.Mode) *Report {
	rep := &Report{
		Targets: t,
		Mode:    mode,
		Scan:    Outcome[scanner.ScanResult]{State: StatePending},
	}
	if t.HasEmail() {
		rep.Leaks = &Outcome[scanner.EmailLeakResult]{State: StatePending}
	}
	return rep
}

// ShowLeaks reports whether the email section should be visible.
func (r *Report) ShowLeaks() bool {
	return r.Leaks != nil && r.Leaks.Succeeded()
}

// Settled reports whether no section is pending.
func (r *Report) Settled() bool {
	if r.Scan.Pending() {
		return false
	}
	return r.Leaks == nil || !r.Leaks.Pending()
}

// Failed reports whether any requested section failed.
func (r *Report) Failed() bool {
	return r.Scan.Failed() || (r.Leaks != nil && r.Leaks.Failed())
}
