package scanner

// ScanResult is the scanner's response for a domain scan.
type ScanResult struct {
	Advice  string    `json:"advice"`
	Results []Problem `json:"results"`
}

// Problem is a single finding with its AI-generated advice.
type Problem struct {
	Name     string `json:"name"`
	AIAdvice string `json:"ai_advice"`
}

// EmailLeakEntry is one breach an email address appeared in.
type EmailLeakEntry struct {
	Service string `json:"service"`
	Date    string `json:"date"`
	Icon    string `json:"icon,omitempty"`
}

// EmailLeakResult is the ordered list of breaches for an email address.
type EmailLeakResult []EmailLeakEntry

// Kind labels a request for logging and metrics.
type Kind string

const (
	KindDomain Kind = "domain"
	KindEmail  Kind = "email"
)
