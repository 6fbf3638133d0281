package target

import (
	"net/http"
	"net/url"
)

const (
	// DomainParam is the query parameter carrying the domain to scan.
	DomainParam = "domain"
	// EmailParam is the optional query parameter carrying an email address.
	EmailParam = "email"
)

// Targets holds the scan targets read from a page's query string.
// Values are passed on verbatim; nothing is validated before transmission.
type Targets struct {
	Domain string `json:"domain"`
	Email  string `json:"email,omitempty"`
}

// HasEmail reports whether an email leak lookup was requested.
func (t Targets) HasEmail() bool {
	return t.Email != ""
}

// Extract reads the domain and email parameters. A missing parameter yields
// an empty string.
func Extract(values url.Values) Targets {
	if values == nil {
		return Targets{}
	}
	return Targets{
		Domain: values.Get(DomainParam),
		Email:  values.Get(EmailParam),
	}
}

// FromRequest reads the targets from r's URL query.
func FromRequest(r *http.Request) Targets {
	if r == nil || r.URL == nil {
		return Targets{}
	}
	return Extract(r.URL.Query())
}

// Query encodes t back into a query string for links and redirects.
// An empty email is omitted.
func (t Targets) Query() string {
	values := url.Values{}
	values.Set(DomainParam, t.Domain)
	if t.HasEmail() {
		values.Set(EmailParam, t.Email)
	}
	return values.Encode()
}
