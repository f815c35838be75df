// Package domain holds the institutional email domain that gates sign-in.
package domain

import (
	"fmt"
	"strings"
)

// Domain is the institutional email domain in its two injected forms: Host is
// the bare name sent as the identity provider's hd hint, Suffix is the
// "@host" form matched against addresses.
type Domain struct {
	Host   string
	Suffix string
}

// New returns a Domain after checking the two forms agree.
func New(host, suffix string) (Domain, error) {
	host = strings.TrimSpace(host)
	suffix = strings.TrimSpace(suffix)
	if host == "" || suffix == "" {
		return Domain{}, fmt.Errorf("domain host and suffix are required")
	}
	if !strings.EqualFold(suffix, "@"+host) {
		return Domain{}, fmt.Errorf("domain suffix %q does not match host %q", suffix, host)
	}
	return Domain{Host: strings.ToLower(host), Suffix: strings.ToLower(suffix)}, nil
}

// MustNew is New for compile-time constants.
func MustNew(host, suffix string) Domain {
	d, err := New(host, suffix)
	if err != nil {
		panic(err)
	}
	return d
}

// IsInstitutional reports whether email ends with the domain suffix, ignoring case.
func (d Domain) IsInstitutional(email string) bool {
	if d.Suffix == "" {
		return false
	}
	return strings.HasSuffix(strings.ToLower(email), d.Suffix)
}

// ValidationMessage is the inline error shown for a non-institutional address.
func (d Domain) ValidationMessage() string {
	return fmt.Sprintf("Please use your IBA email (%s).", d.Suffix)
}

// NormalizeHint trims and lower-cases an address before it is used as a login hint.
func NormalizeHint(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
