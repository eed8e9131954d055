package vulns

import "strings"

// Severity is the standardized criticality of a vulnerability.
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
	SeverityLow      Severity = "LOW"
	SeverityUnknown  Severity = "UNKNOWN"
)

// Severities lists the closed set in ranking order.
var Severities = []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow, SeverityUnknown}

// ParseSeverity maps scanner text onto the closed set. Anything it does not
// recognize, including the empty string, becomes SeverityUnknown.
func ParseSeverity(s string) Severity {
	switch Severity(strings.ToUpper(strings.TrimSpace(s))) {
	case SeverityCritical:
		return SeverityCritical
	case SeverityHigh:
		return SeverityHigh
	case SeverityMedium:
		return SeverityMedium
	case SeverityLow:
		return SeverityLow
	default:
		return SeverityUnknown
	}
}

// Known reports whether s is one of the five standard values.
func (s Severity) Known() bool {
	for _, k := range Severities {
		if s == k {
			return true
		}
	}
	return false
}

func (s Severity) String() string { return string(s) }

// Record is a normalized vulnerability entry. Keys of the raw entry that are
// not lifted into a field survive untouched in Details.
type Record struct {
	Package      string         `json:"Package"`
	Severity     Severity       `json:"Severity"`
	CVE          string         `json:"CVE"`
	FixedVersion *string        `json:"FixedVersion,omitempty"`
	Details      map[string]any `json:"Details,omitempty"`
}

// Fixed returns the fixed version or "" when none is known.
func (r Record) Fixed() string {
	if r.FixedVersion == nil {
		return ""
	}
	return *r.FixedVersion
}
