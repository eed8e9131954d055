package vulns

import (
	"encoding/json"
	"fmt"
	"os"
)

// shape recognizes one scanner document layout and returns its raw entries.
type shape struct {
	name    string
	entries func(doc map[string]any) ([]any, bool)
}

// shapes are tried in order, first match wins.
var shapes = []shape{
	{name: "results", entries: nestedResults},
	{name: "flat", entries: flatList},
}

// {"Results": [{"Vulnerabilities": [...]}, ...]} (trivy json)
func nestedResults(doc map[string]any) ([]any, bool) {
	results, ok := doc["Results"].([]any)
	if !ok {
		return nil, false
	}
	var out []any
	for _, r := range results {
		m, ok := r.(map[string]any)
		if !ok {
			continue
		}
		if list, ok := m["Vulnerabilities"].([]any); ok {
			out = append(out, list...)
		}
	}
	return out, true
}

// {"vulnerabilities": [...]}
func flatList(doc map[string]any) ([]any, bool) {
	list, ok := doc["vulnerabilities"].([]any)
	return list, ok
}

// Parse decodes a scan document into records. A document it cannot decode
// yields an empty slice together with the decode error; an unrecognized
// layout yields an empty slice and no error.
func Parse(data []byte) ([]Record, error) {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return []Record{}, fmt.Errorf("decode scan document: %w", err)
	}
	return NormalizeDocument(doc), nil
}

// Normalize is Parse without the error: unreadable input and "no findings"
// both come out as an empty slice.
func Normalize(data []byte) []Record {
	out, _ := Parse(data)
	return out
}

// NormalizeDocument flattens an already decoded document.
func NormalizeDocument(doc any) []Record {
	m, ok := doc.(map[string]any)
	if !ok {
		return []Record{}
	}
	for _, s := range shapes {
		entries, ok := s.entries(m)
		if !ok {
			continue
		}
		out := make([]Record, 0, len(entries))
		for _, e := range entries {
			if em, ok := e.(map[string]any); ok {
				out = append(out, recordFrom(em))
			}
		}
		return out
	}
	return []Record{}
}

// LoadFile reads and normalizes a scan-log file.
func LoadFile(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return []Record{}, fmt.Errorf("read scan log %s: %w", path, err)
	}
	return Parse(data)
}

var (
	packageKeys = []string{"Package", "PkgName"}
	cveKeys     = []string{"CVE", "VulnerabilityID"}
)

func recordFrom(m map[string]any) Record {
	used := map[string]bool{"Severity": true, "FixedVersion": true}
	r := Record{
		Package: firstString(m, packageKeys, used),
		CVE:     firstString(m, cveKeys, used),
	}
	sev, _ := m["Severity"].(string)
	r.Severity = ParseSeverity(sev)
	if fv, ok := m["FixedVersion"].(string); ok && fv != "" {
		r.FixedVersion = &fv
	}
	for k, v := range m {
		if used[k] {
			continue
		}
		if r.Details == nil {
			r.Details = make(map[string]any)
		}
		r.Details[k] = v
	}
	return r
}

// firstString returns the first non-empty string among keys and marks the keys it read as consumed.
func firstString(m map[string]any, keys []string, used map[string]bool) string {
	var out string
	for _, k := range keys {
		if _, ok := m[k]; !ok {
			continue
		}
		if s, ok := m[k].(string); ok && out == "" {
			out = s
			used[k] = true
		}
	}
	return out
}
