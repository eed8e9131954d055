package prompt

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bryanwahyu/cve-advisor/internal/domain/advisory"
	"github.com/bryanwahyu/cve-advisor/internal/domain/vulns"
)

// MaxVulnerabilities caps how many records reach the prompt.
const MaxVulnerabilities = 5

const noAdditionalInfo = "No additional context."

// Composer builds the generation request. It is pure and safe for concurrent use.
type Composer struct{}

var _ advisory.Composer = Composer{}

// StyleDirective returns the tone line appended to the template, or "" for
// neutral and unrecognized styles.
func StyleDirective(s advisory.Style) string {
	switch s.Canonical() {
	case advisory.StyleSarcastic:
		return "(Use a sarcastic tone in the jokes!)"
	case advisory.StyleFriendly:
		return "(Use a friendly tone in the jokes!)"
	default:
		return ""
	}
}

// LanguageDirective names the answer language explicitly for de and en and
// otherwise asks the model to pick.
func LanguageDirective(l advisory.Language) string {
	switch l.Canonical() {
	case advisory.LanguageGerman:
		return "Verwende deutsche Sprache für alle Antworten."
	case advisory.LanguageEnglish:
		return "Use English for all responses."
	default:
		return "Use the appropriate language based on the context."
	}
}

// Compose renders the single prompt for one report.
func (Composer) Compose(req advisory.PromptRequest) string {
	c := req.Context
	top := vulns.Top(req.TopVulnerabilities, MaxVulnerabilities)

	tpl := req.Template
	if strings.TrimSpace(tpl) == "" {
		tpl = DefaultTemplate
	}
	tpl = strings.NewReplacer(
		"{mode}", string(c.Mode),
		"{humor_style}", string(c.Style),
		"{style}", string(c.Style),
	).Replace(tpl)
	if d := StyleDirective(c.Style); d != "" {
		tpl += "\n" + d
	}

	info := req.AdditionalInfo
	if strings.TrimSpace(info) == "" {
		info = c.AdditionalInfo
	}
	if strings.TrimSpace(info) == "" {
		info = noAdditionalInfo
	}

	var b strings.Builder
	b.WriteString(tpl)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Humor Style: %s\n", c.Style)
	b.WriteString(LanguageDirective(c.Language))
	b.WriteString("\n")
	fmt.Fprintf(&b, "Language: %s\n", c.Language)
	fmt.Fprintf(&b, "Mode: %s\n\n", c.Mode)

	b.WriteString("Analyze the vulnerabilities below and write exactly one security report, ordered by severity, containing:\n")
	b.WriteString("1. A joke about the findings (comparisons to everyday situations, science references, ...).\n")
	b.WriteString("2. A markdown table with the columns: Package, Severity, CVE, Fixed Version, How to Fix.\n")
	b.WriteString("3. Key notes for CRITICAL and HIGH vulnerabilities.\n")
	b.WriteString("4. Actionable remediation steps.\n")
	fmt.Fprintf(&b, "5. Stay in %s mode with a %s style, jokes included.\n\n", c.Mode, c.Style)

	fmt.Fprintf(&b, "Vulnerabilities (first %d by severity):\n", MaxVulnerabilities)
	b.WriteString(vulnerabilityBlock(top))
	b.WriteString("\n\n")

	b.WriteString("Additional context:\n")
	b.WriteString(info)
	b.WriteString("\n\n")

	b.WriteString(exampleLayout)
	b.WriteString("\nRespond ONLY with the report. No preamble, no explanations.")
	return b.String()
}

func vulnerabilityBlock(records []vulns.Record) string {
	if records == nil {
		records = []vulns.Record{}
	}
	out, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		// Details came from decoded JSON, so this only trips on hand-built records.
		return "[]"
	}
	return string(out)
}

const exampleLayout = "Example layout:\n" +
	"**Vulnerabilities**:\n" +
	"| Package | Severity | CVE            | Fixed Version | How to Fix                          |\n" +
	"|---------|----------|----------------|---------------|-------------------------------------|\n" +
	"| libaom3 | CRITICAL | CVE-2023-6879  | Not specified | Upgrade via Debian security updates |\n" +
	"|         | HIGH     | CVE-2023-39616 | Will not fix  | Monitor for future patches          |\n\n" +
	"**Key Notes**:\n" +
	"- libaom3: heap overflow (CRITICAL) and memory read issue (HIGH).\n\n" +
	"**Action**:\n" +
	"- Patch CRITICAL issues immediately with `apt upgrade`.\n" +
	"- Restrict untrusted inputs for HIGH-severity issues without a fix.\n"
