package advisory

import "strings"

// Style is the tone requested for jokes in the report.
type Style string

const (
	StyleNeutral   Style = "neutral"
	StyleSarcastic Style = "sarcastic"
	StyleFriendly  Style = "friendly"
	StyleConceited Style = "conceited"
)

// Mode drives post-processing of the generated report.
type Mode string

const (
	ModeDefault   Mode = "default"
	ModeError     Mode = "error"
	ModeDevSecOps Mode = "devsecops"
	ModeAlertOnly Mode = "alert-only"
	ModeHumor     Mode = "humor"
	ModeLegal     Mode = "legal"
)

// Language of the report.
type Language string

const (
	LanguageGerman  Language = "de"
	LanguageEnglish Language = "en"
)

// Context is the shared tone/mode/language configuration. It is replaced as a
// whole, never field by field. AdditionalInfo is supplied per run and is not
// persisted.
type Context struct {
	Style          Style    `json:"style"`
	Mode           Mode     `json:"mode"`
	Language       Language `json:"language"`
	AdditionalInfo string   `json:"-"`
}

// DefaultContext is what readers get before anything has been stored.
func DefaultContext() Context {
	return Context{Style: StyleNeutral, Mode: ModeDefault, Language: LanguageGerman}
}

// NewContext builds a context from free-form strings. Values are kept as
// given; interpretation happens at each decision point.
func NewContext(style, mode, language string) Context {
	return Context{Style: Style(style), Mode: Mode(mode), Language: Language(language)}
}

// WithInfo returns a copy carrying per-run project information.
func (c Context) WithInfo(info string) Context {
	c.AdditionalInfo = info
	return c
}

// aliases kept for contexts written by the older German UI.
var (
	styleAliases = map[string]Style{"sarkastisch": StyleSarcastic, "freundlich": StyleFriendly, "eingebildet": StyleConceited}
	modeAliases  = map[string]Mode{"juristisch": ModeLegal}
)

// Canonical folds case and known aliases. Unrecognized values come back
// unchanged (lower-cased) and fall into the default branch of every switch.
func (s Style) Canonical() Style {
	v := strings.ToLower(strings.TrimSpace(string(s)))
	if a, ok := styleAliases[v]; ok {
		return a
	}
	return Style(v)
}

func (m Mode) Canonical() Mode {
	v := strings.ToLower(strings.TrimSpace(string(m)))
	if a, ok := modeAliases[v]; ok {
		return a
	}
	return Mode(v)
}

func (l Language) Canonical() Language {
	return Language(strings.ToLower(strings.TrimSpace(string(l))))
}
