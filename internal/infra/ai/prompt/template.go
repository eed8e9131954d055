package prompt

import (
	"os"
	"strings"

	"go.uber.org/zap"
)

// DefaultTemplate is used whenever the humor template file cannot be read.
const DefaultTemplate = `You are an AI that roasts software vulnerabilities with short, fun jokes.
Rules:
- Include scientific references where they fit.
- Base the joke on the humor style and the mode.
- Keep jokes to 1-2 sentences.
- Use emojis that match the context of the joke.
- You are in {mode} mode with a {humor_style} style, and your jokes sound like that too.`

// LoadTemplate reads the humor template at path. Any failure falls back to
// DefaultTemplate.
func LoadTemplate(path string, logger *zap.Logger) string {
	tpl, _ := load(path, logger)
	return tpl
}

// FileTemplate re-reads its file on every run so edits apply without restart.
type FileTemplate struct {
	Path   string
	Logger *zap.Logger
}

// Template returns the template text and whether the built-in one was used.
func (f FileTemplate) Template() (string, bool) {
	return load(f.Path, f.Logger)
}

func load(path string, logger *zap.Logger) (string, bool) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if strings.TrimSpace(path) == "" {
		logger.Warn("humor template path empty, using built-in template")
		return DefaultTemplate, true
	}
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("humor template unreadable, using built-in template", zap.String("path", path), zap.Error(err))
		return DefaultTemplate, true
	}
	tpl := strings.TrimSpace(string(data))
	if tpl == "" {
		logger.Warn("humor template empty, using built-in template", zap.String("path", path))
		return DefaultTemplate, true
	}
	return tpl, false
}
