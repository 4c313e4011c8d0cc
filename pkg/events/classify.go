package events

import (
	"path/filepath"
	"strings"

	"github.com/src-d/enry/v2"
)

// Category is the coarse file classification used by file-type metrics.
type Category string

// File categories. The split is deliberately coarse: dashboards only need
// a code-versus-everything-else signal.
const (
	CategoryCode  Category = "Code"
	CategoryOther Category = "Other"
)

// codeExtensions is the fixed allowlist of source-code file extensions.
// Unknown or missing extensions classify as Other.
var codeExtensions = map[string]struct{}{
	".c":     {},
	".cc":    {},
	".cpp":   {},
	".cs":    {},
	".cxx":   {},
	".go":    {},
	".h":     {},
	".hpp":   {},
	".java":  {},
	".js":    {},
	".jsx":   {},
	".kt":    {},
	".lua":   {},
	".m":     {},
	".php":   {},
	".pl":    {},
	".py":    {},
	".rb":    {},
	".rs":    {},
	".scala": {},
	".sh":    {},
	".swift": {},
	".ts":    {},
	".tsx":   {},
}

// Classify maps a file path to its coarse category via the extension
// allowlist.
func Classify(path string) Category {
	ext := strings.ToLower(filepath.Ext(path))

	_, ok := codeExtensions[ext]
	if ok {
		return CategoryCode
	}

	return CategoryOther
}

// languageOther is the language bucket for files enry cannot identify.
const languageOther = "Other"

// Language returns the programming language for a file path, or "Other"
// when detection by filename fails.
func Language(path string) string {
	lang := enry.GetLanguage(filepath.Base(path), nil)
	if lang == "" {
		return languageOther
	}

	return lang
}
