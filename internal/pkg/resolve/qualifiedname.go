package resolve

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/varweave/varweave/internal/pkg/rules"
)

// Namespace prefixes every variable name this engine injects into a survey
// platform. Once a survey has been distributed these names must stay
// stable: the platform's embedded-data fields derive from them.
const Namespace = "qn"

// QualifiedName is the validated, globally unique variable identifier.
// Malformed names are rejected here so they can never reach the platform.
type QualifiedName string

var qualifiedNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*(\.[a-z0-9][a-z0-9_]*)+$`)

// ParseQualifiedName validates a raw string against the name grammar:
// dot-separated lowercase segments, the first starting with a letter.
func ParseQualifiedName(raw string) (QualifiedName, error) {
	if !qualifiedNamePattern.MatchString(raw) {
		return "", fmt.Errorf("malformed qualified name %q", raw)
	}
	return QualifiedName(raw), nil
}

// CustomQualifiedName derives the name a custom variable attribute is
// published under.
func CustomQualifiedName(provider, category, variableName, attribute string) (QualifiedName, error) {
	return ParseQualifiedName(strings.Join([]string{Namespace, provider, "custom", category, variableName, attribute}, "."))
}

func (q QualifiedName) String() string { return string(q) }

// Provider extracts the provider segment (qn.<provider>....).
func (q QualifiedName) Provider() string {
	parts := strings.Split(string(q), ".")
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}

// ResolvedValue is one computed variable ready for platform injection.
type ResolvedValue struct {
	Name  QualifiedName
	Value rules.Value
}
