package services

import (
	"strings"
	"unicode"

	"github.com/jinzhu/inflection"

	"github.com/ekaya-inc/ontoschema/pkg/config"
)

// ToSnakeCase converts an identifier to snake_case.
// Examples: "PostalAddress" -> "postal_address", "HTTPServer" -> "http_server",
// "has-part" -> "has_part"
func ToSnakeCase(s string) string {
	runes := []rune(s)
	var b strings.Builder
	lastUnderscore := true
	for i, r := range runes {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
			continue
		}
		if unicode.IsUpper(r) && i > 0 && !lastUnderscore {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				b.WriteByte('_')
			}
		}
		b.WriteRune(unicode.ToLower(r))
		lastUnderscore = false
	}
	return strings.TrimSuffix(b.String(), "_")
}

// UpperSnake converts an identifier to UPPER_SNAKE_CASE, used for enum values.
func UpperSnake(s string) string {
	return strings.ToUpper(ToSnakeCase(s))
}

// PascalCase converts an identifier to PascalCase.
// Examples: "postal_address" -> "PostalAddress", "has-part" -> "HasPart"
func PascalCase(s string) string {
	var b strings.Builder
	for _, part := range strings.Split(ToSnakeCase(s), "_") {
		if part == "" {
			continue
		}
		b.WriteString(strings.ToUpper(part[:1]))
		b.WriteString(part[1:])
	}
	return b.String()
}

// TableName derives a table name from a class name under the configured
// naming strategy. Plural naming pluralizes the last word only.
func TableName(className, naming string) string {
	name := ToSnakeCase(className)
	if naming != config.TableNamingPlural || name == "" {
		return name
	}
	idx := strings.LastIndex(name, "_")
	return name[:idx+1] + inflection.Plural(name[idx+1:])
}

// singularTable undoes plural table naming for use inside derived names.
func singularTable(table string) string {
	idx := strings.LastIndex(table, "_")
	return table[:idx+1] + inflection.Singular(table[idx+1:])
}
