package utils

import (
	"strings"
)

func ExtractDomainFromEmail(email string) string {
	if email == "" {
		return ""
	}

	email = strings.TrimSpace(email)

	// Handle "Name <email@domain.com>"
	if strings.Contains(email, "<") && strings.Contains(email, ">") {
		startIdx := strings.LastIndex(email, "<") + 1
		endIdx := strings.LastIndex(email, ">")
		if startIdx > 0 && endIdx > startIdx {
			email = email[startIdx:endIdx]
		}
	}

	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return ""
	}

	return strings.ToLower(strings.TrimSpace(parts[1]))
}

// JoinHeaderValues joins repeated header values in order, skipping blanks.
func JoinHeaderValues(values []string) string {
	nonEmpty := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v != "" {
			nonEmpty = append(nonEmpty, v)
		}
	}
	return strings.Join(nonEmpty, ", ")
}

// SanitizeFilename strips path separators so a filename is safe as an object key segment.
func SanitizeFilename(name string) string {
	name = strings.TrimSpace(name)
	name = strings.NewReplacer("/", "_", "\\", "_").Replace(name)
	if name == "." || name == ".." {
		return "_"
	}
	return name
}

// ExtractEmailAddress returns the lowercased bare address of "Name <addr>" or "addr".
func ExtractEmailAddress(value string) string {
	value = strings.TrimSpace(value)
	if start, end := strings.LastIndex(value, "<"), strings.LastIndex(value, ">"); start >= 0 && end > start {
		value = value[start+1 : end]
	}
	return strings.ToLower(strings.TrimSpace(value))
}
