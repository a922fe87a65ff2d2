package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// maxNameLength bounds model and node names accepted from files and the API.
const maxNameLength = 128

// nameRegex matches identifiers usable as model names, node ids and port names.
var nameRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.-]*$`)

// ValidateName validates a model, node or port name.
//
// The validation rules are intentionally conservative:
//   - No empty names
//   - No control characters
//   - No path traversal sequences or separators
//   - Maximum length of 128 characters
//   - Must start with a letter or underscore
func ValidateName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidName, "name cannot be empty")
	}

	if len(name) > maxNameLength {
		return New(ErrCodeInvalidName, "name too long (max %d characters)", maxNameLength)
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidName, "name contains invalid control characters")
		}
	}

	if strings.Contains(name, "..") || strings.ContainsAny(name, "/\\") {
		return New(ErrCodeInvalidName, "name contains path characters: %q", name)
	}

	if !nameRegex.MatchString(name) {
		return New(ErrCodeInvalidName, "invalid name: %q", name)
	}

	return nil
}

// ValidatePortRef validates a "<node>:<port>" reference as written in model
// documents. Both halves must be valid names.
func ValidatePortRef(ref string) error {
	node, port, ok := strings.Cut(ref, ":")
	if !ok {
		return New(ErrCodeInvalidInput, "port reference %q must have the form node:port", ref)
	}
	if err := ValidateName(node); err != nil {
		return Wrap(ErrCodeInvalidInput, err, "port reference %q", ref)
	}
	if err := ValidateName(port); err != nil {
		return Wrap(ErrCodeInvalidInput, err, "port reference %q", ref)
	}
	return nil
}
