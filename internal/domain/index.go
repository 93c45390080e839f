// Package domain holds the types shared by the admin control plane.
package domain

import (
	"fmt"
	"strings"
)

// Index is one engine index as reported by a listing. Name and Tag come
// from the stored mapping for ID when there is one.
type Index struct {
	ID   string `json:"index"`
	Name string `json:"name"`
	Tag  string `json:"tag"`
}

const maxIndexIDBytes = 255

const forbiddenIndexIDChars = `\/*?"<>|, #`

// ValidateIndexID checks id against the engine's index naming rules.
func ValidateIndexID(id string) error {
	switch {
	case id == "":
		return fmt.Errorf("%w: must not be empty", ErrInvalidIndexID)
	case len(id) > maxIndexIDBytes:
		return fmt.Errorf("%w: longer than %d bytes", ErrInvalidIndexID, maxIndexIDBytes)
	case id == "." || id == "..":
		return fmt.Errorf("%w: %q is reserved", ErrInvalidIndexID, id)
	case strings.ContainsAny(id[:1], "-_+"):
		return fmt.Errorf("%w: must not start with %q", ErrInvalidIndexID, id[:1])
	case strings.ToLower(id) != id:
		return fmt.Errorf("%w: must be lowercase", ErrInvalidIndexID)
	case strings.ContainsAny(id, forbiddenIndexIDChars):
		return fmt.Errorf("%w: contains one of %q", ErrInvalidIndexID, forbiddenIndexIDChars)
	}
	return nil
}
