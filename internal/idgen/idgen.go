package idgen

import (
	"fmt"
	"regexp"

	"github.com/google/uuid"
)

// New returns a UUIDv7 identifier string.
// If UUIDv7 generation fails, it falls back to a random UUIDv4.
func New() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

var sourceIDPattern = regexp.MustCompile(`^[a-z]([a-z0-9._-]*[a-z0-9])?$`)

// ValidateSourceID checks that id is a usable provider id: lowercase letters,
// digits, dots, dashes and underscores, starting with a letter and ending with
// a letter or digit; max 64 characters. Colons are reserved for unique ids.
func ValidateSourceID(id string) error {
	if len(id) > 64 {
		return fmt.Errorf("source id too long (max 64 characters)")
	}
	if !sourceIDPattern.MatchString(id) {
		return fmt.Errorf("source id %q is invalid: must match %s", id, sourceIDPattern.String())
	}
	return nil
}
