package account

import (
	"fmt"
	"regexp"
)

const (
	minAccountIDLen = 2
	maxAccountIDLen = 64
)

// Separators ('.', '-', '_') may not lead, trail or repeat.
var accountIDPattern = regexp.MustCompile(`^(([a-z\d]+[\-_])*[a-z\d]+\.)*([a-z\d]+[\-_])*[a-z\d]+$`)

// ValidateID checks that id is a well-formed account identifier, either
// named (alice.near) or implicit (64 lowercase hex characters).
func ValidateID(id string) error {
	if len(id) < minAccountIDLen || len(id) > maxAccountIDLen {
		return fmt.Errorf("account id %q must be %d to %d characters", id, minAccountIDLen, maxAccountIDLen)
	}
	if !accountIDPattern.MatchString(id) {
		return fmt.Errorf("account id %q contains invalid characters or separators", id)
	}
	return nil
}
