package matchclock

import "regexp"

const maxSessionIDLen = 64

var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*$`)

// ValidSessionID reports whether id can be used as a session id on the wire
// and as a NATS subject token.
func ValidSessionID(id string) bool {
	return len(id) <= maxSessionIDLen && sessionIDPattern.MatchString(id)
}
