package clock

import "time"

// Clock supplies "today" to the renewal and expiry rules. Injecting it keeps
// date-dependent decisions deterministic under test.
type Clock interface {
	Now() time.Time
}
