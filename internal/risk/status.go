package risk

// Account status values. Failed is absorbing; passed and funded can still
// fail on a later breach but never revert to active.
const (
	StatusActive = "active"
	StatusPassed = "passed"
	StatusFailed = "failed"
	StatusFunded = "funded"
)

// Evaluate decides the next status from the current one and the evaluated
// metrics. Breach takes precedence over target: a breached account fails
// even if the profit target is also met. Only active accounts pass.
func Evaluate(current string, m *Metrics) string {
	if current == StatusFailed {
		return StatusFailed
	}
	if m.Breached() {
		return StatusFailed
	}
	if current == StatusActive && m.TargetReached {
		return StatusPassed
	}
	return current
}

// ValidStatus reports whether s is one of the known status values.
func ValidStatus(s string) bool {
	switch s {
	case StatusActive, StatusPassed, StatusFailed, StatusFunded:
		return true
	}
	return false
}
