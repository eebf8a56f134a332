package auth

import "time"

// IsWithinThresholdPeriod reports whether t falls inside the window of
// length pattern (a time.ParseDuration expression) ending now. The
// reset-mail throttle uses it to drop repeat requests.
func IsWithinThresholdPeriod(t time.Time, pattern string) (bool, error) {
	duration, err := time.ParseDuration(pattern)
	if err != nil {
		return false, err
	}

	return t.After(time.Now().Add(-duration)), nil
}
