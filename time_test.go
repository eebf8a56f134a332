package auth_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	auth "github.com/goliatone/go-partner-auth"
)

func TestIsWithinThresholdPeriod(t *testing.T) {
	tests := []struct {
		name          string
		inputTime     time.Time
		thresholdExpr string
		expected      bool
		expectErr     bool
	}{
		{
			name:          "Within 1 hour threshold",
			inputTime:     time.Now().Add(-30 * time.Minute),
			thresholdExpr: "1h",
			expected:      true,
			expectErr:     false,
		},
		{
			name:          "Outside 1 hour threshold",
			inputTime:     time.Now().Add(-90 * time.Minute),
			thresholdExpr: "1h",
			expected:      false,
			expectErr:     false,
		},
		{
			name:          "Invalid duration expression",
			inputTime:     time.Now(),
			thresholdExpr: "not-a-duration",
			expected:      false,
			expectErr:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := auth.IsWithinThresholdPeriod(tt.inputTime, tt.thresholdExpr)

			if tt.expectErr {
				assert.Error(t, err)
				return
			}

			assert.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}
