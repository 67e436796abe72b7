package shared

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestOrNowFillsZeroTimestamp(t *testing.T) {
	stamped := orNow(time.Time{})
	require.False(t, stamped.IsZero())
	require.WithinDuration(t, time.Now().UTC(), stamped, time.Minute)
}

func TestOrNowKeepsExplicitTimestamp(t *testing.T) {
	at := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	require.Equal(t, at, orNow(at))
}
