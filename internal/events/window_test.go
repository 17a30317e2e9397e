package events_test

import (
	"testing"
	"time"

	"ms-scheduling/internal/events"

	"github.com/stretchr/testify/assert"
)

func TestTomorrowWindow(t *testing.T) {
	tests := []struct {
		name      string
		now       time.Time
		wantStart time.Time
		wantEnd   time.Time
	}{
		{
			name:      "wednesday covers thursday",
			now:       time.Date(2026, 3, 11, 15, 0, 0, 0, sydney),
			wantStart: time.Date(2026, 3, 12, 0, 0, 0, 0, sydney),
			wantEnd:   time.Date(2026, 3, 12, 23, 59, 59, 999999999, sydney),
		},
		{
			name:      "friday covers saturday through monday",
			now:       time.Date(2026, 3, 13, 15, 0, 0, 0, sydney),
			wantStart: time.Date(2026, 3, 14, 0, 0, 0, 0, sydney),
			wantEnd:   time.Date(2026, 3, 16, 23, 59, 59, 999999999, sydney),
		},
		{
			name:      "late utc instant resolves in studio time",
			now:       time.Date(2026, 3, 12, 14, 0, 0, 0, time.UTC),
			wantStart: time.Date(2026, 3, 14, 0, 0, 0, 0, sydney),
			wantEnd:   time.Date(2026, 3, 16, 23, 59, 59, 999999999, sydney),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := events.TomorrowWindow(tt.now, sydney)
			assert.True(t, start.Equal(tt.wantStart), "start %s", start)
			assert.True(t, end.Equal(tt.wantEnd), "end %s", end)
		})
	}
}

func TestDayBounds(t *testing.T) {
	now := time.Date(2026, 3, 11, 15, 4, 5, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC), events.StartOfDay(now, time.UTC))
	assert.Equal(t, time.Date(2026, 3, 11, 23, 59, 59, 999999999, time.UTC), events.EndOfDay(now, time.UTC))
}
