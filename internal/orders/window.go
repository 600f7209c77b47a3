package orders

import (
	"fmt"
	"strings"
	"time"
)

// DeliveryWindow is the daily period in which delivery orders are accepted.
// The zero value is always open.
type DeliveryWindow struct {
	start   int
	end     int
	loc     *time.Location
	enabled bool
}

// ParseDeliveryWindow reads "HH:MM" bounds. Empty bounds disable the check;
// an end earlier than the start wraps past midnight.
func ParseDeliveryWindow(start, end string, loc *time.Location) (DeliveryWindow, error) {
	start, end = strings.TrimSpace(start), strings.TrimSpace(end)
	if start == "" && end == "" {
		return DeliveryWindow{}, nil
	}
	from, err := parseClock(start)
	if err != nil {
		return DeliveryWindow{}, fmt.Errorf("delivery window start: %w", err)
	}
	to, err := parseClock(end)
	if err != nil {
		return DeliveryWindow{}, fmt.Errorf("delivery window end: %w", err)
	}
	if from == to {
		return DeliveryWindow{}, fmt.Errorf("delivery window start and end must differ")
	}
	if loc == nil {
		loc = time.UTC
	}
	return DeliveryWindow{start: from, end: to, loc: loc, enabled: true}, nil
}

func parseClock(value string) (int, error) {
	t, err := time.Parse("15:04", value)
	if err != nil {
		return 0, fmt.Errorf("expected HH:MM, got %q", value)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// Enabled reports whether a window is configured.
func (w DeliveryWindow) Enabled() bool {
	return w.enabled
}

// Contains reports whether t falls inside the window, start inclusive and
// end exclusive.
func (w DeliveryWindow) Contains(t time.Time) bool {
	if !w.enabled {
		return true
	}
	local := t.In(w.loc)
	minute := local.Hour()*60 + local.Minute()
	if w.start < w.end {
		return minute >= w.start && minute < w.end
	}
	return minute >= w.start || minute < w.end
}

// String renders the window as "HH:MM-HH:MM".
func (w DeliveryWindow) String() string {
	if !w.enabled {
		return "always"
	}
	return fmt.Sprintf("%02d:%02d-%02d:%02d", w.start/60, w.start%60, w.end/60, w.end%60)
}
