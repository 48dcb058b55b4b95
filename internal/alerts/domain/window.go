package alerts

import "time"

const minutesPerDay = 24 * 60

// InActiveWindow reports whether now falls inside the [start, end] window at
// minute granularity on the UTC clock. An absent or unparseable bound makes
// the window always active. Windows where start > end wrap midnight, e.g.
// 22:00-06:00 is active late evening and early morning.
func InActiveWindow(now time.Time, start, end string) bool {
	if start == "" || end == "" {
		return true
	}
	startMin, ok := toMinutes(start)
	if !ok {
		return true
	}
	endMin, ok := toMinutes(end)
	if !ok {
		return true
	}

	utc := now.UTC()
	nowMin := utc.Hour()*60 + utc.Minute()

	if startMin <= endMin {
		return nowMin >= startMin && nowMin <= endMin
	}
	return nowMin >= startMin || nowMin <= endMin
}

func toMinutes(value string) (int, bool) {
	parsed, err := time.Parse("15:04", value)
	if err != nil {
		return 0, false
	}
	return parsed.Hour()*60 + parsed.Minute(), true
}
