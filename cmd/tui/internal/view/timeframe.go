package view

import (
	"time"
)

// Timeframe is a predefined date range used to filter the event feed.
type Timeframe int

const (
	TimeframeToday Timeframe = iota
	TimeframeThisWeek
	TimeframeThisMonth
	TimeframeLastMonth
	TimeframeAll
)

const timeframeCount = 5

func (t Timeframe) String() string {
	switch t {
	case TimeframeToday:
		return "Today"
	case TimeframeThisWeek:
		return "This Week"
	case TimeframeThisMonth:
		return "This Month"
	case TimeframeLastMonth:
		return "Last Month"
	case TimeframeAll:
		return "All Time"
	}

	return "Unknown"
}

// Range returns [from, to) for the timeframe relative to now. Both are nil for TimeframeAll.
func (t Timeframe) Range(now time.Time) (*time.Time, *time.Time) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	month := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	var from, to time.Time

	switch t {
	case TimeframeToday:
		from, to = today, today.AddDate(0, 0, 1)
	case TimeframeThisWeek:
		// Weeks start on Monday.
		offset := int(now.Weekday())
		if offset == 0 {
			offset = 7
		}

		from = today.AddDate(0, 0, -offset+1)
		to = from.AddDate(0, 0, 7)
	case TimeframeThisMonth:
		from, to = month, month.AddDate(0, 1, 0)
	case TimeframeLastMonth:
		from, to = month.AddDate(0, -1, 0), month
	default:
		return nil, nil
	}

	return &from, &to
}
