package assistant

import (
	"fmt"
	"time"

	"github.com/thebtf/notekeeper/internal/intent"
	"github.com/thebtf/notekeeper/internal/storage"
)

// Window is a reminder list range in UTC. A zero Start means "everything
// before End".
type Window struct {
	Start time.Time
	End   time.Time
}

// PeriodWindow computes the reminder window for period at now, with calendar
// days taken in loc.
func PeriodWindow(period intent.Period, now time.Time, loc *time.Location) (Window, error) {
	todayStart, todayEnd := storage.DayBounds(now, loc)

	switch period {
	case intent.PeriodToday:
		return Window{Start: todayStart, End: todayEnd}, nil
	case intent.PeriodTomorrow:
		start, end := storage.DayBounds(now.In(loc).AddDate(0, 0, 1), loc)
		return Window{Start: start, End: end}, nil
	case intent.PeriodWeek:
		local := todayStart.In(loc)
		return Window{Start: todayStart, End: local.AddDate(0, 0, 7).UTC()}, nil
	case intent.PeriodPast:
		return Window{End: todayStart}, nil
	default:
		return Window{}, fmt.Errorf("unknown period %q", period)
	}
}
