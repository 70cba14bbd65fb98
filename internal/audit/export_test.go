package audit

import "time"

func (t *Trail) SetClock(now func() time.Time) {
	t.now = now
}
