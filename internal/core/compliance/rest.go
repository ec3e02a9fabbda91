package compliance

import (
	"sort"
	"time"
)

// RestCheck verifies the minimum rest period between a driver's last block
// end and the next working day's first block start, on the absolute
// timeline.
type RestCheck struct{}

func (RestCheck) Name() string   { return "rest" }
func (RestCheck) Blocking() bool { return true }

func (c RestCheck) Run(in Input) Result {
	byDriver, err := driverIntervals(in)
	if err != nil {
		return invalidData(c.Name(), err)
	}
	required := time.Duration(in.Config.MinRestHours) * time.Hour

	var violations []map[string]any
	for driver, ivs := range byDriver {
		// Working days in chronological order, with the day's absolute extremes.
		type dayspan struct {
			day   string
			first time.Time
			last  time.Time
		}
		spans := make(map[string]*dayspan)
		for _, iv := range ivs {
			d := spans[iv.assignment.Day]
			if d == nil {
				d = &dayspan{day: iv.assignment.Day, first: iv.start, last: iv.end}
				spans[iv.assignment.Day] = d
				continue
			}
			if iv.start.Before(d.first) {
				d.first = iv.start
			}
			if iv.end.After(d.last) {
				d.last = iv.end
			}
		}

		ordered := make([]*dayspan, 0, len(spans))
		for _, d := range spans {
			ordered = append(ordered, d)
		}
		sort.Slice(ordered, func(i, j int) bool { return ordered[i].day < ordered[j].day })

		for i := 1; i < len(ordered); i++ {
			rest := ordered[i].first.Sub(ordered[i-1].last)
			if rest < required {
				violations = append(violations, map[string]any{
					"driver":           driver,
					"previous_day":     ordered[i-1].day,
					"next_day":         ordered[i].day,
					"rest_minutes":     int(rest.Minutes()),
					"required_minutes": int(required.Minutes()),
				})
			}
		}
	}

	if len(violations) == 0 {
		return pass(c.Name())
	}
	return fail(c.Name(), len(violations), map[string]any{"rest_violations": violations})
}
