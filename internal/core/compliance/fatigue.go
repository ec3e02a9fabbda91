package compliance

import (
	"sort"
	"time"
)

// FatigueCheck flags drivers with a high-count day (at or above the
// configured tour threshold) immediately followed by another high-count
// day.
type FatigueCheck struct{}

func (FatigueCheck) Name() string   { return "fatigue" }
func (FatigueCheck) Blocking() bool { return true }

func (c FatigueCheck) Run(in Input) Result {
	perDriverDay := make(map[string]map[string]int)
	for _, a := range in.Assignments {
		days := perDriverDay[a.DriverID]
		if days == nil {
			days = make(map[string]int)
			perDriverDay[a.DriverID] = days
		}
		days[a.Day]++
	}

	var violations []map[string]any
	for driver, days := range perDriverDay {
		var high []string
		for day, count := range days {
			if count >= in.Config.FatigueTourThreshold {
				high = append(high, day)
			}
		}
		sort.Strings(high)
		for i := 1; i < len(high); i++ {
			if !consecutiveDays(high[i-1], high[i]) {
				continue
			}
			violations = append(violations, map[string]any{
				"driver":     driver,
				"first_day":  high[i-1],
				"second_day": high[i],
				"tours":      []int{days[high[i-1]], days[high[i]]},
			})
		}
	}

	if len(violations) == 0 {
		return pass(c.Name())
	}
	return fail(c.Name(), len(violations), map[string]any{"fatigue_violations": violations})
}

func consecutiveDays(a, b string) bool {
	da, err := time.Parse("2006-01-02", a)
	if err != nil {
		return false
	}
	db, err := time.Parse("2006-01-02", b)
	if err != nil {
		return false
	}
	return db.Sub(da) == 24*time.Hour
}
