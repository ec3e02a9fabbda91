package compliance

import "sort"

// OverlapCheck verifies that no driver holds two assignments with
// overlapping time ranges. Intervals live on the absolute timeline, so a
// cross-midnight tour collides with the next calendar day's early tour.
type OverlapCheck struct{}

func (OverlapCheck) Name() string   { return "overlap" }
func (OverlapCheck) Blocking() bool { return true }

func (c OverlapCheck) Run(in Input) Result {
	byDriver, err := driverIntervals(in)
	if err != nil {
		return invalidData(c.Name(), err)
	}

	var violations []map[string]any
	for driver, ivs := range byDriver {
		sort.Slice(ivs, func(i, j int) bool { return ivs[i].start.Before(ivs[j].start) })
		for i := 1; i < len(ivs); i++ {
			prev, cur := ivs[i-1], ivs[i]
			if cur.start.Before(prev.end) {
				violations = append(violations, map[string]any{
					"driver":          driver,
					"first_instance":  prev.instance.ID,
					"second_instance": cur.instance.ID,
					"overlap_minutes": int(prev.end.Sub(cur.start).Minutes()),
				})
			}
		}
	}

	if len(violations) == 0 {
		return pass(c.Name())
	}
	return fail(c.Name(), len(violations), map[string]any{"overlaps": violations})
}
