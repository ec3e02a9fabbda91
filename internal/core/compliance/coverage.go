package compliance

// CoverageCheck verifies that every tour instance of the plan's forecast
// has exactly one assignment.
type CoverageCheck struct{}

func (CoverageCheck) Name() string   { return "coverage" }
func (CoverageCheck) Blocking() bool { return true }

func (c CoverageCheck) Run(in Input) Result {
	assigned := make(map[string]int)
	known := make(map[string]bool, len(in.Instances))
	for _, inst := range in.Instances {
		known[inst.ID] = true
	}

	var unknown []string
	for _, a := range in.Assignments {
		assigned[a.TourInstanceID]++
		if !known[a.TourInstanceID] {
			unknown = append(unknown, a.TourInstanceID)
		}
	}

	var missing, duplicated []string
	for _, inst := range in.Instances {
		switch n := assigned[inst.ID]; {
		case n == 0:
			missing = append(missing, inst.ID)
		case n > 1:
			duplicated = append(duplicated, inst.ID)
		}
	}

	violations := len(missing) + len(duplicated) + len(unknown)
	if violations == 0 {
		return pass(c.Name())
	}
	details := map[string]any{}
	if len(missing) > 0 {
		details["missing_instances"] = missing
	}
	if len(duplicated) > 0 {
		details["duplicated_instances"] = duplicated
	}
	if len(unknown) > 0 {
		details["unknown_instances"] = unknown
	}
	return fail(c.Name(), violations, details)
}
