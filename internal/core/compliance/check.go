// Package compliance contains the audit check battery. Each check is a
// pure function over a fully-assigned plan: no I/O, no shared mutable
// state, no side effects beyond its own result. The audit service runs
// checks concurrently and commits all results as one batch.
package compliance

import (
	"fmt"
	"time"

	"github.com/example/roster/internal/models"
)

// Check statuses.
const (
	StatusPass = "pass"
	StatusFail = "fail"
	StatusWarn = "warn"
)

// Config holds the tunable compliance thresholds.
type Config struct {
	MinRestHours         int // minimum rest between consecutive working days
	MaxSpanHours         int // maximum elapsed time of a non-split block
	SplitGapMinutes      int // exact required gap between split-shift parts
	MaxSplitSpanHours    int // maximum total span of a split block
	FatigueTourThreshold int // tours per day that make a day "high-count"
}

// DefaultConfig returns the regulatory defaults.
func DefaultConfig() Config {
	return Config{
		MinRestHours:         11,
		MaxSpanHours:         14,
		SplitGapMinutes:      360,
		MaxSplitSpanHours:    16,
		FatigueTourThreshold: 3,
	}
}

// Input is everything a check may read. Checks must not mutate it.
type Input struct {
	Plan        *models.PlanVersion
	Assignments []*models.Assignment
	Instances   []*models.TourInstance
	Config      Config
}

// Result is the outcome of one check run.
type Result struct {
	Check          string
	Status         string
	ViolationCount int
	Details        map[string]any
}

// Check is one compliance rule. Blocking checks must pass before a plan can
// be locked; non-blocking checks are advisory.
type Check interface {
	Name() string
	Blocking() bool
	Run(in Input) Result
}

// Battery returns the fixed check battery in registration order. The
// reproducibility check needs the solver and is registered by the audit
// service on top of these.
func Battery() []Check {
	return []Check{
		CoverageCheck{},
		OverlapCheck{},
		RestCheck{},
		SpanCheck{},
		SplitSpanCheck{},
		FatigueCheck{},
	}
}

func pass(name string) Result {
	return Result{Check: name, Status: StatusPass, Details: map[string]any{}}
}

func fail(name string, violations int, details map[string]any) Result {
	return Result{Check: name, Status: StatusFail, ViolationCount: violations, Details: details}
}

// interval is an assignment placed on the absolute timeline.
type interval struct {
	assignment *models.Assignment
	instance   *models.TourInstance
	start      time.Time
	end        time.Time
}

// absInterval resolves an instance's wall-clock day and times to absolute
// start/end. Cross-midnight tours end on the following day, so overlap and
// rest arithmetic never compares wall-clock time-of-day.
func absInterval(inst *models.TourInstance) (time.Time, time.Time, error) {
	day, err := time.Parse("2006-01-02", inst.Day)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("instance %s: bad day %q: %w", inst.ID, inst.Day, err)
	}
	start, err := clockOffset(inst.StartTime)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("instance %s: bad start %q: %w", inst.ID, inst.StartTime, err)
	}
	end, err := clockOffset(inst.EndTime)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("instance %s: bad end %q: %w", inst.ID, inst.EndTime, err)
	}
	absStart := day.Add(start)
	absEnd := day.Add(end)
	if inst.CrossMidnight || !absEnd.After(absStart) {
		absEnd = absEnd.Add(24 * time.Hour)
	}
	return absStart, absEnd, nil
}

func clockOffset(hhmm string) (time.Duration, error) {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return 0, err
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

// driverIntervals resolves every assignment to an absolute interval,
// grouped by driver. Returns an error result when instance data cannot be
// parsed, which individual checks surface as a failure.
func driverIntervals(in Input) (map[string][]interval, error) {
	instances := make(map[string]*models.TourInstance, len(in.Instances))
	for _, inst := range in.Instances {
		instances[inst.ID] = inst
	}

	byDriver := make(map[string][]interval)
	for _, a := range in.Assignments {
		inst, ok := instances[a.TourInstanceID]
		if !ok {
			// Coverage reports dangling assignments; timeline checks skip them.
			continue
		}
		start, end, err := absInterval(inst)
		if err != nil {
			return nil, err
		}
		byDriver[a.DriverID] = append(byDriver[a.DriverID], interval{
			assignment: a,
			instance:   inst,
			start:      start,
			end:        end,
		})
	}
	return byDriver, nil
}

func invalidData(name string, err error) Result {
	return Result{
		Check:          name,
		Status:         StatusFail,
		ViolationCount: 1,
		Details:        map[string]any{"error": err.Error()},
	}
}
