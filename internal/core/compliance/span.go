package compliance

import (
	"sort"
	"time"
)

// SpanCheck verifies that the elapsed time of every non-split block stays
// within the regular maximum. A block is a driver's same-day assignments
// sharing a block id; split-shift blocks are handled by SplitSpanCheck.
type SpanCheck struct{}

func (SpanCheck) Name() string   { return "span_regular" }
func (SpanCheck) Blocking() bool { return true }

func (c SpanCheck) Run(in Input) Result {
	byDriver, err := driverIntervals(in)
	if err != nil {
		return invalidData(c.Name(), err)
	}
	max := time.Duration(in.Config.MaxSpanHours) * time.Hour

	var violations []map[string]any
	for driver, ivs := range byDriver {
		for _, block := range groupBlocks(ivs) {
			if block.split {
				continue
			}
			span := block.last.Sub(block.first)
			if span > max {
				violations = append(violations, map[string]any{
					"driver":       driver,
					"day":          block.day,
					"block":        block.id,
					"span_minutes": int(span.Minutes()),
					"max_minutes":  int(max.Minutes()),
				})
			}
		}
	}

	if len(violations) == 0 {
		return pass(c.Name())
	}
	return fail(c.Name(), len(violations), map[string]any{"span_violations": violations})
}

// SplitSpanCheck verifies split-shift blocks: the gap between the parts
// sharing a split-group key must equal the configured value exactly, and
// the total span must stay within the split maximum.
type SplitSpanCheck struct{}

func (SplitSpanCheck) Name() string   { return "span_split" }
func (SplitSpanCheck) Blocking() bool { return true }

func (c SplitSpanCheck) Run(in Input) Result {
	byDriver, err := driverIntervals(in)
	if err != nil {
		return invalidData(c.Name(), err)
	}
	requiredGap := time.Duration(in.Config.SplitGapMinutes) * time.Minute
	maxSpan := time.Duration(in.Config.MaxSplitSpanHours) * time.Hour

	var violations []map[string]any
	for driver, ivs := range byDriver {
		// Parts of one split shift: same day, same split-group key.
		groups := make(map[string][]interval)
		for _, iv := range ivs {
			if iv.instance.SplitGroup == "" {
				continue
			}
			key := iv.assignment.Day + "|" + iv.instance.SplitGroup
			groups[key] = append(groups[key], iv)
		}

		for _, parts := range groups {
			if len(parts) < 2 {
				continue
			}
			sort.Slice(parts, func(i, j int) bool { return parts[i].start.Before(parts[j].start) })

			for i := 1; i < len(parts); i++ {
				gap := parts[i].start.Sub(parts[i-1].end)
				if gap != requiredGap {
					violations = append(violations, map[string]any{
						"driver":           driver,
						"day":              parts[i].assignment.Day,
						"split_group":      parts[i].instance.SplitGroup,
						"break_minutes":    int(gap.Minutes()),
						"required_minutes": int(requiredGap.Minutes()),
					})
				}
			}

			span := parts[len(parts)-1].end.Sub(parts[0].start)
			if span > maxSpan {
				violations = append(violations, map[string]any{
					"driver":       driver,
					"day":          parts[0].assignment.Day,
					"split_group":  parts[0].instance.SplitGroup,
					"span_minutes": int(span.Minutes()),
					"max_minutes":  int(maxSpan.Minutes()),
				})
			}
		}
	}

	if len(violations) == 0 {
		return pass(c.Name())
	}
	return fail(c.Name(), len(violations), map[string]any{"split_violations": violations})
}

type block struct {
	id    string
	day   string
	first time.Time
	last  time.Time
	split bool
}

func groupBlocks(ivs []interval) []*block {
	byKey := make(map[string]*block)
	var order []string
	for _, iv := range ivs {
		key := iv.assignment.Day + "|" + iv.assignment.BlockID
		b := byKey[key]
		if b == nil {
			b = &block{id: iv.assignment.BlockID, day: iv.assignment.Day, first: iv.start, last: iv.end}
			byKey[key] = b
			order = append(order, key)
		}
		if iv.start.Before(b.first) {
			b.first = iv.start
		}
		if iv.end.After(b.last) {
			b.last = iv.end
		}
		if iv.instance.SplitGroup != "" {
			b.split = true
		}
	}
	blocks := make([]*block, len(order))
	for i, key := range order {
		blocks[i] = byKey[key]
	}
	return blocks
}
