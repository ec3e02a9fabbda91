// Package solver provides the built-in rostering solver: a seeded greedy
// assignment over a fixed driver pool. It stands in for an external
// optimizer behind the same port.
package solver

import (
	"context"
	"fmt"
	"math/rand"
	"sort"

	"github.com/example/roster/internal/models"
	"github.com/example/roster/internal/ports/secondary"
)

const defaultPoolSize = 20

// Greedy assigns each tour instance to the first free driver of a
// seed-shuffled pool. Identical instances, seed and config always produce an
// identical assignment set: the instance order is a total order over tour
// fields, the pool order depends only on the seed, and no map iteration
// reaches the output.
type Greedy struct{}

// NewGreedy creates the built-in solver.
func NewGreedy() *Greedy {
	return &Greedy{}
}

// Solve produces one assignment per instance. Every instance is assigned
// even when no conflict-free driver remains; the audit battery is the place
// that judges the result.
func (s *Greedy) Solve(ctx context.Context, req secondary.SolveRequest) (*secondary.SolveResult, error) {
	instances := make([]*models.TourInstance, len(req.Instances))
	copy(instances, req.Instances)
	sort.Slice(instances, func(i, j int) bool {
		a, b := instances[i], instances[j]
		if a.Day != b.Day {
			return a.Day < b.Day
		}
		if a.StartTime != b.StartTime {
			return a.StartTime < b.StartTime
		}
		if a.Fingerprint != b.Fingerprint {
			return a.Fingerprint < b.Fingerprint
		}
		return a.Slot < b.Slot
	})

	pool := driverPool(req.Config, req.Seed)
	busy := make(map[string][]*models.TourInstance) // driver -> tours
	splitDriver := make(map[string]string)          // day/group -> driver

	result := &secondary.SolveResult{}
	for _, inst := range instances {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		driver := pickDriver(inst, pool, busy, splitDriver)
		busy[driver] = append(busy[driver], inst)
		if inst.SplitGroup != "" {
			splitDriver[splitGroupKey(inst)] = driver
		}

		result.Assignments = append(result.Assignments, &models.Assignment{
			DriverID:       driver,
			TourInstanceID: inst.ID,
			Day:            inst.Day,
			BlockID:        blockID(inst),
			Role:           "driver",
		})
	}
	return result, nil
}

// pickDriver returns the split partner's driver when one exists, otherwise
// the first pool driver free at the instance's time. A full pool falls back
// to plain rotation; the overlap check will report it.
func pickDriver(inst *models.TourInstance, pool []string, busy map[string][]*models.TourInstance, splitDriver map[string]string) string {
	if inst.SplitGroup != "" {
		if driver, ok := splitDriver[splitGroupKey(inst)]; ok {
			return driver
		}
	}
	for _, driver := range pool {
		if !conflicts(inst, busy[driver]) {
			return driver
		}
	}
	return pool[len(busy)%len(pool)]
}

func conflicts(inst *models.TourInstance, assigned []*models.TourInstance) bool {
	for _, other := range assigned {
		if other.Day != inst.Day {
			continue
		}
		if inst.StartTime < endForOverlap(other) && other.StartTime < endForOverlap(inst) {
			return true
		}
	}
	return false
}

// endForOverlap clamps cross-midnight tours to end-of-day for the same-day
// comparison; the tail into the next day is the rest check's concern.
func endForOverlap(inst *models.TourInstance) string {
	if inst.CrossMidnight || inst.EndTime <= inst.StartTime {
		return "24:00"
	}
	return inst.EndTime
}

// blockID groups the parts of a split shift into one duty block; everything
// else is its own block.
func blockID(inst *models.TourInstance) string {
	if inst.SplitGroup != "" {
		return fmt.Sprintf("%s/%s", inst.Day, inst.SplitGroup)
	}
	fp := inst.Fingerprint
	if len(fp) > 12 {
		fp = fp[:12]
	}
	return fmt.Sprintf("%s/%s/%d", inst.Day, fp, inst.Slot)
}

func splitGroupKey(inst *models.TourInstance) string {
	return inst.Day + "/" + inst.SplitGroup
}

// driverPool builds the seed-shuffled pool. Pool size comes from the solver
// config when present.
func driverPool(config map[string]any, seed int64) []string {
	size := defaultPoolSize
	if v, ok := config["driver_pool_size"]; ok {
		switch n := v.(type) {
		case int:
			size = n
		case int64:
			size = int(n)
		case float64:
			size = int(n)
		}
	}
	if size < 1 {
		size = 1
	}

	pool := make([]string, size)
	for i := range pool {
		pool[i] = fmt.Sprintf("driver-%03d", i+1)
	}
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})
	return pool
}

// Ensure Greedy implements the interface
var _ secondary.Solver = (*Greedy)(nil)
