package solver

import (
	"context"
	"fmt"
	"testing"

	"github.com/example/roster/internal/models"
	"github.com/example/roster/internal/ports/secondary"
)

func makeInstances(n int) []*models.TourInstance {
	var instances []*models.TourInstance
	for i := 0; i < n; i++ {
		instances = append(instances, &models.TourInstance{
			ID:          fmt.Sprintf("ti-%03d", i),
			Fingerprint: fmt.Sprintf("fp-%03d", i),
			Day:         "2026-03-02",
			StartTime:   "08:00",
			EndTime:     "16:00",
			Depot:       "north",
			Skill:       "standard",
			Slot:        0,
		})
	}
	return instances
}

func TestGreedy_AssignsEveryInstance(t *testing.T) {
	s := NewGreedy()
	instances := makeInstances(5)

	result, err := s.Solve(context.Background(), secondary.SolveRequest{
		Instances: instances,
		Seed:      1,
	})
	if err != nil {
		t.Fatalf("Solve failed: %v", err)
	}
	if len(result.Assignments) != 5 {
		t.Fatalf("expected 5 assignments, got %d", len(result.Assignments))
	}

	seen := map[string]bool{}
	for _, a := range result.Assignments {
		if seen[a.TourInstanceID] {
			t.Errorf("instance %s assigned twice", a.TourInstanceID)
		}
		seen[a.TourInstanceID] = true
		if a.DriverID == "" || a.BlockID == "" {
			t.Errorf("incomplete assignment: %+v", a)
		}
	}
}

func TestGreedy_Deterministic(t *testing.T) {
	s := NewGreedy()
	instances := makeInstances(12)
	req := secondary.SolveRequest{Instances: instances, Seed: 42, Config: map[string]any{"driver_pool_size": 6}}

	first, err := s.Solve(context.Background(), req)
	if err != nil {
		t.Fatalf("Solve failed: %v", err)
	}
	second, err := s.Solve(context.Background(), req)
	if err != nil {
		t.Fatalf("Solve failed: %v", err)
	}

	if len(first.Assignments) != len(second.Assignments) {
		t.Fatalf("assignment counts differ: %d vs %d", len(first.Assignments), len(second.Assignments))
	}
	for i := range first.Assignments {
		a, b := first.Assignments[i], second.Assignments[i]
		if a.DriverID != b.DriverID || a.TourInstanceID != b.TourInstanceID || a.BlockID != b.BlockID {
			t.Errorf("run diverged at %d: %+v vs %+v", i, a, b)
		}
	}
}

func TestGreedy_InputOrderIrrelevant(t *testing.T) {
	s := NewGreedy()
	instances := makeInstances(8)
	reversed := make([]*models.TourInstance, len(instances))
	for i, inst := range instances {
		reversed[len(instances)-1-i] = inst
	}

	first, err := s.Solve(context.Background(), secondary.SolveRequest{Instances: instances, Seed: 7})
	if err != nil {
		t.Fatalf("Solve failed: %v", err)
	}
	second, err := s.Solve(context.Background(), secondary.SolveRequest{Instances: reversed, Seed: 7})
	if err != nil {
		t.Fatalf("Solve failed: %v", err)
	}

	byInstance := map[string]string{}
	for _, a := range first.Assignments {
		byInstance[a.TourInstanceID] = a.DriverID
	}
	for _, a := range second.Assignments {
		if byInstance[a.TourInstanceID] != a.DriverID {
			t.Errorf("instance %s got different drivers across input orders", a.TourInstanceID)
		}
	}
}

func TestGreedy_NoOverlapWhenPoolSuffices(t *testing.T) {
	s := NewGreedy()
	// Three concurrent tours, pool of three.
	instances := makeInstances(3)

	result, err := s.Solve(context.Background(), secondary.SolveRequest{
		Instances: instances,
		Seed:      3,
		Config:    map[string]any{"driver_pool_size": 3},
	})
	if err != nil {
		t.Fatalf("Solve failed: %v", err)
	}

	drivers := map[string]bool{}
	for _, a := range result.Assignments {
		if drivers[a.DriverID] {
			t.Errorf("driver %s assigned to overlapping tours", a.DriverID)
		}
		drivers[a.DriverID] = true
	}
}

func TestGreedy_SplitPartsShareDriverAndBlock(t *testing.T) {
	s := NewGreedy()
	instances := []*models.TourInstance{
		{ID: "ti-am", Fingerprint: "fp-am", Day: "2026-03-02", StartTime: "06:00", EndTime: "10:00", SplitGroup: "sg-1"},
		{ID: "ti-pm", Fingerprint: "fp-pm", Day: "2026-03-02", StartTime: "16:00", EndTime: "20:00", SplitGroup: "sg-1"},
		{ID: "ti-other", Fingerprint: "fp-x", Day: "2026-03-02", StartTime: "08:00", EndTime: "12:00"},
	}

	result, err := s.Solve(context.Background(), secondary.SolveRequest{Instances: instances, Seed: 9})
	if err != nil {
		t.Fatalf("Solve failed: %v", err)
	}

	byID := map[string]*models.Assignment{}
	for _, a := range result.Assignments {
		byID[a.TourInstanceID] = a
	}
	am, pm := byID["ti-am"], byID["ti-pm"]
	if am.DriverID != pm.DriverID {
		t.Errorf("split parts have different drivers: %s vs %s", am.DriverID, pm.DriverID)
	}
	if am.BlockID != pm.BlockID {
		t.Errorf("split parts have different blocks: %s vs %s", am.BlockID, pm.BlockID)
	}
	if byID["ti-other"].BlockID == am.BlockID {
		t.Error("unrelated tour landed in the split block")
	}
}

func TestGreedy_CancelledContext(t *testing.T) {
	s := NewGreedy()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Solve(ctx, secondary.SolveRequest{Instances: makeInstances(3), Seed: 1})
	if err == nil {
		t.Fatal("expected error from cancelled context")
	}
}
