package secondary

import (
	"context"

	"github.com/example/roster/internal/models"
)

// SolveRequest is the input handed to the external solver.
type SolveRequest struct {
	Instances []*models.TourInstance
	Seed      int64
	Config    map[string]any
}

// SolveResult is the solver's output. DriverID, TourInstanceID, Day,
// BlockID and Role are filled by the solver; ids and the owning plan are
// assigned by the caller.
type SolveResult struct {
	Assignments []*models.Assignment
}

// Solver defines the secondary port for the external optimization
// algorithm. Implementations must be deterministic: identical instances,
// seed and config produce an identical assignment set. The core never
// inspects solver internals, only its output and the hash of its effective
// configuration.
type Solver interface {
	Solve(ctx context.Context, req SolveRequest) (*SolveResult, error)
}
