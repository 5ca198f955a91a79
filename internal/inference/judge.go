package inference

import (
	"context"

	"github.com/plantops/watering-advisor/internal/model"
	"github.com/plantops/watering-advisor/internal/prompt"
)

// Judge is the capability boundary to the external inference service. The
// orchestrator and the guard depend only on this contract, so tests can
// substitute a deterministic stub.
type Judge interface {
	Infer(ctx context.Context, p prompt.Payload) (model.DecisionResponse, error)
}
