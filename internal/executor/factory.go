// Package executor selects the analysis backend used by the processing workers.
package executor

import (
	"fmt"

	"github.com/kiranshivaraju/mediaqueue/internal/config"
	"github.com/kiranshivaraju/mediaqueue/internal/executor/mock"
	"github.com/kiranshivaraju/mediaqueue/internal/executor/remote"
	"github.com/kiranshivaraju/mediaqueue/pkg/models"
)

// NewExecutor constructs the task executor named by cfg.Provider.
// Called once at server startup.
func NewExecutor(cfg config.ExecutorConfig) (models.TaskExecutor, error) {
	switch cfg.Provider {
	case "remote":
		return remote.NewExecutor(cfg.Remote), nil
	case "mock":
		return mock.NewMockExecutor(), nil
	default:
		return nil, fmt.Errorf("unknown executor provider %q: must be one of remote, mock", cfg.Provider)
	}
}
