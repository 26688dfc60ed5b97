package app

import (
	"context"

	"github.com/skillcoder/graceful-coordinator/internal/infra/shutdown"
)

// component is a background service started by Run and stopped after the drain
type component interface {
	shutdown.Shutdowner
	Start(ctx context.Context) error
}
