package repo

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"devicemodel/internal/models"
	"devicemodel/internal/store"
)

// LinkWriter records that a component exposes a variable. Link must not block
// on storage and never reports failure to the caller.
type LinkWriter interface {
	Link(ctx context.Context, componentID, variableID uint)
}

// AsyncLinker upserts ComponentVariable rows in the background. Each write runs
// detached from the caller's cancellation under its own timeout; failures are
// logged and dropped.
type AsyncLinker struct {
	links   store.EntityStore[models.ComponentVariable]
	timeout time.Duration
	log     *zap.Logger
	wg      sync.WaitGroup
}

func NewAsyncLinker(links store.EntityStore[models.ComponentVariable], timeout time.Duration, log *zap.Logger) *AsyncLinker {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &AsyncLinker{links: links, timeout: timeout, log: log}
}

func (l *AsyncLinker) Link(ctx context.Context, componentID, variableID uint) {
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.timeout)
		defer cancel()
		_, _, err := l.links.Upsert(ctx, models.ComponentVariable{ComponentID: componentID, VariableID: variableID})
		if err != nil {
			l.log.Warn("link component variable",
				zap.Uint("component_id", componentID),
				zap.Uint("variable_id", variableID),
				zap.Error(err))
		}
	}()
}

// Wait blocks until every link started so far has finished.
func (l *AsyncLinker) Wait() { l.wg.Wait() }
