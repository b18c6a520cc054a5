package automation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/simatecve/contact-pulse-engine-sub000/internal/storage"
)

// Registry resuelve nombres simbólicos de endpoint al URL saliente,
// leyendo la tabla webhook_endpoints con una ventana corta de staleness.
type Registry struct {
	repo       storage.WebhookEndpointRepository
	refreshTTL time.Duration
	log        *zap.Logger

	mu        sync.Mutex
	cache     map[string]string
	fetchedAt time.Time
	now       func() time.Time
}

func NewRegistry(repo storage.WebhookEndpointRepository, refreshTTL time.Duration, log *zap.Logger) *Registry {
	if refreshTTL <= 0 {
		refreshTTL = 60 * time.Second
	}
	return &Registry{
		repo:       repo,
		refreshTTL: refreshTTL,
		log:        log,
		now:        time.Now,
	}
}

// Resolve devuelve el URL para un nombre de endpoint. Si el nombre no está
// registrado devuelve ErrEndpointNotConfigured con el nombre incluido.
func (r *Registry) Resolve(ctx context.Context, name string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cache == nil || r.now().Sub(r.fetchedAt) >= r.refreshTTL {
		if err := r.refreshLocked(ctx); err != nil {
			if r.cache == nil {
				return "", fmt.Errorf("automation: leer registro de endpoints: %w", err)
			}
			// con cache previo servimos stale y avisamos
			r.log.Warn("registry: no se pudo refrescar, usando cache",
				zap.Error(err),
				zap.Duration("edad", r.now().Sub(r.fetchedAt)),
			)
		}
	}

	url, ok := r.cache[name]
	if !ok || url == "" {
		return "", fmt.Errorf("%w: %s", ErrEndpointNotConfigured, name)
	}
	return url, nil
}

func (r *Registry) refreshLocked(ctx context.Context) error {
	endpoints, err := r.repo.List(ctx)
	if err != nil {
		return err
	}

	cache := make(map[string]string, len(endpoints))
	for _, ep := range endpoints {
		cache[ep.Name] = ep.URL
	}
	r.cache = cache
	r.fetchedAt = r.now()
	return nil
}

// Invalidate fuerza un refresh en el próximo Resolve. La usa el handler de
// administración después de modificar la tabla.
func (r *Registry) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fetchedAt = time.Time{}
}
