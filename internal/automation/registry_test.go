package automation

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/simatecve/contact-pulse-engine-sub000/internal/storage/model"
)

type fakeEndpointRepo struct {
	endpoints []model.WebhookEndpoint
	err       error
	listCalls int
}

func (f *fakeEndpointRepo) List(context.Context) ([]model.WebhookEndpoint, error) {
	f.listCalls++
	return f.endpoints, f.err
}

func (f *fakeEndpointRepo) GetByName(context.Context, string) (model.WebhookEndpoint, error) {
	return model.WebhookEndpoint{}, errors.New("no usado")
}

func (f *fakeEndpointRepo) Upsert(_ context.Context, ep model.WebhookEndpoint) (model.WebhookEndpoint, error) {
	return ep, nil
}

func (f *fakeEndpointRepo) Delete(context.Context, string) error { return nil }

func TestResolveCachesWithinTTL(t *testing.T) {
	repo := &fakeEndpointRepo{endpoints: []model.WebhookEndpoint{
		{Name: EndpointQR, URL: "https://n8n.example/qr"},
	}}
	reg := NewRegistry(repo, 60*time.Second, zap.NewNop())

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	reg.now = func() time.Time { return now }

	for i := 0; i < 5; i++ {
		url, err := reg.Resolve(context.Background(), EndpointQR)
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		if url != "https://n8n.example/qr" {
			t.Fatalf("url = %q", url)
		}
	}
	if repo.listCalls != 1 {
		t.Fatalf("dentro del TTL debería leer la tabla una sola vez, leyó %d", repo.listCalls)
	}

	now = now.Add(61 * time.Second)
	if _, err := reg.Resolve(context.Background(), EndpointQR); err != nil {
		t.Fatalf("Resolve tras TTL: %v", err)
	}
	if repo.listCalls != 2 {
		t.Fatalf("pasado el TTL debería refrescar, leyó %d veces", repo.listCalls)
	}
}

func TestResolveUnknownName(t *testing.T) {
	repo := &fakeEndpointRepo{}
	reg := NewRegistry(repo, 60*time.Second, zap.NewNop())

	_, err := reg.Resolve(context.Background(), EndpointQR)
	if !errors.Is(err, ErrEndpointNotConfigured) {
		t.Fatalf("se esperaba ErrEndpointNotConfigured, fue %v", err)
	}
}

func TestResolveServesStaleOnRefreshFailure(t *testing.T) {
	repo := &fakeEndpointRepo{endpoints: []model.WebhookEndpoint{
		{Name: EndpointQR, URL: "https://n8n.example/qr"},
	}}
	reg := NewRegistry(repo, 60*time.Second, zap.NewNop())

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	reg.now = func() time.Time { return now }

	if _, err := reg.Resolve(context.Background(), EndpointQR); err != nil {
		t.Fatalf("primer Resolve: %v", err)
	}

	repo.err = errors.New("tabla caída")
	now = now.Add(2 * time.Minute)

	url, err := reg.Resolve(context.Background(), EndpointQR)
	if err != nil {
		t.Fatalf("con cache previo debería servir stale: %v", err)
	}
	if url != "https://n8n.example/qr" {
		t.Fatalf("url = %q", url)
	}
}
