package breaker

import (
	"errors"
	"testing"
	"time"
)

func newTestRegistry(now *time.Time) *Registry {
	r := NewRegistry(3, 30*time.Second)
	r.now = func() time.Time { return *now }
	return r
}

func TestOpensAfterThreshold(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	r := newTestRegistry(&now)

	for i := 0; i < 2; i++ {
		r.RecordFailure("webhook-qr")
		if err := r.CanAttempt("webhook-qr"); err != nil {
			t.Fatalf("con %d fallas el circuito no debería abrirse: %v", i+1, err)
		}
	}

	r.RecordFailure("webhook-qr")
	if err := r.CanAttempt("webhook-qr"); err == nil {
		t.Fatal("con 3 fallas el circuito debería estar abierto")
	}

	// una cuarta falla lo mantiene abierto
	r.RecordFailure("webhook-qr")
	var openErr *OpenError
	if err := r.CanAttempt("webhook-qr"); !errors.As(err, &openErr) {
		t.Fatalf("se esperaba *OpenError, se obtuvo %v", err)
	} else if openErr.Key != "webhook-qr" {
		t.Fatalf("clave inesperada en el error: %q", openErr.Key)
	}
}

func TestResetsAfterCooldown(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	r := newTestRegistry(&now)

	for i := 0; i < 3; i++ {
		r.RecordFailure("webhook-qr")
	}

	now = now.Add(29 * time.Second)
	if err := r.CanAttempt("webhook-qr"); err == nil {
		t.Fatal("antes del cooldown el circuito debería seguir abierto")
	}

	now = now.Add(1 * time.Second)
	if err := r.CanAttempt("webhook-qr"); err != nil {
		t.Fatalf("pasado el cooldown debería permitir el intento: %v", err)
	}

	if failures, open := r.Snapshot("webhook-qr"); failures != 0 || open {
		t.Fatalf("el reset debería limpiar el estado: failures=%d open=%v", failures, open)
	}
}

func TestKeysAreIsolated(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	r := newTestRegistry(&now)

	for i := 0; i < 5; i++ {
		r.RecordFailure("webhook-qr")
	}

	if err := r.CanAttempt("webhook-crear-instancia"); err != nil {
		t.Fatalf("las fallas de una clave no deben afectar otra: %v", err)
	}
}

func TestSuccessClosesCircuit(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	r := newTestRegistry(&now)

	for i := 0; i < 3; i++ {
		r.RecordFailure("webhook-estatus-instancia")
	}
	r.RecordSuccess("webhook-estatus-instancia")

	if err := r.CanAttempt("webhook-estatus-instancia"); err != nil {
		t.Fatalf("un éxito debería cerrar el circuito: %v", err)
	}
	if failures, open := r.Snapshot("webhook-estatus-instancia"); failures != 0 || open {
		t.Fatalf("estado inesperado tras éxito: failures=%d open=%v", failures, open)
	}
}

func TestRetryAfterGuidance(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	r := newTestRegistry(&now)

	for i := 0; i < 3; i++ {
		r.RecordFailure("webhook-qr")
	}

	now = now.Add(10 * time.Second)
	err := r.CanAttempt("webhook-qr")
	var openErr *OpenError
	if !errors.As(err, &openErr) {
		t.Fatalf("se esperaba *OpenError, se obtuvo %v", err)
	}
	if openErr.RetryAfter != 20*time.Second {
		t.Fatalf("RetryAfter = %s, se esperaba 20s", openErr.RetryAfter)
	}
}
