package automation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/simatecve/contact-pulse-engine-sub000/internal/pkg/breaker"
)

const breakerKeyPrefix = "webhook-"

// Resolver traduce un nombre de endpoint a su URL saliente.
type Resolver interface {
	Resolve(ctx context.Context, name string) (string, error)
}

// Executor hace exactamente una llamada saliente por invocación, protegida
// por el circuit breaker. No reintenta: el reintento lo decide el caller.
type Executor struct {
	resolver Resolver
	breaker  *breaker.Registry
	client   *http.Client
	log      *zap.Logger
}

func NewExecutor(resolver Resolver, breakerReg *breaker.Registry, timeout time.Duration, log *zap.Logger) *Executor {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Executor{
		resolver: resolver,
		breaker:  breakerReg,
		client:   &http.Client{Timeout: timeout},
		log:      log,
	}
}

// Call resuelve el endpoint, consulta el breaker, hace el POST JSON y
// normaliza la respuesta. Un cuerpo 2xx que no es JSON válido se degrada a
// {"message": <texto crudo>} en lugar de fallar.
func (e *Executor) Call(ctx context.Context, endpoint string, payload any) (json.RawMessage, error) {
	url, err := e.resolver.Resolve(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	key := breakerKeyPrefix + endpoint
	if err := e.breaker.CanAttempt(key); err != nil {
		e.log.Warn("executor: circuito abierto, llamada bloqueada",
			zap.String("endpoint", endpoint),
		)
		return nil, err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("executor: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("executor: armar request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "ContactPulse/"+endpoint)

	resp, err := e.client.Do(req)
	if err != nil {
		e.breaker.RecordFailure(key)
		if isTimeout(err) {
			return nil, &CallError{Endpoint: endpoint, Err: ErrTimeout}
		}
		return nil, &CallError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	raw, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		raw = nil // best effort, el status ya alcanza para el diagnóstico
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		e.breaker.RecordFailure(key)
		e.log.Error("executor: respuesta no exitosa",
			zap.String("endpoint", endpoint),
			zap.Int("status", resp.StatusCode),
		)
		return nil, &CallError{Endpoint: endpoint, Status: resp.StatusCode, Body: string(raw)}
	}

	e.breaker.RecordSuccess(key)

	if json.Valid(raw) && len(bytes.TrimSpace(raw)) > 0 {
		return raw, nil
	}

	fallback, _ := json.Marshal(map[string]string{"message": string(raw)})
	return fallback, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
