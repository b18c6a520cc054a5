package breaker

import (
	"fmt"
	"sync"
	"time"
)

const (
	// DefaultMaxFailures es la cantidad de fallas consecutivas que abren el circuito.
	DefaultMaxFailures = 3
	// DefaultResetTimeout es la espera antes de volver a intentar con el circuito abierto.
	DefaultResetTimeout = 30 * time.Second
)

// OpenError indica que el circuito para una clave está abierto.
type OpenError struct {
	Key        string
	RetryAfter time.Duration
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("breaker: circuito abierto para %s, reintentar en %s", e.Key, e.RetryAfter.Round(time.Second))
}

type state struct {
	failures    int
	lastFailure time.Time
	open        bool
}

// Registry lleva el estado de circuito por clave lógica de endpoint.
// Se construye una vez por proceso y se inyecta en el executor.
type Registry struct {
	mu           sync.Mutex
	states       map[string]*state
	maxFailures  int
	resetTimeout time.Duration
	now          func() time.Time
}

func NewRegistry(maxFailures int, resetTimeout time.Duration) *Registry {
	if maxFailures <= 0 {
		maxFailures = DefaultMaxFailures
	}
	if resetTimeout <= 0 {
		resetTimeout = DefaultResetTimeout
	}
	return &Registry{
		states:       make(map[string]*state),
		maxFailures:  maxFailures,
		resetTimeout: resetTimeout,
		now:          time.Now,
	}
}

// CanAttempt reporta si se permite una llamada para la clave. Si el circuito
// está abierto pero ya pasó el cooldown, se resetea y se permite el intento.
// Con el circuito abierto devuelve *OpenError con el tiempo de espera restante.
func (r *Registry) CanAttempt(key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.states[key]
	if !ok || !st.open {
		return nil
	}

	elapsed := r.now().Sub(st.lastFailure)
	if elapsed >= r.resetTimeout {
		st.failures = 0
		st.open = false
		return nil
	}

	return &OpenError{Key: key, RetryAfter: r.resetTimeout - elapsed}
}

// RecordFailure suma una falla; al llegar al umbral el circuito se abre.
func (r *Registry) RecordFailure(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	st := r.stateFor(key)
	st.failures++
	st.lastFailure = r.now()
	if st.failures >= r.maxFailures {
		st.open = true
	}
}

// RecordSuccess cierra el circuito y limpia el contador de fallas.
func (r *Registry) RecordSuccess(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	st := r.stateFor(key)
	st.failures = 0
	st.open = false
}

// Snapshot devuelve el estado actual de una clave, para diagnóstico.
func (r *Registry) Snapshot(key string) (failures int, open bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.states[key]
	if !ok {
		return 0, false
	}
	return st.failures, st.open
}

func (r *Registry) stateFor(key string) *state {
	st, ok := r.states[key]
	if !ok {
		st = &state{}
		r.states[key] = st
	}
	return st
}
