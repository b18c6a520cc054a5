package automation

import (
	"errors"
	"fmt"
)

var (
	// ErrEndpointNotConfigured: el nombre no tiene URL en el registro. No se
	// reintenta sin que un operador corrija la configuración.
	ErrEndpointNotConfigured = errors.New("automation: endpoint sin URL configurada")

	// ErrTimeout: la automatización no respondió dentro del plazo.
	ErrTimeout = errors.New("automation: la automatización no respondió a tiempo")

	// ErrMalformedResponse: la respuesta llegó pero no tiene la forma esperada.
	// Distinto de "sin QR disponible", que no es un error.
	ErrMalformedResponse = errors.New("automation: respuesta con forma inesperada")
)

// CallError envuelve una falla de transporte o una respuesta no-2xx.
type CallError struct {
	Endpoint string
	Status   int
	Body     string
	Err      error
}

func (e *CallError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("automation: %s respondió %d: %s", e.Endpoint, e.Status, e.Body)
	}
	return fmt.Sprintf("automation: llamada a %s falló: %v", e.Endpoint, e.Err)
}

func (e *CallError) Unwrap() error { return e.Err }
