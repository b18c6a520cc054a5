package model

import "time"

// ConnectionStatus es un enum cerrado: cualquier estado futuro (p. ej.
// "pairing") se agrega acá de forma deliberada, no con strings sueltos.
type ConnectionStatus string

const (
	ConnectionStatusDisconnected ConnectionStatus = "disconnected"
	ConnectionStatusConnected    ConnectionStatus = "connected"
)

// Connection representa una instancia de automatización de WhatsApp. El
// sistema externo se correlaciona por Name, no por ID.
type Connection struct {
	ID           string           `json:"id"`
	OwnerUserID  string           `json:"ownerUserId"`
	Name         string           `json:"name"`
	Color        string           `json:"color"`
	Status       ConnectionStatus `json:"status"`
	InstanceRef  *string          `json:"instanceRef,omitempty"`
	QRCode       *string          `json:"qrCode,omitempty"`
	NotifyURL    string           `json:"notifyUrl,omitempty"`
	NotifySecret string           `json:"-"`
	CreatedAt    time.Time        `json:"createdAt"`
	UpdatedAt    time.Time        `json:"updatedAt"`
}

// WebhookEndpoint mapea un nombre simbólico de endpoint al URL del flujo
// de n8n que lo atiende. Lo administra un operador, el engine solo lo lee.
type WebhookEndpoint struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	URL         string    `json:"url"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
}

// ConnectionEvent es una entrada del historial de eventos del ciclo de vida
// de una conexión (qr.updated, connection.connected, connection.deleted).
type ConnectionEvent struct {
	ID           string     `json:"id"`
	ConnectionID string     `json:"connectionId"`
	OwnerUserID  string     `json:"ownerUserId"`
	Type         string     `json:"type"`
	Payload      string     `json:"payload"`
	DeliveredAt  *time.Time `json:"deliveredAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}
