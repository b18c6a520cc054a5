package connection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/simatecve/contact-pulse-engine-sub000/internal/automation"
	"github.com/simatecve/contact-pulse-engine-sub000/internal/pkg/crypto"
	"github.com/simatecve/contact-pulse-engine-sub000/internal/pkg/queue"
	"github.com/simatecve/contact-pulse-engine-sub000/internal/qr"
	"github.com/simatecve/contact-pulse-engine-sub000/internal/storage"
	"github.com/simatecve/contact-pulse-engine-sub000/internal/storage/model"
)

var ErrInvalidName = errors.New("nombre de conexión inválido")

const defaultColor = "#3b82f6"

// Executor es la vista que el servicio tiene del ejecutor de automatización.
type Executor interface {
	Call(ctx context.Context, endpoint string, payload any) (json.RawMessage, error)
}

// LockManager serializa la creación de instancias con el mismo nombre entre
// réplicas. Puede ser nil (deploy de un solo nodo sin Redis).
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), acquired bool, err error)
}

// Service implementa el ciclo de vida de las conexiones: CRUD persistido,
// cache de QR en memoria y las llamadas al flujo de automatización.
type Service struct {
	repo      storage.ConnectionRepository
	events    storage.EventLogRepository
	exec      Executor
	queue     queue.Queue
	locks     LockManager
	log       *zap.Logger
	secretKey string

	mu      sync.Mutex
	loading map[string]bool
	qrCache map[string]string
}

type Options struct {
	Repo      storage.ConnectionRepository
	Events    storage.EventLogRepository
	Executor  Executor
	Queue     queue.Queue
	Locks     LockManager
	Logger    *zap.Logger
	SecretKey string
}

func NewService(opts Options) *Service {
	logr := opts.Logger
	if logr == nil {
		logr = zap.NewNop()
	}
	return &Service{
		repo:      opts.Repo,
		events:    opts.Events,
		exec:      opts.Executor,
		queue:     opts.Queue,
		locks:     opts.Locks,
		log:       logr,
		secretKey: opts.SecretKey,
		loading:   make(map[string]bool),
		qrCache:   make(map[string]string),
	}
}

type CreateInput struct {
	Name         string
	Color        string
	NotifyURL    string
	NotifySecret string
	OwnerUserID  string
}

// Create provisiona la instancia remota primero y recién entonces persiste
// el registro local: si la automatización falla no queda fila huérfana.
func (s *Service) Create(ctx context.Context, input CreateInput) (model.Connection, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return model.Connection{}, ErrInvalidName
	}
	color := strings.TrimSpace(input.Color)
	if color == "" {
		color = defaultColor
	}
	if strings.TrimSpace(input.NotifyURL) != "" && !strings.HasPrefix(strings.TrimSpace(input.NotifyURL), "http") {
		return model.Connection{}, errors.New("webhook de notificación inválido")
	}

	if s.locks != nil {
		release, acquired, err := s.locks.Acquire(ctx, "connection:create:"+name, 30*time.Second)
		if err != nil {
			s.log.Warn("create: no se pudo consultar el lock, continuando", zap.Error(err))
		} else if !acquired {
			return model.Connection{}, fmt.Errorf("ya hay una creación en curso para %q", name)
		} else {
			defer release()
		}
	}

	if _, err := s.exec.Call(ctx, automation.EndpointCreateInstance, automation.CreateInstanceRequest{
		Name:  name,
		Color: color,
	}); err != nil {
		return model.Connection{}, err
	}

	notifySecret := strings.TrimSpace(input.NotifySecret)
	if notifySecret != "" && s.secretKey != "" {
		sealed, err := crypto.EncryptString(notifySecret, s.secretKey)
		if err != nil {
			return model.Connection{}, fmt.Errorf("cifrar secreto de notificación: %w", err)
		}
		notifySecret = sealed
	}

	conn := model.Connection{
		ID:           uuid.NewString(),
		OwnerUserID:  input.OwnerUserID,
		Name:         name,
		Color:        color,
		Status:       model.ConnectionStatusDisconnected,
		NotifyURL:    strings.TrimSpace(input.NotifyURL),
		NotifySecret: notifySecret,
	}

	created, err := s.repo.Create(ctx, conn)
	if err != nil {
		return model.Connection{}, err
	}

	s.publishEvent(ctx, created, queue.EventConnectionCreated, map[string]any{"name": created.Name})
	return created, nil
}

func (s *Service) List(ctx context.Context, ownerUserID string) ([]model.Connection, error) {
	return s.repo.ListByOwner(ctx, ownerUserID)
}

func (s *Service) Get(ctx context.Context, id, ownerUserID string) (model.Connection, error) {
	return s.repo.GetForOwner(ctx, id, ownerUserID)
}

// RequestQR pide un código QR nuevo a la automatización. Devuelve el data
// URI mostrable, o "" cuando no hay QR disponible o ya hay un pedido en
// vuelo para esta conexión (el guard evita llamadas duplicadas).
func (s *Service) RequestQR(ctx context.Context, id, ownerUserID string) (string, error) {
	s.mu.Lock()
	if s.loading[id] {
		s.mu.Unlock()
		return "", nil
	}
	s.loading[id] = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.loading, id)
		s.mu.Unlock()
	}()

	conn, err := s.repo.GetForOwner(ctx, id, ownerUserID)
	if err != nil {
		return "", err
	}

	raw, err := s.exec.Call(ctx, automation.EndpointQR, automation.InstanceRequest{Name: conn.Name})
	if err != nil {
		return "", err
	}

	payload, err := automation.ParseQREnvelope(raw)
	if err != nil {
		return "", err
	}
	if payload == nil {
		// sin QR todavía: no es un error, el caller reintenta manualmente
		return "", nil
	}

	rawImage := payload.Base64
	if rawImage == "" {
		code := payload.Code
		if code == "" {
			code = payload.PairingCode
		}
		generated, err := qr.GenerateFromCode(code)
		if err != nil {
			return "", err
		}
		rawImage = generated
	} else if err := qr.Validate(rawImage); err != nil {
		// el upstream mandó un payload que no decodifica como imagen: no se
		// cachea ni se persiste, el caller distingue esto de una falla de fetch
		return "", err
	}

	uri := qr.Normalize(rawImage)

	s.mu.Lock()
	s.qrCache[id] = uri
	s.mu.Unlock()

	// persistencia best-effort: la UI ya tiene el QR en cache
	persisted := payload.Base64
	if persisted == "" {
		persisted = rawImage
	}
	if err := s.repo.UpdateQRCode(ctx, id, ownerUserID, &persisted); err != nil {
		s.log.Warn("qr: no se pudo persistir el código",
			zap.String("connection_id", id),
			zap.Error(err),
		)
	}

	s.publishEvent(ctx, conn, queue.EventQRUpdated, nil)
	return uri, nil
}

// CachedQR devuelve el último QR traído para la conexión, si existe.
func (s *Service) CachedQR(id string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	uri, ok := s.qrCache[id]
	return uri, ok
}

// IsLoading reporta si hay un pedido de QR en vuelo para la conexión.
func (s *Service) IsLoading(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading[id]
}

// MarkConnected es una transición puramente local confirmada por el usuario:
// el emparejamiento exitoso no se puede detectar desde acá. Conectado
// implica que no queda QR activo, ni en cache ni persistido.
func (s *Service) MarkConnected(ctx context.Context, id, ownerUserID string) error {
	conn, err := s.repo.GetForOwner(ctx, id, ownerUserID)
	if err != nil {
		return err
	}

	if err := s.repo.UpdateStatus(ctx, id, ownerUserID, model.ConnectionStatusConnected); err != nil {
		return err
	}
	if err := s.repo.UpdateQRCode(ctx, id, ownerUserID, nil); err != nil {
		s.log.Warn("mark connected: no se pudo limpiar el QR persistido",
			zap.String("connection_id", id),
			zap.Error(err),
		)
	}

	s.mu.Lock()
	delete(s.qrCache, id)
	s.mu.Unlock()

	s.publishEvent(ctx, conn, queue.EventConnectionConnected, nil)
	return nil
}

// CheckStatus dispara la consulta remota de estado. Es informativa: el
// estado local no se muta acá, lo actualiza el usuario o un flujo externo.
func (s *Service) CheckStatus(ctx context.Context, id, ownerUserID string) (json.RawMessage, error) {
	conn, err := s.repo.GetForOwner(ctx, id, ownerUserID)
	if err != nil {
		return nil, err
	}

	raw, err := s.exec.Call(ctx, automation.EndpointStatus, automation.InstanceRequest{Name: conn.Name})
	if err != nil {
		return nil, err
	}

	s.publishEvent(ctx, conn, queue.EventStatusChecked, nil)
	return raw, nil
}

// Delete borra la instancia remota con best effort: una instancia remota
// huérfana se recupera, un registro local trabado bloquea al usuario.
func (s *Service) Delete(ctx context.Context, id, ownerUserID string) error {
	conn, err := s.repo.GetForOwner(ctx, id, ownerUserID)
	if err != nil {
		return err
	}

	if _, err := s.exec.Call(ctx, automation.EndpointDeleteInstance, automation.InstanceRequest{Name: conn.Name}); err != nil {
		s.log.Warn("delete: la limpieza remota falló, se continúa con el borrado local",
			zap.String("connection_id", id),
			zap.String("name", conn.Name),
			zap.Error(err),
		)
	}

	if err := s.repo.DeleteForOwner(ctx, id, ownerUserID); err != nil {
		return err
	}

	// el historial se limpia recién con la fila borrada: si el borrado local
	// falla, la conexión conserva su auditoría
	if s.events != nil {
		if err := s.events.DeleteByConnectionID(ctx, id); err != nil {
			s.log.Warn("delete: no se pudo limpiar el historial de eventos",
				zap.String("connection_id", id),
				zap.Error(err),
			)
		}
	}

	s.mu.Lock()
	delete(s.qrCache, id)
	delete(s.loading, id)
	s.mu.Unlock()

	// la fila ya no existe cuando el notificador procese el evento, así que
	// el destino viaja en el payload
	if s.queue != nil && conn.NotifyURL != "" {
		event := queue.Event{
			ID:           uuid.NewString(),
			ConnectionID: conn.ID,
			OwnerUserID:  conn.OwnerUserID,
			Type:         queue.EventConnectionDeleted,
			Payload:      map[string]any{"name": conn.Name, "notifyUrl": conn.NotifyURL},
			CreatedAt:    time.Now().UTC(),
		}
		if err := s.queue.Enqueue(ctx, event); err != nil {
			s.log.Warn("eventos: no se pudo encolar el borrado", zap.Error(err))
		}
	}

	return nil
}

// publishEvent registra el evento en el historial y lo encola para el
// notificador. Ambas patas son best-effort.
func (s *Service) publishEvent(ctx context.Context, conn model.Connection, eventType string, extra map[string]any) {
	event := queue.Event{
		ID:           uuid.NewString(),
		ConnectionID: conn.ID,
		OwnerUserID:  conn.OwnerUserID,
		Type:         eventType,
		Payload:      extra,
		CreatedAt:    time.Now().UTC(),
	}

	if s.events != nil {
		payloadJSON, _ := json.Marshal(extra)
		if _, err := s.events.Create(ctx, model.ConnectionEvent{
			ID:           event.ID,
			ConnectionID: conn.ID,
			OwnerUserID:  conn.OwnerUserID,
			Type:         eventType,
			Payload:      string(payloadJSON),
		}); err != nil {
			s.log.Warn("eventos: no se pudo registrar", zap.String("type", eventType), zap.Error(err))
		}
	}

	if s.queue != nil && conn.NotifyURL != "" {
		if err := s.queue.Enqueue(ctx, event); err != nil {
			s.log.Warn("eventos: no se pudo encolar", zap.String("type", eventType), zap.Error(err))
		}
	}
}
