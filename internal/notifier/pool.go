package notifier

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/simatecve/contact-pulse-engine-sub000/internal/pkg/crypto"
	"github.com/simatecve/contact-pulse-engine-sub000/internal/pkg/queue"
	"github.com/simatecve/contact-pulse-engine-sub000/internal/storage"
)

// Pool consume la cola de eventos de ciclo de vida y los entrega al webhook
// de notificación de cada conexión. Un dispatcher desencola y N workers
// entregan.
type Pool struct {
	queue     queue.Queue
	conns     storage.ConnectionRepository
	events    storage.EventLogRepository
	delivery  *Delivery
	log       *zap.Logger
	secretKey string

	numWorkers int
	taskChan   chan *queue.Event
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
}

type Options struct {
	Queue      queue.Queue
	Conns      storage.ConnectionRepository
	Events     storage.EventLogRepository
	Delivery   *Delivery
	Logger     *zap.Logger
	SecretKey  string
	NumWorkers int
}

func NewPool(opts Options) *Pool {
	workers := opts.NumWorkers
	if workers <= 0 {
		workers = 4
	}
	return &Pool{
		queue:      opts.Queue,
		conns:      opts.Conns,
		events:     opts.Events,
		delivery:   opts.Delivery,
		log:        opts.Logger,
		secretKey:  opts.SecretKey,
		numWorkers: workers,
		taskChan:   make(chan *queue.Event, workers*2),
	}
}

func (p *Pool) Start(ctx context.Context) {
	p.ctx, p.cancel = context.WithCancel(ctx)

	p.log.Info("notifier: iniciando", zap.Int("workers", p.numWorkers))

	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.runWorker(i)
	}

	p.wg.Add(1)
	go p.runDispatcher()
}

func (p *Pool) Stop() {
	p.log.Info("notifier: cerrando")
	p.cancel()
	p.wg.Wait()
	close(p.taskChan)
	p.log.Info("notifier: cerrado")
}

func (p *Pool) runDispatcher() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		default:
			event, err := p.queue.Dequeue(p.ctx, time.Second)
			if err != nil {
				if p.ctx.Err() != nil {
					return
				}
				p.log.Error("notifier: error al desencolar", zap.Error(err))
				continue
			}
			if event == nil {
				continue
			}

			select {
			case p.taskChan <- event:
			case <-p.ctx.Done():
				return
			case <-time.After(5 * time.Second):
				p.log.Warn("notifier: workers saturados, evento descartado", zap.String("eventId", event.ID))
			}
		}
	}
}

func (p *Pool) runWorker(id int) {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case event := <-p.taskChan:
			if event == nil {
				return
			}
			p.processEvent(p.ctx, id, event)
		}
	}
}

func (p *Pool) processEvent(ctx context.Context, workerID int, event *queue.Event) {
	conn, err := p.conns.GetByID(ctx, event.ConnectionID)
	if err != nil {
		// para connection.deleted la fila ya no existe: el destino viene en
		// el payload y la entrega sale sin firma
		if url, ok := event.Payload["notifyUrl"].(string); ok && url != "" {
			p.deliver(ctx, workerID, event, url, "")
			return
		}
		p.log.Warn("notifier: conexión no encontrada",
			zap.Int("workerId", workerID),
			zap.String("eventId", event.ID),
			zap.Error(err),
		)
		return
	}

	if conn.NotifyURL == "" {
		return
	}

	secret := conn.NotifySecret
	if secret != "" && p.secretKey != "" {
		plain, err := crypto.DecryptString(secret, p.secretKey)
		if err != nil {
			p.log.Error("notifier: no se pudo descifrar el secreto",
				zap.String("connectionId", conn.ID),
				zap.Error(err),
			)
			return
		}
		secret = plain
	}

	p.deliver(ctx, workerID, event, conn.NotifyURL, secret)
}

func (p *Pool) deliver(ctx context.Context, workerID int, event *queue.Event, url, secret string) {
	payload := map[string]any{
		"id":           event.ID,
		"connectionId": event.ConnectionID,
		"type":         event.Type,
		"payload":      event.Payload,
		"createdAt":    event.CreatedAt,
	}

	if err := p.delivery.Deliver(ctx, url, secret, payload); err != nil {
		p.log.Error("notifier: entrega fallida",
			zap.Int("workerId", workerID),
			zap.String("eventId", event.ID),
			zap.Error(err),
		)
		return
	}

	if p.events != nil {
		if err := p.events.MarkDelivered(ctx, event.ID, time.Now().UTC()); err != nil {
			p.log.Warn("notifier: no se pudo marcar la entrega", zap.String("eventId", event.ID), zap.Error(err))
		}
	}
}
