// Package memory implementa los puertos de persistencia en memoria, con la misma semántica
// transaccional por usuario que el adaptador PostgreSQL. Se usa en desarrollo (STORAGE_DRIVER=memory)
// y como backend de los tests de aplicación.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jhoicas/rutslots-api/internal/application/ports"
	"github.com/jhoicas/rutslots-api/internal/domain"
	"github.com/jhoicas/rutslots-api/internal/domain/entity"
	"github.com/jhoicas/rutslots-api/internal/domain/repository"
)

var _ ports.UserTxRunner = (*Store)(nil)

// Store guarda el estado confirmado. Cada usuario tiene un semáforo propio: RunForUser lo toma,
// trabaja sobre una copia y la publica al confirmar.
type Store struct {
	mu          sync.Mutex
	lockTimeout time.Duration
	userLocks   map[string]chan struct{}
	users       map[string]*userData
	plans       map[string]*entity.Plan
	audit       []entity.AuditEntry
	webhooks    map[string]*entity.WebhookEvent // provider|provider_event_id
}

type userData struct {
	slots   []*entity.RutSlot // ordenados por SlotIndex
	forms   map[string]*entity.Form
	sub     *entity.Subscription
	history []*entity.SubscriptionHistory
}

// NewStore construye el store. lockTimeout <= 0 espera indefinidamente el bloqueo del usuario.
func NewStore(lockTimeout time.Duration) *Store {
	return &Store{
		lockTimeout: lockTimeout,
		userLocks:   make(map[string]chan struct{}),
		users:       make(map[string]*userData),
		plans:       make(map[string]*entity.Plan),
		webhooks:    make(map[string]*entity.WebhookEvent),
	}
}

// RunForUser ejecuta fn con repositorios atados a una copia privada de los datos del usuario.
// Si fn no falla la copia reemplaza al estado confirmado; si falla se descarta (rollback).
func (s *Store) RunForUser(ctx context.Context, userID string, fn func(tx ports.UserTx) error) error {
	if userID == "" {
		return domain.ErrInvalidInput
	}
	release, err := s.acquire(ctx, userID)
	if err != nil {
		return err
	}
	defer release()

	s.mu.Lock()
	snapshot := s.userData(userID).clone()
	s.mu.Unlock()

	tx := &userTx{userID: userID, data: snapshot}
	err = fn(ports.UserTx{
		Slots:         &slotRepo{s: s, tx: tx},
		Forms:         &formRepo{s: s, tx: tx},
		Subscriptions: &subscriptionRepo{s: s, tx: tx},
		History:       &historyRepo{s: s, tx: tx},
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.users[userID] = snapshot
	s.mu.Unlock()
	return nil
}

func (s *Store) acquire(ctx context.Context, userID string) (func(), error) {
	s.mu.Lock()
	sem, ok := s.userLocks[userID]
	if !ok {
		sem = make(chan struct{}, 1)
		s.userLocks[userID] = sem
	}
	s.mu.Unlock()

	var timeout <-chan time.Time
	if s.lockTimeout > 0 {
		t := time.NewTimer(s.lockTimeout)
		defer t.Stop()
		timeout = t.C
	}
	select {
	case sem <- struct{}{}:
		return func() { <-sem }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timeout:
		return nil, fmt.Errorf("%w: usuario %s", domain.ErrLockTimeout, userID)
	}
}

// userData devuelve (creando si hace falta) los datos confirmados del usuario. Requiere s.mu.
func (s *Store) userData(userID string) *userData {
	d, ok := s.users[userID]
	if !ok {
		d = &userData{forms: make(map[string]*entity.Form)}
		s.users[userID] = d
	}
	return d
}

func (d *userData) clone() *userData {
	c := &userData{
		slots:   make([]*entity.RutSlot, 0, len(d.slots)),
		forms:   make(map[string]*entity.Form, len(d.forms)),
		history: append([]*entity.SubscriptionHistory(nil), d.history...),
	}
	for _, sl := range d.slots {
		c.slots = append(c.slots, sl.Clone())
	}
	for id, f := range d.forms {
		cp := *f
		c.forms[id] = &cp
	}
	if d.sub != nil {
		cp := *d.sub
		c.sub = &cp
	}
	return c
}

// userTx datos privados de una transacción en curso.
type userTx struct {
	userID string
	data   *userData
}

// base resuelve sobre qué datos opera un repositorio: la copia de la tx o el estado confirmado.
type base struct {
	s  *Store
	tx *userTx
}

func (b base) with(userID string, fn func(d *userData) error) error {
	if b.tx != nil {
		if userID != b.tx.userID {
			return fmt.Errorf("memory: la transacción pertenece a otro usuario")
		}
		return fn(b.tx.data)
	}
	b.s.mu.Lock()
	defer b.s.mu.Unlock()
	return fn(b.s.userData(userID))
}

// Repositorios fuera de transacción (lecturas y escrituras directas sobre el estado confirmado).

func (s *Store) Slots() repository.RutSlotRepository               { return &slotRepo{s: s} }
func (s *Store) Forms() repository.FormRepository                  { return &formRepo{s: s} }
func (s *Store) Subscriptions() repository.SubscriptionRepository  { return &subscriptionRepo{s: s} }
func (s *Store) History() repository.SubscriptionHistoryRepository { return &historyRepo{s: s} }
func (s *Store) Plans() repository.PlanRepository                  { return &planRepo{s: s} }
func (s *Store) AuditLogs() repository.AuditLogRepository          { return &auditRepo{s: s} }
func (s *Store) WebhookEvents() repository.WebhookEventRepository  { return &webhookRepo{s: s} }

// AuditEntries copia de la bitácora, en orden de inserción.
func (s *Store) AuditEntries() []entity.AuditEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]entity.AuditEntry(nil), s.audit...)
}

// WebhookEvent devuelve el evento registrado para (provider, eventID) o nil.
func (s *Store) WebhookEvent(provider, eventID string) *entity.WebhookEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev, ok := s.webhooks[webhookKey(provider, eventID)]
	if !ok {
		return nil
	}
	cp := *ev
	return &cp
}
