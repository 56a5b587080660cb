package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/rutslots-api/internal/domain/entity"
	"github.com/jhoicas/rutslots-api/internal/domain/repository"
)

var (
	_ repository.PlanRepository         = (*planRepo)(nil)
	_ repository.AuditLogRepository     = (*auditRepo)(nil)
	_ repository.WebhookEventRepository = (*webhookRepo)(nil)
)

type planRepo base

func (r *planRepo) GetByCode(_ context.Context, code string) (*entity.Plan, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.plans {
		if p.Code == code {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *planRepo) GetByID(_ context.Context, id string) (*entity.Plan, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if p, ok := r.s.plans[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

func (r *planRepo) ListActive(_ context.Context) ([]*entity.Plan, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*entity.Plan, 0, len(r.s.plans))
	for _, p := range r.s.plans {
		if p.IsActive {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RUTQuota != out[j].RUTQuota {
			return out[i].RUTQuota < out[j].RUTQuota
		}
		return out[i].Code < out[j].Code
	})
	return out, nil
}

func (r *planRepo) Upsert(_ context.Context, plan *entity.Plan) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, p := range r.s.plans {
		if p.Code == plan.Code {
			plan.ID = id
			cp := *plan
			r.s.plans[id] = &cp
			return false, nil
		}
	}
	if plan.ID == "" {
		plan.ID = uuid.New().String()
	}
	cp := *plan
	r.s.plans[plan.ID] = &cp
	return true, nil
}

type auditRepo base

func (r *auditRepo) Append(_ context.Context, entries ...entity.AuditEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.audit = append(r.s.audit, entries...)
	return nil
}

type webhookRepo base

func webhookKey(provider, eventID string) string { return provider + "|" + eventID }

func (r *webhookRepo) Record(_ context.Context, ev *entity.WebhookEvent) (*entity.WebhookEvent, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := webhookKey(ev.Provider, ev.ProviderEventID)
	if stored, ok := r.s.webhooks[key]; ok {
		cp := *stored
		return &cp, false, nil
	}
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	cp := *ev
	r.s.webhooks[key] = &cp
	out := cp
	return &out, true, nil
}

func (r *webhookRepo) MarkProcessed(_ context.Context, id string, processingError string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, ev := range r.s.webhooks {
		if ev.ID == id {
			now := time.Now().UTC()
			ev.ProcessedAt = &now
			ev.ProcessingError = processingError
			return nil
		}
	}
	return nil
}
