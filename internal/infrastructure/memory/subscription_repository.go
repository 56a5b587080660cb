package memory

import (
	"context"
	"sort"

	"github.com/jhoicas/rutslots-api/internal/domain/entity"
	"github.com/jhoicas/rutslots-api/internal/domain/repository"
)

var (
	_ repository.SubscriptionRepository        = (*subscriptionRepo)(nil)
	_ repository.SubscriptionHistoryRepository = (*historyRepo)(nil)
	_ repository.FormRepository                = (*formRepo)(nil)
)

type subscriptionRepo base

func (r *subscriptionRepo) GetByUser(_ context.Context, userID string) (*entity.Subscription, error) {
	var out *entity.Subscription
	err := base(*r).with(userID, func(d *userData) error {
		if d.sub != nil {
			cp := *d.sub
			out = &cp
		}
		return nil
	})
	return out, err
}

func (r *subscriptionRepo) Replace(_ context.Context, sub *entity.Subscription) error {
	return base(*r).with(sub.UserID, func(d *userData) error {
		cp := *sub
		d.sub = &cp
		return nil
	})
}

func (r *subscriptionRepo) Delete(_ context.Context, userID string) error {
	return base(*r).with(userID, func(d *userData) error {
		d.sub = nil
		return nil
	})
}

// ListSubscribedUsers lee siempre el estado confirmado.
func (r *subscriptionRepo) ListSubscribedUsers(_ context.Context) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var ids []string
	for id, d := range r.s.users {
		if d.sub != nil {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

type historyRepo base

func (r *historyRepo) Append(_ context.Context, h *entity.SubscriptionHistory) error {
	return base(*r).with(h.UserID, func(d *userData) error {
		cp := *h
		d.history = append(d.history, &cp)
		return nil
	})
}

func (r *historyRepo) ListByUser(_ context.Context, userID string) ([]*entity.SubscriptionHistory, error) {
	var out []*entity.SubscriptionHistory
	err := base(*r).with(userID, func(d *userData) error {
		for _, h := range d.history {
			cp := *h
			out = append(out, &cp)
		}
		return nil
	})
	return out, err
}

type formRepo base

func (r *formRepo) Create(_ context.Context, form *entity.Form) error {
	return base(*r).with(form.UserID, func(d *userData) error {
		cp := *form
		d.forms[form.ID] = &cp
		return nil
	})
}

func (r *formRepo) Update(ctx context.Context, form *entity.Form) error {
	return r.Create(ctx, form)
}

func (r *formRepo) GetByID(_ context.Context, userID, id string) (*entity.Form, error) {
	var out *entity.Form
	err := base(*r).with(userID, func(d *userData) error {
		if f, ok := d.forms[id]; ok {
			cp := *f
			out = &cp
		}
		return nil
	})
	return out, err
}
