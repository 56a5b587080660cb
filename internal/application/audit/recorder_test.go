package audit_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/rutslots-api/internal/application/audit"
	"github.com/jhoicas/rutslots-api/internal/domain/entity"
	"github.com/jhoicas/rutslots-api/pkg/logger"
)

type failingRepo struct{ calls int }

func (r *failingRepo) Append(_ context.Context, _ ...entity.AuditEntry) error {
	r.calls++
	return errors.New("db caída")
}

type captureRepo struct{ got []entity.AuditEntry }

func (r *captureRepo) Append(_ context.Context, entries ...entity.AuditEntry) error {
	r.got = append(r.got, entries...)
	return nil
}

func TestRecorder_ErrorNoSePropaga(t *testing.T) {
	var buf bytes.Buffer
	repo := &failingRepo{}
	rec := audit.NewRecorder(repo, logger.New(logger.Config{Env: "test", Level: "warn", Out: &buf}))

	var b audit.Batch
	b.Add("u1", entity.AuditFormSubmitted, entity.AuditEntityForm, "f1", nil, time.Now())

	assert.NotPanics(t, func() { rec.Record(context.Background(), b.Entries()...) })
	assert.Equal(t, 1, repo.calls)
	assert.Contains(t, buf.String(), "auditoría no registrada")
}

func TestRecorder_SinHechosNoEscribe(t *testing.T) {
	repo := &failingRepo{}
	audit.NewRecorder(repo, logger.Nop()).Record(context.Background())
	assert.Zero(t, repo.calls)
}

func TestBatch_SlotTransitionSoloConCambio(t *testing.T) {
	now := time.Now()
	slot := entity.NewEmptySlot("s1", "u1", 1, now)

	var b audit.Batch
	b.SlotTransition(slot, entity.SlotEmpty, now)
	assert.Empty(t, b.Entries())

	slot.Assign("12345678-5", now)
	b.SlotTransition(slot, entity.SlotEmpty, now)
	require.Len(t, b.Entries(), 1)

	e := b.Entries()[0]
	assert.Equal(t, entity.AuditSlotStateChanged, e.Action)
	require.NotNil(t, e.UserID)
	assert.Equal(t, "u1", *e.UserID)
	assert.Equal(t, "empty", e.Metadata["from"])
	assert.Equal(t, "available", e.Metadata["to"])

	repo := &captureRepo{}
	audit.NewRecorder(repo, logger.Nop()).Record(context.Background(), b.Entries()...)
	assert.Len(t, repo.got, 1)
}

func TestBatch_EventoDeSistemaSinUsuario(t *testing.T) {
	var b audit.Batch
	b.Add("", entity.AuditWebhookReceived, entity.AuditEntityWebhook, "ev1", nil, time.Now())
	require.Len(t, b.Entries(), 1)
	assert.Nil(t, b.Entries()[0].UserID)
	assert.NotNil(t, b.Entries()[0].Metadata)
}
