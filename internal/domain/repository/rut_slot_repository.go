package repository

import (
	"context"

	"github.com/jhoicas/rutslots-api/internal/domain/entity"
)

// RutSlotRepository define el puerto de persistencia de los slots de RUT.
// Las variantes ForUpdate bloquean filas (SELECT ... FOR UPDATE) y solo tienen sentido dentro de una tx.
type RutSlotRepository interface {
	// ListByUser devuelve los slots del usuario ordenados por slot_index.
	ListByUser(ctx context.Context, userID string) ([]*entity.RutSlot, error)
	// ListByUserForUpdate igual que ListByUser pero bloqueando todas las filas del usuario.
	ListByUserForUpdate(ctx context.Context, userID string) ([]*entity.RutSlot, error)
	// GetForUpdate obtiene un slot del usuario y bloquea la fila. Devuelve nil, nil si no existe
	// o pertenece a otro usuario.
	GetForUpdate(ctx context.Context, userID, slotID string) (*entity.RutSlot, error)
	Create(ctx context.Context, slot *entity.RutSlot) error
	// Update persiste rut, estado y campos de bloqueo.
	Update(ctx context.Context, slot *entity.RutSlot) error
	// DeleteAbove elimina los slots con slot_index > maxIndex y devuelve cuántos borró.
	DeleteAbove(ctx context.Context, userID string, maxIndex int) (int, error)
	// IdentifierInUse informa si otro slot del usuario (distinto de exceptSlotID) ya tiene el RUT.
	IdentifierInUse(ctx context.Context, userID, rut, exceptSlotID string) (bool, error)
	// ListUsersWithSlots devuelve los usuarios que tienen al menos un slot (mantenimiento).
	ListUsersWithSlots(ctx context.Context) ([]string, error)
}
