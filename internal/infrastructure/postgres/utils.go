package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jhoicas/rutslots-api/internal/domain"
)

// Códigos SQLSTATE usados por el adaptador.
const (
	codeUniqueViolation  = "23505"
	codeLockNotAvailable = "55P03"
	codeDeadlockDetected = "40P01"
)

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// isUniqueViolation verifica si un error es una violación de constraint único (23505).
func isUniqueViolation(err error) bool {
	return pgCode(err) == codeUniqueViolation
}

// isLockTimeout espera de bloqueo agotada (lock_timeout) o deadlock: ambos son transitorios.
func isLockTimeout(err error) bool {
	switch pgCode(err) {
	case codeLockNotAvailable, codeDeadlockDetected:
		return true
	}
	return false
}

// translate mapea errores de PostgreSQL a errores de dominio.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case isLockTimeout(err):
		return fmt.Errorf("%w: %w", domain.ErrLockTimeout, err)
	default:
		return err
	}
}
