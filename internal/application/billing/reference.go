package billing

import (
	"fmt"
	"strings"

	"github.com/jhoicas/rutslots-api/internal/domain"
)

// ExternalReference vincula un pago con el usuario y el plan contratado.
// Formato: "user:<id>|plan:<code>".
type ExternalReference struct {
	UserID   string
	PlanCode string
}

// String serializa la referencia.
func (r ExternalReference) String() string {
	return "user:" + r.UserID + "|plan:" + r.PlanCode
}

// ParseExternalReference interpreta "user:<id>|plan:<code>". El orden de los pares no importa;
// claves desconocidas se ignoran.
func ParseExternalReference(raw string) (ExternalReference, error) {
	var ref ExternalReference
	for _, pair := range strings.Split(strings.TrimSpace(raw), "|") {
		key, value, ok := strings.Cut(pair, ":")
		if !ok {
			return ExternalReference{}, fmt.Errorf("%w: referencia externa %q", domain.ErrInvalidInput, raw)
		}
		switch strings.TrimSpace(key) {
		case "user":
			ref.UserID = strings.TrimSpace(value)
		case "plan":
			ref.PlanCode = strings.TrimSpace(value)
		}
	}
	if ref.UserID == "" || ref.PlanCode == "" {
		return ExternalReference{}, fmt.Errorf("%w: referencia externa %q incompleta", domain.ErrInvalidInput, raw)
	}
	return ref, nil
}
