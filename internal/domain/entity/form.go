package entity

import (
	"fmt"
	"time"
)

// Tipos de formulario.
const (
	FormTypeCompras = "compras"
	FormTypeVentas  = "ventas"
)

// FormStatus estado de un envío de formulario.
type FormStatus string

const (
	FormDraft      FormStatus = "draft"
	FormValidating FormStatus = "validating"
	FormStored     FormStatus = "stored"
	FormDone       FormStatus = "done"
	FormError      FormStatus = "error"
)

var formStatusOrder = map[FormStatus]int{
	FormDraft:      0,
	FormValidating: 1,
	FormStored:     2,
	FormDone:       3,
}

// Form es un intento de envío de formulario al SII con un RUT.
type Form struct {
	ID           string
	UserID       string
	Type         string // compras | ventas
	SIIRut       string // RUT utilizado en este envío
	Status       FormStatus
	CreatedAt    time.Time
	SubmittedAt  *time.Time
	ErrorMessage string
}

// IsValidFormType informa si el tipo de formulario es soportado.
func IsValidFormType(t string) bool {
	return t == FormTypeCompras || t == FormTypeVentas
}

// Advance mueve el formulario a un estado posterior. El estado error siempre es alcanzable;
// desde error no se avanza.
func (f *Form) Advance(to FormStatus) error {
	if to == FormError {
		f.Status = FormError
		return nil
	}
	cur, ok := formStatusOrder[f.Status]
	next, ok2 := formStatusOrder[to]
	if !ok || !ok2 || next < cur {
		return fmt.Errorf("formulario: transición %s -> %s no permitida", f.Status, to)
	}
	f.Status = to
	return nil
}

// Fail marca el formulario con error.
func (f *Form) Fail(msg string) {
	f.Status = FormError
	f.ErrorMessage = msg
}
