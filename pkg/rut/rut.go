package rut

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/width"
)

// ErrInvalidFormat indica que el texto no tiene la forma {1-8 dígitos}{dígito verificador 0-9 o K}.
var ErrInvalidFormat = errors.New("rut: formato inválido")

// maxBodyDigits es el largo máximo del cuerpo numérico del RUT.
const maxBodyDigits = 8

// pesos del módulo 11 del SII, aplicados desde el dígito menos significativo.
var rutWeights = [6]int{2, 3, 4, 5, 6, 7}

// Normalize limpia un RUT ingresado por el usuario y lo devuelve en forma canónica "<cuerpo>-<DV>".
// Acepta puntos, guiones, espacios y dígitos de ancho completo; la "k" se pasa a mayúscula.
// Los ceros a la izquierda del cuerpo se eliminan. No valida el dígito verificador (ver Validate).
func Normalize(raw string) (string, error) {
	body, dv, err := split(raw)
	if err != nil {
		return "", err
	}
	return body + "-" + string(dv), nil
}

// Validate recalcula el dígito verificador de un RUT normalizado ("12345678-5" o "123456785")
// y lo compara con el informado.
func Validate(normalized string) bool {
	s := normalized
	if i := strings.LastIndexByte(s, '-'); i >= 0 {
		if i != len(s)-2 {
			return false
		}
		s = s[:i] + s[i+1:]
	}
	if len(s) < 2 || len(s)-1 > maxBodyDigits {
		return false
	}
	body, dv := s[:len(s)-1], s[len(s)-1]
	expected, err := CheckDigit(body)
	if err != nil {
		return false
	}
	return expected == dv
}

// IsValid combina Normalize y Validate. Nunca entra en pánico: cualquier error de parseo es false.
func IsValid(raw string) bool {
	n, err := Normalize(raw)
	if err != nil {
		return false
	}
	return Validate(n)
}

// CheckDigit calcula el dígito verificador (0-9 o K) para un cuerpo de 1 a 8 dígitos.
func CheckDigit(body string) (byte, error) {
	if len(body) == 0 || len(body) > maxBodyDigits {
		return 0, fmt.Errorf("%w: el cuerpo debe tener entre 1 y %d dígitos", ErrInvalidFormat, maxBodyDigits)
	}
	var sum int
	for i := 0; i < len(body); i++ {
		d := body[len(body)-1-i]
		if d < '0' || d > '9' {
			return 0, fmt.Errorf("%w: cuerpo no numérico", ErrInvalidFormat)
		}
		sum += int(d-'0') * rutWeights[i%len(rutWeights)]
	}
	switch r := 11 - sum%11; r {
	case 11:
		return '0', nil
	case 10:
		return 'K', nil
	default:
		return byte('0' + r), nil
	}
}

// split separa cuerpo y dígito verificador luego de quitar separadores.
func split(raw string) (string, byte, error) {
	folded := width.Narrow.String(raw)
	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		switch {
		case r == '.' || r == '-' || unicode.IsSpace(r):
			continue
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == 'k' || r == 'K':
			b.WriteRune('K')
		default:
			return "", 0, fmt.Errorf("%w: carácter %q no permitido", ErrInvalidFormat, r)
		}
	}
	txt := b.String()
	if len(txt) < 2 {
		return "", 0, fmt.Errorf("%w: demasiado corto", ErrInvalidFormat)
	}
	body, dv := txt[:len(txt)-1], txt[len(txt)-1]
	if len(body) > maxBodyDigits {
		return "", 0, fmt.Errorf("%w: el cuerpo supera %d dígitos", ErrInvalidFormat, maxBodyDigits)
	}
	if strings.ContainsRune(body, 'K') {
		return "", 0, fmt.Errorf("%w: cuerpo no numérico", ErrInvalidFormat)
	}
	body = strings.TrimLeft(body, "0")
	if body == "" {
		body = "0"
	}
	return body, dv, nil
}
