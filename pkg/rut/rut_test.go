package rut_test

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/rutslots-api/pkg/rut"
)

func TestNormalize_FormasAceptadas(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{"12345678-5", "12345678-5"},
		{"12.345.678-5", "12345678-5"},
		{" 12 345 678 5 ", "12345678-5"},
		{"123456785", "12345678-5"},
		{"6-k", "6-K"},
		{"006-K", "6-K"},
		{"１２３４５６７８－５", "12345678-5"},
		{"0-0", "0-0"},
	}
	for _, tc := range cases {
		t.Run(tc.raw, func(t *testing.T) {
			got, err := rut.Normalize(tc.raw)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestNormalize_FormatoInvalido(t *testing.T) {
	for _, raw := range []string{"", "5", "-", "123456789-0", "12K45678-5", "abc12345678-5", "12345678/5", "1234567-Z"} {
		t.Run(raw, func(t *testing.T) {
			_, err := rut.Normalize(raw)
			require.Error(t, err)
			assert.ErrorIs(t, err, rut.ErrInvalidFormat)
		})
	}
}

func TestValidate_DigitoVerificador(t *testing.T) {
	assert.True(t, rut.Validate("12345678-5"))
	assert.True(t, rut.Validate("11111111-1"))
	assert.True(t, rut.Validate("6-K"))
	assert.True(t, rut.Validate("0-0"))
	assert.True(t, rut.Validate("20000000-5"))

	assert.False(t, rut.Validate("12345678-4"))
	assert.False(t, rut.Validate("6-0"))
	assert.False(t, rut.Validate("12-34-5"))
	assert.False(t, rut.Validate(""))
}

func TestIsValid_NuncaFallaConBasura(t *testing.T) {
	for _, raw := range []string{"", "----", "k", "kkkk", "1.2.3", "99999999999999", "\x00\xff"} {
		assert.False(t, rut.IsValid(raw), raw)
	}
	assert.True(t, rut.IsValid("12.345.678-5"))
}

// Para todo cuerpo de 1 a 8 dígitos, el par cuerpo+DV calculado siempre normaliza y valida.
func TestCheckDigit_IdaYVuelta(t *testing.T) {
	for _, n := range []int{1, 6, 10, 99, 1234, 76354771, 99999999, 20000000, 5126663, 12345678} {
		body := strconv.Itoa(n)
		dv, err := rut.CheckDigit(body)
		require.NoError(t, err)

		normalized, err := rut.Normalize(body + string(dv))
		require.NoError(t, err)
		assert.True(t, rut.Validate(normalized), normalized)

		// cualquier otro DV debe ser rechazado
		for _, other := range "0123456789K" {
			if byte(other) == dv {
				continue
			}
			assert.False(t, rut.Validate(body+"-"+string(other)), "%s-%c", body, other)
		}
	}
}

func TestCheckDigit_CuerpoInvalido(t *testing.T) {
	_, err := rut.CheckDigit("")
	assert.ErrorIs(t, err, rut.ErrInvalidFormat)
	_, err = rut.CheckDigit("123456789")
	assert.ErrorIs(t, err, rut.ErrInvalidFormat)
	_, err = rut.CheckDigit("12a")
	assert.ErrorIs(t, err, rut.ErrInvalidFormat)
}
