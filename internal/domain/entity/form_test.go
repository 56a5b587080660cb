package entity_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/rutslots-api/internal/domain/entity"
)

func TestForm_AdvanceSoloHaciaAdelante(t *testing.T) {
	f := &entity.Form{Status: entity.FormDraft}
	require.NoError(t, f.Advance(entity.FormValidating))
	require.NoError(t, f.Advance(entity.FormStored))
	assert.Error(t, f.Advance(entity.FormDraft))
	require.NoError(t, f.Advance(entity.FormDone))
	assert.Equal(t, entity.FormDone, f.Status)
}

func TestForm_ErrorSiempreAlcanzable(t *testing.T) {
	f := &entity.Form{Status: entity.FormStored}
	f.Fail("SII no responde")
	assert.Equal(t, entity.FormError, f.Status)
	assert.Equal(t, "SII no responde", f.ErrorMessage)
	assert.Error(t, f.Advance(entity.FormDone), "desde error no se avanza")
}

func TestIsValidFormType(t *testing.T) {
	assert.True(t, entity.IsValidFormType("compras"))
	assert.True(t, entity.IsValidFormType("ventas"))
	assert.False(t, entity.IsValidFormType("Compras"))
	assert.False(t, entity.IsValidFormType(""))
}
