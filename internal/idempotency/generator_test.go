package idempotency

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateKeyDeterministic(t *testing.T) {
	g := NewGenerator()
	params := map[string]interface{}{
		"invoice_id": "inv_01",
		"version":    3,
	}

	first := g.GenerateKey(ScopeDiscount, params)
	second := g.GenerateKey(ScopeDiscount, params)

	assert.Equal(t, first, second)
	assert.Contains(t, first, string(ScopeDiscount))
}

func TestGenerateKeyOrderIndependent(t *testing.T) {
	g := NewGenerator()

	a := g.GenerateKey(ScopePayment, map[string]interface{}{"x": 1, "y": 2})
	b := g.GenerateKey(ScopePayment, map[string]interface{}{"y": 2, "x": 1})

	assert.Equal(t, a, b)
}

func TestGenerateKeyVariesByScopeAndParams(t *testing.T) {
	g := NewGenerator()
	params := map[string]interface{}{"invoice_id": "inv_01"}

	assert.NotEqual(t,
		g.GenerateKey(ScopeDiscount, params),
		g.GenerateKey(ScopePayment, params))

	assert.NotEqual(t,
		g.GenerateKey(ScopeDiscount, params),
		g.GenerateKey(ScopeDiscount, map[string]interface{}{"invoice_id": "inv_02"}))
}

func TestValidateKey(t *testing.T) {
	g := NewGenerator()
	params := map[string]interface{}{"invoice_id": "inv_01"}
	key := g.GenerateKey(ScopeCancel, params)

	assert.True(t, g.ValidateKey(ScopeCancel, params, key))
	assert.False(t, g.ValidateKey(ScopeCancel, map[string]interface{}{"invoice_id": "inv_02"}, key))
	assert.False(t, g.ValidateKey(ScopeDeposit, params, key))
}
