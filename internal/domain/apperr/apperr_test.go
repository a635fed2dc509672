package apperr

import (
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
)

func TestKinds(t *testing.T) {
	v := Validation("bad input")
	nf := NotFoundf("order with ID %d not found", 7)

	assert.True(t, IsValidation(v))
	assert.True(t, IsValidation(errors.Wrap(v, "create order")))
	assert.False(t, IsValidation(nf))
	assert.False(t, IsValidation(errors.New("boom")))

	assert.True(t, IsNotFound(errors.Wrap(nf, "delete order")))
	assert.False(t, IsNotFound(v))
	assert.Equal(t, "order with ID 7 not found", nf.Error())
}
