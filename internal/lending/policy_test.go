package lending

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Tann03519/Online-Library-Management-System-sub000/internal/model"
)

func TestPolicyValidate(t *testing.T) {
	assert.NoError(t, DefaultPolicy().Validate())

	bad := []Policy{
		{LoanPeriod: 0, ExtensionDays: []int{7}},
		{LoanPeriod: time.Hour, MaxCopiesPerLoan: -1, ExtensionDays: []int{7}},
		{LoanPeriod: time.Hour},
		{LoanPeriod: time.Hour, ExtensionDays: []int{7, 0}},
	}
	for i, p := range bad {
		assert.Error(t, p.Validate(), "case %d", i)
	}
}

func TestCheckExtensionDays(t *testing.T) {
	p := DefaultPolicy()
	for _, d := range []int{7, 14, 21, 30} {
		assert.NoError(t, p.CheckExtensionDays(d))
	}
	err := p.CheckExtensionDays(28)
	assert.True(t, errors.Is(err, model.ErrInvalidExtensionLength))
}

func TestIsRejection(t *testing.T) {
	assert.True(t, IsRejection(&model.TransitionError{Entity: model.EntityLoan, ID: 1, From: "PENDING", Action: "return"}))
	assert.True(t, IsRejection(model.InvalidInput("x")))
	assert.False(t, IsRejection(errors.New("disk on fire")))
}
