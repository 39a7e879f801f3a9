package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"gozunis/domain/core"
)

func TestWrap_ClassifiesDomainErrors(t *testing.T) {
	tests := []struct {
		err    error
		code   string
		status int
	}{
		{core.NewDegenerateDensityError(0, 0), CodeEstimatorError, http.StatusUnprocessableEntity},
		{core.ErrEmptyHistory, CodeEstimatorError, http.StatusUnprocessableEntity},
		{core.NewInvalidConfigError("dims", "must be at least 1"), CodeValidationError, http.StatusBadRequest},
		{core.NewNotFoundError("run", "x"), CodeNotFound, http.StatusNotFound},
		{fmt.Errorf("%w: deadline", core.ErrInterrupted), CodeInterrupted, http.StatusGatewayTimeout},
		{stderrors.New("boom"), CodeInternalError, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		wrapped := Wrap(tt.err, "integration failed")
		assert.Equal(t, tt.code, GetCode(wrapped), tt.err.Error())
		assert.Equal(t, tt.status, HTTPStatus(wrapped), tt.err.Error())
		assert.True(t, stderrors.Is(wrapped, tt.err), "cause must stay reachable")
	}
}

func TestWrap_KeepsAppErrorCode(t *testing.T) {
	inner := ConfigInvalid("ZUNIS_BINS must be positive")
	outer := Wrapf(inner, "load %s", "integrator config")

	assert.Equal(t, CodeConfigInvalid, GetCode(outer))
	assert.True(t, IsAppError(outer))
	assert.Contains(t, outer.Error(), "ZUNIS_BINS")
	assert.Nil(t, Wrap(nil, "ignored"))
}
