package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/example/hottubshop/pkg/models"
	"github.com/stretchr/testify/assert"
)

func TestErrorMapping(t *testing.T) {
	verr := models.NewValidationError()
	verr.Add("email", "required")

	cases := []struct {
		err     error
		status  int
		message string
	}{
		{fmt.Errorf("product x: %w", models.ErrNotFound), http.StatusNotFound, "not found"},
		{verr, http.StatusUnprocessableEntity, "email: required"},
		{fmt.Errorf("%w: relay refused", models.ErrMailDispatchFailed), http.StatusBadGateway, "mail dispatch failed: relay refused"},
		{models.ErrCatalogWriteFailed, http.StatusServiceUnavailable, "storage is currently unavailable, please try again"},
		{context.Canceled, http.StatusServiceUnavailable, "request cancelled, please retry"},
		{fmt.Errorf("failed to load cart: %w", context.DeadlineExceeded), http.StatusServiceUnavailable, "request cancelled, please retry"},
		{errors.New("boom"), http.StatusInternalServerError, "internal error"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.status, statusFor(tc.err), tc.err.Error())
		assert.Equal(t, tc.message, errorBody(tc.err)["error"], tc.err.Error())
	}
}
