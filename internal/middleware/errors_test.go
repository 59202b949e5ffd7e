package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nvrgate/internal/errs"
	"nvrgate/internal/repository"
)

func TestStatusOf(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{errs.New(errs.NotFound, "x"), http.StatusNotFound},
		{errs.New(errs.Unauthenticated, "x"), http.StatusUnauthorized},
		{errs.New(errs.FailedPrecondition, "x"), http.StatusPreconditionFailed},
		{errs.New(errs.InvalidArgument, "x"), http.StatusBadRequest},
		{errs.New(errs.Unimplemented, "x"), http.StatusNotImplemented},
		{errs.New(errs.Internal, "x"), http.StatusInternalServerError},
		{errors.New("plain"), http.StatusInternalServerError},
		{fmt.Errorf("add user: %w", repository.ErrUsernameTaken), http.StatusConflict},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusOf(tt.err), "%v", tt.err)
	}
}

func TestAbortWithErrorHidesInternalDetail(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)

	AbortWithError(c, errs.Wrap(errors.New("dial tcp 10.0.0.5:5432"), errs.Internal, "load user"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.True(t, c.IsAborted())
	assert.NotContains(t, rec.Body.String(), "10.0.0.5")

	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Internal", body.Error.Code)
	assert.Equal(t, "internal error", body.Error.Message)
	require.Len(t, c.Errors, 1)
}

func TestAbortWithErrorMessage(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)

	AbortWithError(c, errs.New(errs.FailedPrecondition, "username mismatch"))

	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, errorDetail{Code: "FailedPrecondition", Message: "username mismatch"}, body.Error)
}
