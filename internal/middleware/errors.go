package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"nvrgate/internal/errs"
	"nvrgate/internal/repository"
)

const usernameConflictCode = "AlreadyExists"

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// StatusOf maps an error onto the HTTP status the API reports for it.
func StatusOf(err error) int {
	if errors.Is(err, repository.ErrUsernameTaken) {
		return http.StatusConflict
	}
	switch errs.KindOf(err) {
	case errs.NotFound:
		return http.StatusNotFound
	case errs.Unauthenticated:
		return http.StatusUnauthorized
	case errs.FailedPrecondition:
		return http.StatusPreconditionFailed
	case errs.InvalidArgument:
		return http.StatusBadRequest
	case errs.Unimplemented:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

// AbortWithError writes the structured error body. Internal errors are logged by the
// request logger and reported to the client without detail.
func AbortWithError(c *gin.Context, err error) {
	status := StatusOf(err)
	detail := errorDetail{Code: string(errs.KindOf(err)), Message: errs.Message(err)}
	switch {
	case status == http.StatusConflict:
		detail = errorDetail{Code: usernameConflictCode, Message: repository.ErrUsernameTaken.Error()}
	case status == http.StatusInternalServerError:
		detail.Message = "internal error"
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, errorBody{Error: detail})
}
