package api

import (
	"net/http"

	"github.com/Domenick1991/cargobooking/internal/domain"
	"github.com/gin-gonic/gin"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

const codeInternal = "INTERNAL_ERROR"

func statusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindValidation, domain.KindInvalidTransition, domain.KindAlreadyArrived, domain.KindCancelledBooking:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindLockContention:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err as {"error","code"}. Internal details never reach
// the client.
func writeError(c *gin.Context, err error) {
	kind := domain.KindOf(err)
	code := string(kind)
	if code == "" {
		code = codeInternal
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(statusFor(kind), errorResponse{
		Error: domain.PublicMessage(err),
		Code:  code,
	})
}

func badRequest(c *gin.Context, message string) {
	writeError(c, domain.NewError(domain.KindValidation, message))
}
