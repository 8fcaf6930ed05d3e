package api

import (
	"errors"
	"net/http"

	"ringlink/pkg/federation"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// statusFor maps an error onto the HTTP status peers expect. Host failures
// relayed from a joined ring keep the host's status.
func statusFor(err error) int {
	var re *federation.RemoteError
	if errors.As(err, &re) && re.StatusCode >= 400 {
		return re.StatusCode
	}
	switch federation.KindOf(err) {
	case federation.KindValidation:
		return http.StatusBadRequest
	case federation.KindNotFound:
		return http.StatusNotFound
	case federation.KindForbidden:
		return http.StatusForbidden
	case federation.KindConflict:
		return http.StatusConflict
	case federation.KindTransient:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (s *Server) fail(c *gin.Context, err error) {
	code := statusFor(err)
	kind := string(federation.KindOf(err))
	if kind == "" {
		kind = "internal"
	}
	if code >= http.StatusInternalServerError {
		s.logger.Error("Request failed",
			zap.String("route", c.FullPath()),
			zap.String("request_id", c.GetString(requestIDKey)),
			zap.Error(err))
	}
	c.AbortWithStatusJSON(code, federation.ErrorBody{
		Code:    kind,
		Message: federation.PublicMessage(err),
	})
}

func (s *Server) badRequest(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, federation.ErrorBody{
			Code:    string(federation.KindValidation),
			Message: "request body too large",
		})
		return
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, federation.ErrorBody{
		Code:    string(federation.KindValidation),
		Message: "invalid request body",
	})
}
