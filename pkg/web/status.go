package web

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/go-petr/pet-ledger/pkg/errorspkg"
)

// RetryAfter is the delay in seconds advertised with retryable failures.
const RetryAfter = "1"

// InfraError renders an error that no domain rule claimed.
//
// Retryable failures answer 503 with a Retry-After header, everything else
// collapses into an opaque 500.
func InfraError(gctx *gin.Context, err error) {
	l := zerolog.Ctx(gctx.Request.Context())

	if errorspkg.IsRetryable(err) {
		l.Warn().Err(err).Send()
		gctx.Header("Retry-After", RetryAfter)
		gctx.JSON(http.StatusServiceUnavailable, Error(err))

		return
	}

	l.Error().Err(err).Send()
	gctx.JSON(http.StatusInternalServerError, Error(errorspkg.ErrInternal))
}

// BindError renders a request binding failure as 400.
func BindError(gctx *gin.Context, err error) {
	zerolog.Ctx(gctx.Request.Context()).Info().Err(err).Send()
	gctx.JSON(http.StatusBadRequest, Response{Message: ValidationMessage(err)})
}
