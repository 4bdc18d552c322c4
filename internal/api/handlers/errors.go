package handlers

import (
	"net/http"

	"example.com/warehouse/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// ErrorResponse is the JSON body returned for every failed request
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// RespondError translates a service error into an HTTP response. Unknown
// errors are logged and hidden behind a generic 500.
func RespondError(c *gin.Context, err error) {
	switch {
	case services.IsNotFound(err):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error(), Code: "NOT_FOUND"})
	case services.IsInvalidArgument(err):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "INVALID_ARGUMENT"})
	case services.IsInvalidState(err):
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error(), Code: "INVALID_STATE"})
	default:
		log.Error().Err(err).Str("path", c.FullPath()).Msg("Unhandled error")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error", Code: "INTERNAL_ERROR"})
	}
}
