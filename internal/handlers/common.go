package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/datfullstacks/mln3/internal/services"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// respondError maps service sentinels to HTTP statuses. Anything
// unrecognized is a 500 with a generic body so internals never leak.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "session not found"})
	case errors.Is(err, services.ErrAlreadyEnded):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "session already ended"})
	case errors.Is(err, services.ErrExpired):
		c.JSON(http.StatusGone, ErrorResponse{Error: "session expired"})
	case errors.Is(err, services.ErrFull):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "session is full"})
	case errors.Is(err, services.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case errors.Is(err, services.ErrAllocationExhausted):
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "could not allocate a session code"})
	default:
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}
