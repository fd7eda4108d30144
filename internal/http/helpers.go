package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// ErrorResponse is the error body of the JSON surface. The capitalised key
// is part of the public lookup contract.
type ErrorResponse struct {
	Error string `json:"Error"`
}

const errUnknownISBN = "ISBN number provided is unknown"

func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: message})
}

func respondNotFound(c *gin.Context, message string) {
	c.JSON(http.StatusNotFound, ErrorResponse{Error: message})
}

// respondInternalError logs the error and sends a 500 without exposing it.
func respondInternalError(c *gin.Context, err error, context string) {
	log.Error().Err(err).Str("context", context).Str("path", c.Request.URL.Path).Msg("Internal error")
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
}

// normalizeISBN trims surrounding whitespace; ISBNs are otherwise matched verbatim.
func normalizeISBN(isbn string) string {
	return strings.TrimSpace(isbn)
}
