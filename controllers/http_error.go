package controllers

import (
	"errors"
	"log"
	"net/http"

	"messmate/services"

	"github.com/gin-gonic/gin"
)

// respondError maps a service error to an HTTP status and the standard
// {success:false, error} body. Unclassified errors are logged and surface as
// a generic 500 so internals never leak.
func respondError(c *gin.Context, err error) {
	var verified *services.AlreadyVerifiedError
	if errors.As(err, &verified) {
		c.JSON(http.StatusConflict, gin.H{
			"success":    false,
			"error":      verified.Error(),
			"verifiedAt": verified.VerifiedAt,
		})
		return
	}

	switch {
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": err.Error()})
	case errors.Is(err, services.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
	case errors.Is(err, services.ErrStateConflict):
		c.JSON(http.StatusConflict, gin.H{"success": false, "error": err.Error()})
	case errors.Is(err, services.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": err.Error()})
	default:
		log.Printf("Server error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Server error"})
	}
}
