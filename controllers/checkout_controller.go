package controllers

import (
	"net/http"

	"messmate/services"

	"github.com/gin-gonic/gin"
)

type CheckoutController struct {
	Svc *services.CheckoutService
}

func NewCheckoutController(checkout *services.CheckoutService) *CheckoutController {
	return &CheckoutController{Svc: checkout}
}

type CheckoutInput struct {
	Email  string                  `json:"email" binding:"required,email"`
	Orders []services.CheckoutLine `json:"orders" binding:"required,dive"`
}

// POST /checkout
func (cc *CheckoutController) Checkout(c *gin.Context) {
	var input CheckoutInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	tokens, err := cc.Svc.Checkout(input.Email, input.Orders)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "tokens": tokens})
}
