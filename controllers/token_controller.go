package controllers

import (
	"fmt"
	"net/http"
	"os"
	"strconv"

	"messmate/services"
	"messmate/utils"

	"github.com/gin-gonic/gin"
)

type TokenController struct {
	Tokens *services.TokenService
}

func NewTokenController(tokens *services.TokenService) *TokenController {
	return &TokenController{Tokens: tokens}
}

// batchQuery reads the mandatory batch query parameter. Numbers repeat
// across batches, so a bare number does not identify a token.
func batchQuery(c *gin.Context) (int, bool) {
	batch, err := strconv.Atoi(c.Query("batch"))
	if err != nil || (batch != 1 && batch != 2) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "batch must be 1 or 2"})
		return 0, false
	}
	return batch, true
}

// GET /token/:token?batch=, scoped to today's service date.
func (tc *TokenController) GetByNumber(c *gin.Context) {
	batch, ok := batchQuery(c)
	if !ok {
		return
	}

	tok, err := tc.Tokens.GetByNumber(c.Param("token"), batch)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"token":       tok.Number,
		"date":        tok.ServiceDate,
		"batch":       tok.Batch,
		"userEmail":   tok.UserEmail,
		"userName":    tok.UserName,
		"userPhoto":   tok.UserPhoto,
		"meals":       tok.Meals,
		"totalAmount": tok.TotalAmount,
		"paid":        tok.Paid,
		"verified":    tok.Verified,
		"verifiedAt":  tok.VerifiedAt,
		"expiresAt":   tok.ExpiresAt,
	})
}

// GET /token/:token/qr?batch=, UPI payment QR for an unpaid token.
func (tc *TokenController) PaymentQR(c *gin.Context) {
	batch, ok := batchQuery(c)
	if !ok {
		return
	}

	tok, err := tc.Tokens.GetByNumber(c.Param("token"), batch)
	if err != nil {
		respondError(c, err)
		return
	}
	if tok.Paid {
		c.JSON(http.StatusConflict, gin.H{"success": false, "error": "token already paid"})
		return
	}

	uri := utils.BuildUPIURI(os.Getenv("MESS_UPI"), "MessMate", tok.TotalAmount, fmt.Sprintf("Token%s", tok.Number))
	png, err := utils.PaymentQRPNG(uri)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

// GET /user-tokens/:email
func (tc *TokenController) ListByUser(c *gin.Context) {
	toks, err := tc.Tokens.ListByUser(c.Param("email"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "tokens": toks})
}

// GET /token-details/:id
func (tc *TokenController) GetByID(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid token id"})
		return
	}

	tok, err := tc.Tokens.GetByID(uint(id))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "token": tok})
}

type UpdateTokenInput struct {
	Meals []services.MealEdit `json:"meals" binding:"required,dive"`
}

// Update handles PUT /update-token/:id. Edits stay open only while the
// token is unpaid and same-day.
func (tc *TokenController) Update(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid token id"})
		return
	}

	var input UpdateTokenInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	tok, err := tc.Tokens.UpdateMeals(uint(id), input.Meals)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"meals":       tok.Meals,
		"totalAmount": tok.TotalAmount,
	})
}
