package controllers

import (
	"net/http"

	"messmate/services"

	"github.com/gin-gonic/gin"
)

type VerifyController struct {
	Verify *services.VerifyService
}

func NewVerifyController(verify *services.VerifyService) *VerifyController {
	return &VerifyController{Verify: verify}
}

type PaymentInput struct {
	Token  string  `json:"token" binding:"required"`
	Batch  int     `json:"batch" binding:"required,oneof=1 2"`
	Amount float64 `json:"amount" binding:"required,gt=0"`
	UPIRef string  `json:"upiRef"`
}

// POST /verify-token-payment
func (vc *VerifyController) ConfirmPayment(c *gin.Context) {
	var input PaymentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	tok, err := vc.Verify.ConfirmPayment(input.Token, input.Batch, input.Amount, input.UPIRef)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"token":         tok.Number,
		"paid":          true,
		"transactionId": tok.Payment.TransactionID,
		"mainAmount":    tok.Payment.MainAmount,
		"commission":    tok.Payment.CommissionAmount,
	})
}

type VerifyTokenInput struct {
	Token string `json:"token" binding:"required"`
	Batch int    `json:"batch" binding:"required,oneof=1 2"`
}

// VerifyToken handles POST /verify-token, where the producer marks a paid
// token as served.
func (vc *VerifyController) VerifyToken(c *gin.Context) {
	var input VerifyTokenInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	tok, err := vc.Verify.VerifyToken(input.Token, input.Batch)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"token":      tok.Number,
		"userEmail":  tok.UserEmail,
		"userName":   tok.UserName,
		"meals":      tok.Meals,
		"verified":   true,
		"verifiedAt": tok.VerifiedAt,
	})
}

type VerifyQRInput struct {
	UserEmail string `json:"userEmail" binding:"required,email"`
	Date      string `json:"date" binding:"required"`
}

// VerifyQR handles POST /verify-qr, verifying all of a student's paid
// orders for a date at once.
func (vc *VerifyController) VerifyQR(c *gin.Context) {
	var input VerifyQRInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	summary, err := vc.Verify.VerifyQR(input.UserEmail, input.Date)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Orders verified",
		"meals":   summary,
	})
}

// POST /check-verified
func (vc *VerifyController) CheckVerified(c *gin.Context) {
	var input VerifyQRInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	verified, err := vc.Verify.CheckVerified(input.UserEmail, input.Date)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"verified": verified})
}
