package controllers

import (
	"net/http"

	"messmate/services"

	"github.com/gin-gonic/gin"
)

type AuthController struct {
	Users *services.UserService
}

func NewAuthController(users *services.UserService) *AuthController {
	return &AuthController{Users: users}
}

type SignupInput struct {
	Name     string `json:"name"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role"`
}

func (ac *AuthController) Signup(c *gin.Context) {
	var input SignupInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	user, err := ac.Users.Register(input.Name, input.Email, input.Password, input.Role)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"email":   user.Email,
		"role":    user.Role,
		"name":    user.Name,
	})
}

type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (ac *AuthController) Login(c *gin.Context) {
	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	user, token, err := ac.Users.Authenticate(input.Email, input.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"token":           token,
		"email":           user.Email,
		"role":            user.Role,
		"name":            user.Name,
		"profileComplete": user.ProfileComplete,
	})
}

func (ac *AuthController) GetUser(c *gin.Context) {
	user, err := ac.Users.GetByEmail(c.Param("email"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"name":            user.Name,
		"email":           user.Email,
		"role":            user.Role,
		"profilePhoto":    user.ProfilePhoto,
		"profileComplete": user.ProfileComplete,
	})
}

type CompleteProfileInput struct {
	Email       string `json:"email" binding:"required,email"`
	PhotoBase64 string `json:"photoBase64"`
}

func (ac *AuthController) CompleteProfile(c *gin.Context) {
	var input CompleteProfileInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	user, err := ac.Users.CompleteProfile(input.Email, input.PhotoBase64)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "profilePhoto": user.ProfilePhoto})
}

func (ac *AuthController) Orders(c *gin.Context) {
	orders, err := ac.Users.Orders(c.Param("email"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "orders": orders})
}
