package controllers

import (
	"net/http"
	"strconv"

	"messmate/services"

	"github.com/gin-gonic/gin"
)

type MealController struct {
	Meals *services.MealService
}

func NewMealController(meals *services.MealService) *MealController {
	return &MealController{Meals: meals}
}

func (mc *MealController) List(c *gin.Context) {
	meals, err := mc.Meals.List()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, meals)
}

func (mc *MealController) Get(c *gin.Context) {
	meal, err := mc.Meals.GetByName(c.Param("name"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"name":         meal.Name,
		"image":        meal.Image,
		"description":  meal.Description,
		"price":        meal.Price,
		"avgRating":    meal.AvgRating,
		"totalRatings": meal.TotalRatings,
	})
}

type MealInput struct {
	Name        string  `json:"name" binding:"required"`
	Price       float64 `json:"price" binding:"required,gt=0"`
	Description string  `json:"description"`
	ImageBase64 string  `json:"imageBase64"`
}

func (mc *MealController) Create(c *gin.Context) {
	var input MealInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	if _, err := mc.Meals.Create(input.Name, input.Price, input.Description, input.ImageBase64); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true})
}

type MealUpdateInput struct {
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Description string  `json:"description"`
	ImageBase64 string  `json:"imageBase64"`
}

func (mc *MealController) Update(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid meal id"})
		return
	}

	var input MealUpdateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	if _, err := mc.Meals.Update(uint(id), input.Name, input.Price, input.Description, input.ImageBase64); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (mc *MealController) Delete(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid meal id"})
		return
	}

	if err := mc.Meals.Delete(uint(id)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

type RateInput struct {
	Email    string `json:"email" binding:"required,email"`
	MealName string `json:"mealName" binding:"required"`
	Rating   int    `json:"rating" binding:"required,min=1,max=5"`
}

func (mc *MealController) Rate(c *gin.Context) {
	var input RateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	meal, err := mc.Meals.Rate(input.Email, input.MealName, input.Rating)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"avgRating":    meal.AvgRating,
		"totalRatings": meal.TotalRatings,
	})
}
