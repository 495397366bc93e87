package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"storefront/internal/auth"
	"storefront/internal/cache"
	"storefront/internal/events"
	"storefront/internal/models"
)

type ReviewHandler struct {
	DB     *gorm.DB
	Cache  *cache.ProductCache
	Events events.Publisher
}

func (h *ReviewHandler) ListReviews(c echo.Context) error {
	productID, err := parseUintParam(c, "id")
	if err != nil {
		return err
	}

	var reviews []models.Review
	if err := h.DB.WithContext(c.Request().Context()).
		Where("product_id = ?", productID).
		Order("id ASC").
		Find(&reviews).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, reviews)
}

// CreateReview appends a review and refreshes the product's denormalized
// rating in the same transaction.
func (h *ReviewHandler) CreateReview(c echo.Context) error {
	userID, err := auth.UserID(c)
	if err != nil {
		return err
	}
	productID, err := parseUintParam(c, "id")
	if err != nil {
		return err
	}

	var req struct {
		Rating uint   `json:"rating"`
		Body   string `json:"body"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.Rating < 1 || req.Rating > 5 {
		return echo.NewHTTPError(http.StatusBadRequest, "rating must be between 1 and 5")
	}

	ctx := c.Request().Context()
	var review models.Review

	txErr := h.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var product models.Product
		if err := tx.First(&product, productID).Error; err != nil {
			return err
		}
		var user models.User
		if err := tx.First(&user, userID).Error; err != nil {
			return err
		}

		review = models.Review{
			ProductID: productID,
			UserID:    userID,
			Author:    user.Username,
			Rating:    req.Rating,
			Body:      req.Body,
		}
		if err := tx.Create(&review).Error; err != nil {
			return err
		}

		var avg float64
		if err := tx.Model(&models.Review{}).
			Where("product_id = ?", productID).
			Select("AVG(rating)").
			Scan(&avg).Error; err != nil {
			return err
		}
		return tx.Model(&product).Update("rating", avg).Error
	})
	if txErr != nil {
		if errors.Is(txErr, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "product not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, txErr.Error())
	}

	h.Cache.InvalidateProduct(ctx, productID)
	publish(c, h.Events, events.TopicProductEvents, fmt.Sprint(productID), map[string]any{
		"type":      "review_added",
		"productID": productID,
		"userID":    userID,
		"rating":    req.Rating,
	})

	return c.JSON(http.StatusCreated, review)
}
