package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"storefront/internal/cache"
	"storefront/internal/events"
	"storefront/internal/models"
	"storefront/internal/util"
)

type ProductHandler struct {
	DB     *gorm.DB
	Cache  *cache.ProductCache
	Events events.Publisher
}

func (h *ProductHandler) GetProduct(c echo.Context) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	if p, ok := h.Cache.GetProduct(ctx, id); ok {
		return c.JSON(http.StatusOK, p)
	}

	var product models.Product
	if err := h.DB.WithContext(ctx).Preload("Reviews").First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "product not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	h.Cache.SetProduct(ctx, &product)
	return c.JSON(http.StatusOK, product)
}

func (h *ProductHandler) GetProducts(c echo.Context) error {
	page := parseIntDefault(c.QueryParam("page"), 1)
	if page < 1 {
		page = 1
	}
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)
	ctx := c.Request().Context()

	if data, ok := h.Cache.GetList(ctx, page, limit); ok {
		return c.JSONBlob(http.StatusOK, data)
	}

	var total int64
	if err := h.DB.WithContext(ctx).Model(&models.Product{}).Count(&total).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	var items []models.Product
	if err := h.DB.WithContext(ctx).Model(&models.Product{}).
		Order("id ASC").Offset(offset).Limit(limit).
		Find(&items).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	resp := map[string]any{
		"data": items,
		"meta": map[string]any{
			"page":        page,
			"size":        limit,
			"total":       total,
			"total_pages": (total + int64(limit) - 1) / int64(limit),
			"has_prev":    page > 1,
			"has_next":    int64(offset+limit) < total,
		},
	}

	if data, err := json.Marshal(resp); err == nil {
		h.Cache.SetList(ctx, page, limit, data)
	}
	return c.JSON(http.StatusOK, resp)
}

type productRequest struct {
	Name           *string           `json:"name"`
	Description    *string           `json:"description"`
	Price          *float64          `json:"price"`
	Stock          *uint             `json:"stock"`
	Category       *string           `json:"category"`
	Images         []string          `json:"images"`
	Specifications map[string]string `json:"specifications"`
}

func (h *ProductHandler) CreateProduct(c echo.Context) error {
	var req productRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.Name == nil || *req.Name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name required")
	}
	if req.Price != nil && *req.Price < 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "price must be non-negative")
	}

	prod := models.Product{
		Name:           *req.Name,
		Images:         req.Images,
		Specifications: req.Specifications,
	}
	if req.Description != nil {
		prod.Description = *req.Description
	}
	if req.Price != nil {
		prod.Price = *req.Price
	}
	if req.Stock != nil {
		prod.Stock = *req.Stock
	}
	if req.Category != nil {
		prod.Category = *req.Category
	}

	if err := h.DB.WithContext(c.Request().Context()).Create(&prod).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	h.Cache.InvalidateProduct(c.Request().Context(), prod.ID)
	publish(c, h.Events, events.TopicProductEvents, fmt.Sprint(prod.ID), map[string]any{
		"type":      "product_created",
		"productID": prod.ID,
		"name":      prod.Name,
	})

	return c.JSON(http.StatusCreated, prod)
}

func (h *ProductHandler) PatchProduct(c echo.Context) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return err
	}

	var req productRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.Price != nil && *req.Price < 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "price must be non-negative")
	}

	ctx := c.Request().Context()
	var prod models.Product
	if err := h.DB.WithContext(ctx).First(&prod, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "product not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if req.Name != nil {
		prod.Name = *req.Name
	}
	if req.Description != nil {
		prod.Description = *req.Description
	}
	if req.Price != nil {
		prod.Price = *req.Price
	}
	if req.Stock != nil {
		prod.Stock = *req.Stock
	}
	if req.Category != nil {
		prod.Category = *req.Category
	}
	if req.Images != nil {
		prod.Images = req.Images
	}
	if req.Specifications != nil {
		prod.Specifications = req.Specifications
	}

	if err := h.DB.WithContext(ctx).Save(&prod).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	h.Cache.InvalidateProduct(ctx, prod.ID)
	publish(c, h.Events, events.TopicProductEvents, fmt.Sprint(prod.ID), map[string]any{
		"type":      "product_updated",
		"productID": prod.ID,
		"name":      prod.Name,
	})

	return c.JSON(http.StatusOK, prod)
}

func (h *ProductHandler) DeleteProduct(c echo.Context) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	if err := h.DB.WithContext(ctx).Delete(&models.Product{}, id).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	h.Cache.InvalidateProduct(ctx, id)
	publish(c, h.Events, events.TopicProductEvents, fmt.Sprint(id), map[string]any{
		"type":      "product_deleted",
		"productID": id,
	})

	return c.NoContent(http.StatusNoContent)
}
