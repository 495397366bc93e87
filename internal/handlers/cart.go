package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"storefront/internal/auth"
	"storefront/internal/cart"
	"storefront/internal/events"
	"storefront/internal/logging"
)

type CartHandler struct {
	Svc    *cart.Service
	Events events.Publisher
}

func (h *CartHandler) GetCart(c echo.Context) error {
	userID, err := auth.UserID(c)
	if err != nil {
		return err
	}

	lines, err := h.Svc.GetCart(c.Request().Context(), userID)
	if err != nil {
		return cartError(c, err)
	}
	return c.JSON(http.StatusOK, lines)
}

func (h *CartHandler) AddToCart(c echo.Context) error {
	userID, err := auth.UserID(c)
	if err != nil {
		return err
	}

	var req struct {
		ProductID uint `json:"product_id"`
		Quantity  int  `json:"quantity"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.Quantity <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "quantity must be positive")
	}
	if req.ProductID == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "product_id required")
	}

	lines, err := h.Svc.AddToCart(c.Request().Context(), userID, req.ProductID, uint(req.Quantity))
	if err != nil {
		return cartError(c, err)
	}

	publish(c, h.Events, events.TopicCartEvents, fmt.Sprint(userID), map[string]any{
		"type":      "cart_item_added",
		"userID":    userID,
		"productID": req.ProductID,
		"quantity":  req.Quantity,
	})
	return c.JSON(http.StatusOK, lines)
}

func (h *CartHandler) UpdateQuantity(c echo.Context) error {
	userID, err := auth.UserID(c)
	if err != nil {
		return err
	}
	productID, err := parseUintParam(c, "productID")
	if err != nil {
		return err
	}

	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.Quantity < 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "quantity must be non-negative")
	}

	lines, err := h.Svc.UpdateQuantity(c.Request().Context(), userID, productID, uint(req.Quantity))
	if err != nil {
		return cartError(c, err)
	}

	publish(c, h.Events, events.TopicCartEvents, fmt.Sprint(userID), map[string]any{
		"type":      "cart_quantity_updated",
		"userID":    userID,
		"productID": productID,
		"quantity":  req.Quantity,
	})
	return c.JSON(http.StatusOK, lines)
}

func (h *CartHandler) RemoveFromCart(c echo.Context) error {
	userID, err := auth.UserID(c)
	if err != nil {
		return err
	}
	productID, err := parseUintParam(c, "productID")
	if err != nil {
		return err
	}

	lines, err := h.Svc.RemoveFromCart(c.Request().Context(), userID, productID)
	if err != nil {
		return cartError(c, err)
	}

	publish(c, h.Events, events.TopicCartEvents, fmt.Sprint(userID), map[string]any{
		"type":      "cart_item_removed",
		"userID":    userID,
		"productID": productID,
	})
	return c.JSON(http.StatusOK, lines)
}

func (h *CartHandler) ClearCart(c echo.Context) error {
	userID, err := auth.UserID(c)
	if err != nil {
		return err
	}

	if err := h.Svc.ClearCart(c.Request().Context(), userID); err != nil {
		return cartError(c, err)
	}

	publish(c, h.Events, events.TopicCartEvents, fmt.Sprint(userID), map[string]any{
		"type":   "cart_cleared",
		"userID": userID,
	})
	return c.JSON(http.StatusOK, echo.Map{"message": "cart cleared"})
}

func (h *CartHandler) Checkout(c echo.Context) error {
	userID, err := auth.UserID(c)
	if err != nil {
		return err
	}

	conf, err := h.Svc.Checkout(c.Request().Context(), userID)
	if err != nil {
		return cartError(c, err)
	}

	publish(c, h.Events, events.TopicOrderEvents, fmt.Sprint(userID), map[string]any{
		"type":      "order_created",
		"userID":    userID,
		"order_ref": conf.OrderRef,
		"total":     conf.Total,
	})
	return c.JSON(http.StatusOK, conf)
}

// cartError translates the service error taxonomy into HTTP responses.
// Insufficient stock is a recoverable 409 carrying the remaining stock so the
// client can tell the user how many are left.
func cartError(c echo.Context, err error) error {
	var stockErr *cart.InsufficientStockError
	switch {
	case errors.Is(err, cart.ErrInvalidQuantity), errors.Is(err, cart.ErrEmptyCart):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, cart.ErrUserNotFound),
		errors.Is(err, cart.ErrProductNotFound),
		errors.Is(err, cart.ErrLineNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, cart.ErrConflict):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.As(err, &stockErr):
		return c.JSON(http.StatusConflict, echo.Map{
			"error":      "insufficient_stock",
			"message":    stockErr.Error(),
			"product_id": stockErr.ProductID,
			"requested":  stockErr.Requested,
			"available":  stockErr.Available,
		})
	default:
		logging.FromContext(c.Request().Context()).Error("cart operation failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}
