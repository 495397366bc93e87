package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"storefront/internal/models"
)

// maxRetries bounds the read-check-write rounds a mutation may spend on
// optimistic version conflicts before reporting ErrConflict.
const maxRetries = 3

// Service owns all cart mutations. Every mutation validates the requested
// quantity against the product stock visible in the current attempt; stock is
// admitted, never reserved. Same-user races are resolved by the Version stamp
// on each line: a stale write affects zero rows and the whole round is
// retried against fresh state.
type Service struct {
	DB *gorm.DB
}

// Line is one cart entry with product details joined in.
type Line struct {
	Product  models.Product `json:"product"`
	Quantity uint           `json:"quantity"`
}

type OrderConfirmation struct {
	OrderRef      string  `json:"order_ref"`
	Items         []Line  `json:"items"`
	Total         float64 `json:"total"`
	PaymentStatus string  `json:"payment_status"`
}

func (s *Service) GetCart(ctx context.Context, userID uint) ([]Line, error) {
	var user models.User
	if err := s.DB.WithContext(ctx).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	return s.loadLines(ctx, userID)
}

// AddToCart accumulates intent across repeated adds: an existing line grows
// by qty, a missing line is created with qty. The admission check applies to
// the resulting total; on failure nothing is written.
func (s *Service) AddToCart(ctx context.Context, userID, productID, qty uint) ([]Line, error) {
	if qty == 0 {
		return nil, ErrInvalidQuantity
	}

	for attempt := 0; attempt < maxRetries; attempt++ {
		var product models.Product
		if err := s.DB.WithContext(ctx).First(&product, productID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrProductNotFound
			}
			return nil, fmt.Errorf("load product: %w", err)
		}

		var item models.CartItem
		err := s.DB.WithContext(ctx).
			Where("user_id = ? AND product_id = ?", userID, productID).
			First(&item).Error

		switch {
		case err == nil:
			total := item.Quantity + qty
			if total > product.Stock {
				return nil, &InsufficientStockError{ProductID: productID, Requested: total, Available: product.Stock}
			}
			res := s.DB.WithContext(ctx).Model(&models.CartItem{}).
				Where("id = ? AND version = ?", item.ID, item.Version).
				Updates(map[string]any{"quantity": total, "version": item.Version + 1})
			if res.Error != nil {
				return nil, fmt.Errorf("update cart line: %w", res.Error)
			}
			if res.RowsAffected == 0 {
				continue
			}
			return s.loadLines(ctx, userID)

		case errors.Is(err, gorm.ErrRecordNotFound):
			if qty > product.Stock {
				return nil, &InsufficientStockError{ProductID: productID, Requested: qty, Available: product.Stock}
			}
			item = models.CartItem{UserID: userID, ProductID: productID, Quantity: qty}
			if err := s.DB.WithContext(ctx).Create(&item).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					// lost the creation race, fold into the winner's line
					continue
				}
				return nil, fmt.Errorf("create cart line: %w", err)
			}
			return s.loadLines(ctx, userID)

		default:
			return nil, fmt.Errorf("load cart line: %w", err)
		}
	}
	return nil, ErrConflict
}

// UpdateQuantity sets a line to exactly newQty. Zero removes the line; a
// missing line is an error, unlike AddToCart.
func (s *Service) UpdateQuantity(ctx context.Context, userID, productID, newQty uint) ([]Line, error) {
	for attempt := 0; attempt < maxRetries; attempt++ {
		var item models.CartItem
		err := s.DB.WithContext(ctx).
			Where("user_id = ? AND product_id = ?", userID, productID).
			First(&item).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLineNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("load cart line: %w", err)
		}

		if newQty == 0 {
			res := s.DB.WithContext(ctx).
				Where("id = ? AND version = ?", item.ID, item.Version).
				Delete(&models.CartItem{})
			if res.Error != nil {
				return nil, fmt.Errorf("delete cart line: %w", res.Error)
			}
			if res.RowsAffected == 0 {
				continue
			}
			return s.loadLines(ctx, userID)
		}

		var product models.Product
		if err := s.DB.WithContext(ctx).First(&product, productID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrProductNotFound
			}
			return nil, fmt.Errorf("load product: %w", err)
		}
		if newQty > product.Stock {
			return nil, &InsufficientStockError{ProductID: productID, Requested: newQty, Available: product.Stock}
		}

		res := s.DB.WithContext(ctx).Model(&models.CartItem{}).
			Where("id = ? AND version = ?", item.ID, item.Version).
			Updates(map[string]any{"quantity": newQty, "version": item.Version + 1})
		if res.Error != nil {
			return nil, fmt.Errorf("update cart line: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			continue
		}
		return s.loadLines(ctx, userID)
	}
	return nil, ErrConflict
}

// RemoveFromCart deletes the line if present. Removing an absent line is a
// successful no-op.
func (s *Service) RemoveFromCart(ctx context.Context, userID, productID uint) ([]Line, error) {
	err := s.DB.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Delete(&models.CartItem{}).Error
	if err != nil {
		return nil, fmt.Errorf("delete cart line: %w", err)
	}
	return s.loadLines(ctx, userID)
}

func (s *Service) ClearCart(ctx context.Context, userID uint) error {
	err := s.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&models.CartItem{}).Error
	if err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

// Checkout re-validates every line against current stock, totals the cart and
// clears it in one transaction. Stock itself is not decremented here, that
// happens at fulfillment. No order row is persisted, the confirmation carries
// a reference for the payment step.
func (s *Service) Checkout(ctx context.Context, userID uint) (*OrderConfirmation, error) {
	var conf *OrderConfirmation

	txErr := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var items []models.CartItem
		if err := tx.Where("user_id = ?", userID).Order("id ASC").Find(&items).Error; err != nil {
			return fmt.Errorf("load cart: %w", err)
		}
		if len(items) == 0 {
			return ErrEmptyCart
		}

		lines := make([]Line, 0, len(items))
		var total float64
		for _, it := range items {
			var p models.Product
			if err := tx.First(&p, it.ProductID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrProductNotFound
				}
				return fmt.Errorf("load product: %w", err)
			}
			if it.Quantity > p.Stock {
				return &InsufficientStockError{ProductID: p.ID, Requested: it.Quantity, Available: p.Stock}
			}
			total += float64(it.Quantity) * p.Price
			lines = append(lines, Line{Product: p, Quantity: it.Quantity})
		}

		if err := tx.Where("user_id = ?", userID).Delete(&models.CartItem{}).Error; err != nil {
			return fmt.Errorf("clear cart: %w", err)
		}

		conf = &OrderConfirmation{
			OrderRef:      uuid.NewString(),
			Items:         lines,
			Total:         total,
			PaymentStatus: "payment_not_implemented",
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}
	return conf, nil
}

func (s *Service) loadLines(ctx context.Context, userID uint) ([]Line, error) {
	var items []models.CartItem
	if err := s.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id ASC").
		Find(&items).Error; err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	if len(items) == 0 {
		return []Line{}, nil
	}

	ids := make([]uint, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}
	var products []models.Product
	if err := s.DB.WithContext(ctx).Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}
	byID := make(map[uint]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	lines := make([]Line, 0, len(items))
	for _, it := range items {
		p, ok := byID[it.ProductID]
		if !ok {
			// product removed from the catalog after the line was admitted
			continue
		}
		lines = append(lines, Line{Product: p, Quantity: it.Quantity})
	}
	return lines, nil
}
