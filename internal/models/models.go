package models

type Product struct {
	ID             uint              `gorm:"primaryKey;autoIncrement"      json:"id"`
	Name           string            `gorm:"not null"                      json:"name"`
	Description    string            `json:"description"`
	Price          float64           `gorm:"not null;check:price >= 0"     json:"price"`
	Stock          uint              `gorm:"not null;default:0"            json:"stock"`
	Category       string            `gorm:"index"                         json:"category"`
	Images         []string          `gorm:"serializer:json"               json:"images"`
	Specifications map[string]string `gorm:"serializer:json"               json:"specifications"`
	Rating         float64           `json:"rating"`
	Reviews        []Review          `gorm:"constraint:OnDelete:CASCADE"   json:"reviews,omitempty"`
}

// Review rows are append-only: nothing in the API updates or deletes them.
type Review struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"              json:"id"`
	ProductID uint   `gorm:"index;not null"                        json:"product_id"`
	UserID    uint   `gorm:"not null"                              json:"user_id"`
	Author    string `gorm:"not null"                              json:"author"`
	Rating    uint   `gorm:"not null;check:rating BETWEEN 1 AND 5" json:"rating"`
	Body      string `json:"body"`
	CreatedAt int64  `gorm:"autoCreateTime"                        json:"created_at"`
}

type User struct {
	ID           uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string `gorm:"unique;not null"          json:"username"`
	PasswordHash string `gorm:"not null"                 json:"-"`
	Role         string `gorm:"not null"                 json:"role"`
}

type RefreshToken struct {
	ID        uint   `gorm:"primaryKey"      json:"id"`
	Token     string `gorm:"unique;not null" json:"token"`
	UserID    uint   `gorm:"index;not null"  json:"user_id"`
	ExpiresAt int64  `gorm:"not null"        json:"expires_at"`
	Revoked   bool   `gorm:"default:false"   json:"revoked"`
}

// CartItem holds one cart line. Version is the optimistic stamp checked on
// every mutation. A line with quantity 0 is deleted, never stored.
type CartItem struct {
	ID        uint `gorm:"primaryKey"                            json:"id"`
	UserID    uint `gorm:"uniqueIndex:idx_user_product;not null" json:"user_id"`
	ProductID uint `gorm:"uniqueIndex:idx_user_product;not null" json:"product_id"`
	Quantity  uint `gorm:"not null;check:quantity > 0"           json:"quantity"`
	Version   uint `gorm:"not null;default:0"                    json:"-"`
}
