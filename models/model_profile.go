package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"boitata/utils"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// ProductType represents what kind of offer a product is
type ProductType string

const (
	ProductTypeContent      ProductType = "content"
	ProductTypePPV          ProductType = "ppv"
	ProductTypeSubscription ProductType = "subscription"
	ProductTypeCustom       ProductType = "custom"
)

// Valid checks if the product type is valid
func (t ProductType) Valid() bool {
	switch t {
	case ProductTypeContent, ProductTypePPV, ProductTypeSubscription, ProductTypeCustom:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for ProductType
func (t *ProductType) Scan(value any) error {
	if value == nil {
		*t = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*t = ProductType(v)
	case []byte:
		*t = ProductType(string(v))
	default:
		return fmt.Errorf("cannot scan %T into ProductType", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for ProductType
func (t ProductType) Value() (driver.Value, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid ProductType: %s", t)
	}
	return string(t), nil
}

// ModelProfile is a seller profile whose products are sold through the bot
type ModelProfile struct {
	ID   uint      `gorm:"primaryKey" json:"id"`
	UUID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_model_profiles_uuid" json:"uuid"`

	DisplayName string `gorm:"type:varchar(255);not null" json:"display_name"`
	Bio         string `gorm:"type:text" json:"bio"`

	// Telegram file ids of public preview photos
	PreviewFileIDs pq.StringArray `gorm:"type:text[]" json:"preview_file_ids"`

	IsActive *bool `gorm:"default:true" json:"is_active"`

	CreatedAt time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`

	Products []ModelProduct `gorm:"foreignKey:ModelID" json:"products,omitempty"`
}

// TableName returns the table name for the model
func (ModelProfile) TableName() string {
	return "model_profiles"
}

// BeforeCreate is called before creating a new record
func (m *ModelProfile) BeforeCreate(tx *gorm.DB) error {
	if m.UUID == uuid.Nil {
		m.UUID = uuid.New()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = utils.UTCNow()
	}
	return nil
}

// ProductByID finds a product in the loaded product list
func (m *ModelProfile) ProductByID(productID uint) *ModelProduct {
	for i := range m.Products {
		if m.Products[i].ID == productID {
			return &m.Products[i]
		}
	}
	return nil
}

// ModelProduct is an offer owned by a model profile. Content file ids are
// only released to a buyer after payment confirmation.
type ModelProduct struct {
	ID      uint      `gorm:"primaryKey" json:"id"`
	UUID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_model_products_uuid" json:"uuid"`
	ModelID uint      `gorm:"not null;index:idx_model_products_model_id" json:"model_id"`

	Name        string      `gorm:"type:varchar(255);not null" json:"name"`
	Type        ProductType `gorm:"type:varchar(20);not null" json:"type"`
	PriceCents  int64       `gorm:"not null" json:"price_cents"`
	Currency    string      `gorm:"type:varchar(3);not null;default:'BRL'" json:"currency"`
	Description string      `gorm:"type:text" json:"description"`

	PreviewFileIDs pq.StringArray `gorm:"type:text[]" json:"preview_file_ids"`
	ContentFileIDs pq.StringArray `gorm:"type:text[]" json:"content_file_ids"`

	// Subscription products expire this many days after delivery
	SubscriptionDays int `gorm:"not null;default:0" json:"subscription_days"`

	IsActive *bool `gorm:"default:true" json:"is_active"`

	CreatedAt time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// TableName returns the table name for the model
func (ModelProduct) TableName() string {
	return "model_products"
}

// BeforeCreate is called before creating a new record
func (p *ModelProduct) BeforeCreate(tx *gorm.DB) error {
	if p.UUID == uuid.Nil {
		p.UUID = uuid.New()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = utils.UTCNow()
	}
	return nil
}

// Snapshot captures the immutable fields sold at purchase time
func (p *ModelProduct) Snapshot() ProductSnapshot {
	return ProductSnapshot{
		ProductID:        p.ID,
		Name:             p.Name,
		Type:             p.Type,
		PriceCents:       p.PriceCents,
		Currency:         p.Currency,
		SubscriptionDays: p.SubscriptionDays,
	}
}

// ProductSnapshot is the immutable copy of product fields captured at
// purchase time, decoupled from later edits to the live product.
type ProductSnapshot struct {
	ProductID        uint        `json:"product_id"`
	Name             string      `json:"name"`
	Type             ProductType `json:"type"`
	PriceCents       int64       `json:"price_cents"`
	Currency         string      `json:"currency"`
	SubscriptionDays int         `json:"subscription_days"`
}

// Value implements the driver.Valuer interface for ProductSnapshot
func (s ProductSnapshot) Value() (driver.Value, error) {
	return json.Marshal(s)
}

// Scan implements the sql.Scanner interface for ProductSnapshot
func (s *ProductSnapshot) Scan(value any) error {
	if value == nil {
		*s = ProductSnapshot{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into ProductSnapshot", value)
	}

	return json.Unmarshal(bytes, s)
}
