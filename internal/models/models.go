package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

type User struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   int       `json:"version"`
}

type Product struct {
	ID          uuid.UUID       `json:"id"`
	SKU         string          `json:"sku"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Images      pq.StringArray  `json:"images"`
	Options     ProductOptions  `json:"options"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	Version     int             `json:"version"`
}

// PrimaryImage is the image denormalised onto line items.
func (p *Product) PrimaryImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

// SizeOption is a purchasable size with a per-unit surcharge.
type SizeOption struct {
	ID        string          `json:"id"`
	Label     string          `json:"label"`
	Surcharge decimal.Decimal `json:"surcharge"`
}

// DesignOption is a purchasable print/design with a per-unit surcharge.
type DesignOption struct {
	Label     string          `json:"label"`
	Surcharge decimal.Decimal `json:"surcharge"`
	Image     string          `json:"image,omitempty"`
}

// ProductOptions is stored as a JSONB document on the product row.
type ProductOptions struct {
	Sizes   []SizeOption   `json:"sizes,omitempty"`
	Designs []DesignOption `json:"designs,omitempty"`
}

func (o *ProductOptions) Size(id string) (SizeOption, bool) {
	for _, s := range o.Sizes {
		if s.ID == id {
			return s, true
		}
	}
	return SizeOption{}, false
}

func (o *ProductOptions) Design(label string) (DesignOption, bool) {
	for _, d := range o.Designs {
		if d.Label == label {
			return d, true
		}
	}
	return DesignOption{}, false
}

func (o ProductOptions) Value() (driver.Value, error) {
	return json.Marshal(o)
}

func (o *ProductOptions) Scan(src any) error {
	return scanJSON(src, o)
}

func scanJSON(src any, dst any) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	default:
		return fmt.Errorf("unsupported JSON column type %T", src)
	}
}
