package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/safar/cartstore/internal/apperr"
	"github.com/shopspring/decimal"
)

const (
	MinQuantity  = 1
	MaxQuantity  = 100
	MaxLineItems = 50
)

// LineItem is one product row of a cart or an order. Name, Image and
// UnitPrice are copies of the product taken when the line was added.
type LineItem struct {
	ProductID uuid.UUID       `json:"productId"`
	Name      string          `json:"name"`
	Image     string          `json:"image,omitempty"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Quantity  int             `json:"quantity"`
	Size      *SizeOption     `json:"size,omitempty"`
	Design    *DesignOption   `json:"design,omitempty"`
	AddedAt   time.Time       `json:"addedAt"`
}

// LineItems is persisted as an ordered JSONB array.
type LineItems []LineItem

func (l LineItems) Value() (driver.Value, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l)
}

func (l *LineItems) Scan(src any) error {
	return scanJSON(src, l)
}

// Refs returns the (product, quantity) pairs in order.
func (l LineItems) Refs() []LineRef {
	refs := make([]LineRef, len(l))
	for i, item := range l {
		refs[i] = LineRef{ProductID: item.ProductID, Quantity: item.Quantity}
	}
	return refs
}

// LineRef identifies a line by product and quantity only.
type LineRef struct {
	ProductID uuid.UUID `json:"productId"`
	Quantity  int       `json:"quantity"`
}

type Cart struct {
	ID         uuid.UUID `json:"id"`
	CustomerID uuid.UUID `json:"customerId"`
	Items      LineItems `json:"items"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
	Version    int       `json:"version"`
}

// ValidQuantity reports whether q is within [MinQuantity, MaxQuantity].
func ValidQuantity(q int) bool {
	return q >= MinQuantity && q <= MaxQuantity
}

func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

func (c *Cart) indexOf(productID uuid.UUID) int {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// Line returns the line for productID, if present.
func (c *Cart) Line(productID uuid.UUID) (LineItem, bool) {
	if i := c.indexOf(productID); i >= 0 {
		return c.Items[i], true
	}
	return LineItem{}, false
}

// AddLine merges item into the cart. An existing line keeps its captured
// name, image and price and its quantity saturates at MaxQuantity; a new
// line is appended unless the cart already holds MaxLineItems products.
func (c *Cart) AddLine(item LineItem) error {
	if !ValidQuantity(item.Quantity) {
		return apperr.Invalid("quantity must be between %d and %d", MinQuantity, MaxQuantity)
	}

	if i := c.indexOf(item.ProductID); i >= 0 {
		existing := &c.Items[i]
		existing.Quantity = min(existing.Quantity+item.Quantity, MaxQuantity)
		if item.Size != nil {
			existing.Size = item.Size
		}
		if item.Design != nil {
			existing.Design = item.Design
		}
		return nil
	}

	if len(c.Items) >= MaxLineItems {
		return apperr.ErrCartFull
	}
	c.Items = append(c.Items, item)
	return nil
}

// SetLine replaces the quantity of an existing line and refreshes the
// denormalised product fields from p.
func (c *Cart) SetLine(p *Product, quantity int, size *SizeOption, design *DesignOption) error {
	if !ValidQuantity(quantity) {
		return apperr.Invalid("quantity must be between %d and %d", MinQuantity, MaxQuantity)
	}

	i := c.indexOf(p.ID)
	if i < 0 {
		return apperr.ErrItemNotFound
	}

	line := &c.Items[i]
	line.Quantity = quantity
	line.Name = p.Name
	line.Image = p.PrimaryImage()
	line.UnitPrice = p.Price
	if size != nil {
		line.Size = size
	}
	if design != nil {
		line.Design = design
	}
	return nil
}

// RemoveLine drops the line for productID, preserving the order of the rest.
func (c *Cart) RemoveLine(productID uuid.UUID) error {
	i := c.indexOf(productID)
	if i < 0 {
		return apperr.ErrItemNotFound
	}
	c.Items = append(c.Items[:i], c.Items[i+1:]...)
	return nil
}
