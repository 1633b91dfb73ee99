package httpapi

import (
	"time"

	"github.com/google/uuid"
	"github.com/safar/cartstore/internal/models"
	"github.com/safar/cartstore/internal/pricing"
	"github.com/safar/cartstore/internal/store"
	"github.com/shopspring/decimal"
)

// Amounts leave the service as fixed two-decimal strings.
func money(d decimal.Decimal) string {
	return pricing.Format(d)
}

type sizeView struct {
	ID        string `json:"id"`
	Label     string `json:"label"`
	Surcharge string `json:"surcharge"`
}

type designView struct {
	Label     string `json:"label"`
	Surcharge string `json:"surcharge"`
	Image     string `json:"image,omitempty"`
}

func newSizeView(s *models.SizeOption) *sizeView {
	if s == nil {
		return nil
	}
	return &sizeView{ID: s.ID, Label: s.Label, Surcharge: money(s.Surcharge)}
}

func newDesignView(d *models.DesignOption) *designView {
	if d == nil {
		return nil
	}
	return &designView{Label: d.Label, Surcharge: money(d.Surcharge), Image: d.Image}
}

type lineView struct {
	ProductID uuid.UUID   `json:"productId"`
	Name      string      `json:"name"`
	Image     string      `json:"image,omitempty"`
	UnitPrice string      `json:"unitPrice"`
	Quantity  int         `json:"quantity"`
	Size      *sizeView   `json:"size,omitempty"`
	Design    *designView `json:"design,omitempty"`
	LineTotal string      `json:"lineTotal"`
	AddedAt   time.Time   `json:"addedAt"`
}

func newLineViews(items models.LineItems) []lineView {
	views := make([]lineView, len(items))
	for i, item := range items {
		views[i] = lineView{
			ProductID: item.ProductID,
			Name:      item.Name,
			Image:     item.Image,
			UnitPrice: money(item.UnitPrice),
			Quantity:  item.Quantity,
			Size:      newSizeView(item.Size),
			Design:    newDesignView(item.Design),
			LineTotal: money(pricing.LineTotal(item)),
			AddedAt:   item.AddedAt,
		}
	}
	return views
}

type cartView struct {
	ID         uuid.UUID  `json:"id"`
	CustomerID uuid.UUID  `json:"customerId"`
	Items      []lineView `json:"items"`
	ItemCount  int        `json:"itemCount"`
	Subtotal   string     `json:"subtotal"`
	Shipping   string     `json:"shipping"`
	Total      string     `json:"total"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// newCartView returns a nil view for a nil cart, which encodes as null.
func newCartView(c *models.Cart) *cartView {
	if c == nil {
		return nil
	}
	totals := pricing.Calculate(c.Items)
	return &cartView{
		ID:         c.ID,
		CustomerID: c.CustomerID,
		Items:      newLineViews(c.Items),
		ItemCount:  totals.ItemCount,
		Subtotal:   money(totals.Subtotal),
		Shipping:   money(totals.Shipping),
		Total:      money(totals.Total),
		UpdatedAt:  c.UpdatedAt,
	}
}

type orderView struct {
	ID            uuid.UUID              `json:"id"`
	OrderNumber   string                 `json:"orderNumber"`
	CustomerID    uuid.UUID              `json:"customerId"`
	CartID        uuid.UUID              `json:"cartId"`
	Shipping      models.ShippingDetails `json:"shipping"`
	Items         []lineView             `json:"items"`
	ItemCount     int                    `json:"itemCount"`
	Subtotal      string                 `json:"subtotal"`
	ShippingCost  string                 `json:"shippingCost"`
	TotalAmount   string                 `json:"totalAmount"`
	Status        models.OrderStatus     `json:"status"`
	PaymentStatus models.PaymentStatus   `json:"paymentStatus"`
	PaymentMethod string                 `json:"paymentMethod,omitempty"`
	CreatedAt     time.Time              `json:"createdAt"`
	UpdatedAt     time.Time              `json:"updatedAt"`
}

func newOrderView(o *models.Order) orderView {
	return orderView{
		ID:            o.ID,
		OrderNumber:   o.OrderNumber,
		CustomerID:    o.CustomerID,
		CartID:        o.CartID,
		Shipping:      o.Shipping,
		Items:         newLineViews(o.Items),
		ItemCount:     o.ItemCount,
		Subtotal:      money(o.Subtotal),
		ShippingCost:  money(o.ShippingCost),
		TotalAmount:   money(o.TotalAmount),
		Status:        o.Status,
		PaymentStatus: o.PaymentStatus,
		PaymentMethod: o.PaymentMethod,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
}

type productView struct {
	ID          uuid.UUID    `json:"id"`
	SKU         string       `json:"sku"`
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Price       string       `json:"price"`
	Stock       int          `json:"stock"`
	Images      []string     `json:"images"`
	Sizes       []sizeView   `json:"sizes,omitempty"`
	Designs     []designView `json:"designs,omitempty"`
	Version     int          `json:"version"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

func newProductView(p *models.Product) productView {
	view := productView{
		ID:          p.ID,
		SKU:         p.SKU,
		Name:        p.Name,
		Description: p.Description,
		Price:       money(p.Price),
		Stock:       p.Stock,
		Images:      []string(p.Images),
		Version:     p.Version,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	if view.Images == nil {
		view.Images = []string{}
	}
	for i := range p.Options.Sizes {
		view.Sizes = append(view.Sizes, *newSizeView(&p.Options.Sizes[i]))
	}
	for i := range p.Options.Designs {
		view.Designs = append(view.Designs, *newDesignView(&p.Options.Designs[i]))
	}
	return view
}

type userView struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

func newUserView(u *models.User) userView {
	return userView{ID: u.ID, Email: u.Email, Name: u.Name, CreatedAt: u.CreatedAt}
}

type pageView struct {
	Items      any   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"pageSize"`
	TotalPages int   `json:"totalPages"`
}

type cursorPageView struct {
	Items      []orderView `json:"items"`
	NextCursor string      `json:"nextCursor,omitempty"`
	HasMore    bool        `json:"hasMore"`
}

func newOffsetPageView(p *store.OffsetPage) pageView {
	view := pageView{Total: p.Total, Page: p.Page, PageSize: p.PageSize, TotalPages: p.TotalPages}

	switch items := p.Items.(type) {
	case []models.Product:
		views := make([]productView, len(items))
		for i := range items {
			views[i] = newProductView(&items[i])
		}
		view.Items = views
	case []models.User:
		views := make([]userView, len(items))
		for i := range items {
			views[i] = newUserView(&items[i])
		}
		view.Items = views
	default:
		view.Items = items
	}
	return view
}

func newOrderPageView(p *store.CursorPage) cursorPageView {
	orders, _ := p.Items.([]models.Order)
	views := make([]orderView, len(orders))
	for i := range orders {
		views[i] = newOrderView(&orders[i])
	}
	return cursorPageView{Items: views, NextCursor: p.NextCursor, HasMore: p.HasMore}
}
