package backend

import "github.com/spec-kit/astro-gateway/internal/domain"

// envelope is the backend's standard response wrapper.
type envelope[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

type profileBody struct {
	ID       string `json:"_id"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
}

type cartBody struct {
	Items []cartItemBody `json:"items"`
}

type cartItemBody struct {
	ID       string      `json:"_id"`
	Quantity int         `json:"quantity"`
	Product  productBody `json:"product"`
}

type productBody struct {
	ID            string   `json:"_id"`
	Name          string   `json:"name"`
	Price         float64  `json:"price"`
	DiscountPrice *float64 `json:"discountPrice"`
	Images        []string `json:"images"`
	ProductType   string   `json:"productType"`
}

type countBody struct {
	Count int `json:"count"`
}

type addToCartBody struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

func (p profileBody) toDomain(role domain.Role) *domain.Profile {
	return &domain.Profile{
		ID:       p.ID,
		FullName: p.FullName,
		Email:    p.Email,
		Role:     role,
	}
}

// flatten maps backend cart items into line items. A zero discount price is
// treated as absent.
func (c cartBody) flatten() []domain.CartLine {
	lines := make([]domain.CartLine, 0, len(c.Items))
	for _, item := range c.Items {
		discount := item.Product.DiscountPrice
		if discount != nil && *discount <= 0 {
			discount = nil
		}
		images := item.Product.Images
		if images == nil {
			images = []string{}
		}
		lines = append(lines, domain.CartLine{
			ID:            item.ID,
			ProductID:     item.Product.ID,
			Name:          item.Product.Name,
			Price:         item.Product.Price,
			DiscountPrice: discount,
			Quantity:      item.Quantity,
			Images:        images,
			ProductType:   item.Product.ProductType,
		})
	}
	return lines
}
