package domain

// CartLine is a flattened cart entry.
type CartLine struct {
	ID            string   `json:"id"`
	ProductID     string   `json:"productId"`
	Name          string   `json:"name"`
	Price         float64  `json:"price"`
	DiscountPrice *float64 `json:"discountPrice,omitempty"`
	Quantity      int      `json:"quantity"`
	Images        []string `json:"images"`
	ProductType   string   `json:"productType"`
}

// EffectivePrice is the discount price when present, else the list price.
func (l CartLine) EffectivePrice() float64 {
	if l.DiscountPrice != nil {
		return *l.DiscountPrice
	}
	return l.Price
}

// CartTotal sums effective price times quantity.
func CartTotal(lines []CartLine) float64 {
	var total float64
	for _, l := range lines {
		total += l.EffectivePrice() * float64(l.Quantity)
	}
	return total
}

// CartSnapshot is the cached cart. Items and Count are refreshed
// independently and may disagree between refreshes.
type CartSnapshot struct {
	Items []CartLine `json:"items"`
	Count int        `json:"count"`
	Total float64    `json:"total"`
}
