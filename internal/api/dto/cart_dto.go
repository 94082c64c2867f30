package dto

// AddCartItemRequest payload for POST /api/cart/items.
type AddCartItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// CartCountResponse carries the lightweight count.
type CartCountResponse struct {
	Count int `json:"count"`
}

// RealtimeResponse describes the session's realtime channel.
type RealtimeResponse struct {
	Connected    bool   `json:"connected"`
	ConnectionID string `json:"connectionId,omitempty"`
}
