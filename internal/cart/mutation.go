package cart

import "github.com/fjod/go_cart/cart-client/internal/domain"

// quantityChange is one optimistic quantity write. apply runs before the
// request is sent and rollback only after the server refused it.
type quantityChange struct {
	productID int64
	delta     int
	prior     int
	next      int
}

func newQuantityChange(line domain.CartLine, delta int) quantityChange {
	return quantityChange{
		productID: line.ProductID,
		delta:     delta,
		prior:     line.Quantity,
		next:      line.Quantity + delta,
	}
}

func (c quantityChange) apply(lines []domain.CartLine) {
	if i := indexOf(lines, c.productID); i >= 0 {
		lines[i].Quantity = c.next
	}
}

// rollback restores the prior quantity unless something else (a reload or a
// clear) replaced the line in the meantime.
func (c quantityChange) rollback(lines []domain.CartLine) bool {
	i := indexOf(lines, c.productID)
	if i < 0 || lines[i].Quantity != c.next {
		return false
	}
	lines[i].Quantity = c.prior
	return true
}

func indexOf(lines []domain.CartLine, productID int64) int {
	for i := range lines {
		if lines[i].ProductID == productID {
			return i
		}
	}
	return -1
}
