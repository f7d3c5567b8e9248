package borrowing

// LimitPolicy caps how many books a user may hold at once.
type LimitPolicy struct {
	Limit int
}

// CanBorrow reports whether a user currently holding count books may take
// one more.
func (p LimitPolicy) CanBorrow(count int) bool {
	return count < p.Limit
}
