// pkg/ledger/ledger.go
package ledger

// Capacity is the full tank, in percent.
const Capacity = 100.0

// Ledger tracks fuel as a bounded depleting resource. Fuel never leaves
// [0, Capacity].
type Ledger struct {
	fuel float64
}

// New creates a ledger holding the given amount of fuel.
func New(initial float64) *Ledger {
	l := &Ledger{}
	l.Set(initial)
	return l
}

// Fuel returns the remaining fuel.
func (l *Ledger) Fuel() float64 {
	return l.fuel
}

// Debit removes amount and returns the new balance, clamped at zero.
// Negative amounts are ignored.
func (l *Ledger) Debit(amount float64) float64 {
	if amount <= 0 {
		return l.fuel
	}
	l.fuel -= amount
	if l.fuel < 0 {
		l.fuel = 0
	}
	return l.fuel
}

// CanAfford reports whether a full charge of cost fits in the tank.
func (l *Ledger) CanAfford(cost float64) bool {
	return l.fuel >= cost
}

// IsDepleted reports whether the tank is empty.
func (l *Ledger) IsDepleted() bool {
	return l.fuel <= 0
}

// Set restores a balance, used by undo and reset.
func (l *Ledger) Set(fuel float64) {
	switch {
	case fuel < 0:
		l.fuel = 0
	case fuel > Capacity:
		l.fuel = Capacity
	default:
		l.fuel = fuel
	}
}
