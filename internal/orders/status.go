package orders

// Status is the lifecycle stage of an order. Transitions run one way:
// Preparing -> Shipped -> Delivered, and Delivered is terminal.
type Status string

const (
	StatusPreparing Status = "Preparing"
	StatusShipped   Status = "Shipped"
	StatusDelivered Status = "Delivered"
)

var nextStatus = map[Status]Status{
	StatusPreparing: StatusShipped,
	StatusShipped:   StatusDelivered,
}

// Next returns the following stage, or false when s is terminal
// or unknown.
func (s Status) Next() (Status, bool) {
	n, ok := nextStatus[s]
	return n, ok
}

func (s Status) Valid() bool {
	switch s {
	case StatusPreparing, StatusShipped, StatusDelivered:
		return true
	}
	return false
}
