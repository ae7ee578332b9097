package orders

type Status string

const (
	StatusPending Status = "pending"
	StatusPaid    Status = "paid"
	StatusExpired Status = "expired"
)

// Status only moves forward. paid is the one truly terminal state: a late
// completion may still promote an expired order (the money is real), while a
// stale expiry never demotes a paid one.
var validNext = map[Status]map[Status]bool{
	StatusPending: {StatusPaid: true, StatusExpired: true},
	StatusExpired: {StatusPaid: true},
	StatusPaid:    {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}
