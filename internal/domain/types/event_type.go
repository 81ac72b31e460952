package types

type EventType string

func (s EventType) String() string {
	return string(s)
}

const (
	EventTripCreated       EventType = "trip.created"
	EventTripUpdated       EventType = "trip.updated"
	EventTripDeleted       EventType = "trip.deleted"
	EventPaymentRegistered EventType = "payment.registered"
)

// RoutingKey is "<event>.<driverID>", e.g. trip.created.3f2c...
func (s EventType) RoutingKey(driverID string) string {
	return string(s) + "." + driverID
}
