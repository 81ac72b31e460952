package types

const (
	ActionRabbitMQConnected       = "rabbitmq_connected"
	ActionRabbitConnectionClosed  = "rabbitmq_connection_closed"
	ActionRabbitConnectionClosing = "rabbitmq_connection_closing"
	ActionRabbitReconnected       = "rabbitmq_reconnection_success"

	ActionDatabaseTransactionFailed = "database_transaction_failed"
	ActionExternalServiceFailed     = "external_service_failed"

	ActionTripCreated       = "trip_created"
	ActionTripUpdated       = "trip_updated"
	ActionTripDeleted       = "trip_deleted"
	ActionPaymentRegistered = "payment_registered"
	ActionTokenRevoked      = "token_revoked"
	ActionEventConsumed     = "event_consumed"
)
