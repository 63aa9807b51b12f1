package types

const (
	ActionRabbitMQConnected       = "rabbitmq_connected"
	ActionRabbitConnectionClosed  = "rabbitmq_connection_closed"
	ActionRabbitConnectionClosing = "rabbitmq_connection_closing"
	ActionRabbitReconnected       = "rabbitmq_reconnection_success"
	ActionRabbitPublish           = "rabbitmq_publish"
	ActionRabbitConsume           = "rabbitmq_consume"

	ActionDatabaseTransactionFailed = "database_transaction_failed"
)
