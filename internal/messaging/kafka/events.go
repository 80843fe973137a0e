package kafka

// Topics для Kafka.
const (
	// TopicOrderEvents — единый поток событий жизненного цикла заказов.
	TopicOrderEvents = "fulfillment.order.events"
	// TopicDeadLetterQueue — отстойник сообщений, не ушедших после ретраев.
	TopicDeadLetterQueue = "fulfillment.dlq"
)

// Kafka headers для retry-логики DLQ.
const (
	HeaderRetryCount    = "x-retry-count"
	HeaderOriginalTopic = "x-original-topic"
	HeaderErrorMessage  = "x-error-message"
	HeaderFailedAt      = "x-failed-at"
)
