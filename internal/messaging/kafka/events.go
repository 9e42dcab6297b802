package kafka

// TopicOrderEvents — topic, в который outbox-воркер публикует события
// жизненного цикла заказа (order.created, order.paid, order.cancelled).
const TopicOrderEvents = "ecom.order.events"
