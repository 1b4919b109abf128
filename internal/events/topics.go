package events

const (
	TopicCatalogChanged = "storefront.catalog.changed"
	TopicOrderCreated   = "storefront.order.created"
	TopicOrderPaid      = "storefront.order.paid"
)

// PartitionKey keeps every event for one aggregate on one partition so
// consumers observe its mutations in order.
func PartitionKey(id string) []byte { return []byte(id) }
