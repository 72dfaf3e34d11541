// Package queue defines the catalog event payloads exchanged over the
// message broker and the consumer that records them.
package queue

// CatalogQueueName is the durable queue catalog events are published to.
const CatalogQueueName = "catalog.events"

// Catalog event types.
const (
	ProductCreated     = "product.created"
	ProductUpdated     = "product.updated"
	ProductDeleted     = "product.deleted"
	ImageCleanupFailed = "image.cleanup_failed"
)

// CatalogEvent is published after every successful catalog mutation and
// whenever a stored image could not be removed.  It carries enough for an
// audit trail without querying the store.
type CatalogEvent struct {
	Type       string  `json:"type"`
	ProductID  string  `json:"product_id,omitempty"`
	Name       string  `json:"name,omitempty"`
	Category   string  `json:"category,omitempty"`
	Price      float64 `json:"price,omitempty"`
	ImageURL   string  `json:"image_url,omitempty"`
	Actor      string  `json:"actor,omitempty"` // subject of the admin token
	Backend    string  `json:"backend,omitempty"`
	Handle     string  `json:"handle,omitempty"` // orphaned image, cleanup failures only
	Error      string  `json:"error,omitempty"`
	OccurredAt string  `json:"occurred_at"` // RFC 3339, UTC
}
