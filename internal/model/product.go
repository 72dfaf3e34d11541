package model

import "time"

// Product is a catalog entry.  ImageURL is never empty.  ImagePublicID is
// only set when the image lives on the cloud host; ImageHandle is the
// backend-specific deletion handle and is not exposed to clients.
type Product struct {
	ID            string    `json:"id" bson:"_id"`
	Name          string    `json:"name" bson:"name"`
	Price         float64   `json:"price" bson:"price"`
	Category      string    `json:"category" bson:"category"`
	Subcategory   string    `json:"subcategory" bson:"subcategory"`
	ImageURL      string    `json:"image_url" bson:"image_url"`
	ImagePublicID string    `json:"image_public_id,omitempty" bson:"image_public_id,omitempty"`
	ImageHandle   string    `json:"-" bson:"image_handle,omitempty"`
	CreatedAt     time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" bson:"updated_at"`
}
