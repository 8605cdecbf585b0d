// product.go
package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Product es la publicación de un artesano. El borrado es lógico (IsActive=false)
// y el par (name, artisan) es único en la colección.
type Product struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string             `bson:"name" json:"name"`
	Description string             `bson:"description" json:"description"`
	Price       float64            `bson:"price" json:"price"`
	Images      []string           `bson:"images" json:"images"`
	Category    string             `bson:"category" json:"category"`
	Artisan     primitive.ObjectID `bson:"artisan" json:"artisan"`
	Stock       int                `bson:"stock" json:"stock"`
	IsActive    bool               `bson:"is_active" json:"isActive"`
	CreatedAt   time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updatedAt"`
}
