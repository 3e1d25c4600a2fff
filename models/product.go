package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Review struct {
	ID        primitive.ObjectID `bson:"_id" json:"_id"`
	Name      string             `bson:"name" json:"name"`
	Rating    int                `bson:"rating" json:"rating"` // 1-5
	Comment   string             `bson:"comment" json:"comment"`
	User      primitive.ObjectID `bson:"user" json:"user"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

type Product struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	User            primitive.ObjectID `bson:"user,omitempty" json:"user,omitempty"`
	Name            string             `bson:"name" json:"name"`
	Image           string             `bson:"image" json:"image"`
	Author          string             `bson:"author" json:"author"`
	Publisher       string             `bson:"publisher" json:"publisher"`
	Category        string             `bson:"category" json:"category"`
	Description     string             `bson:"description" json:"description"`
	Price           float64            `bson:"price" json:"price"`
	CountInStock    int                `bson:"countInStock" json:"countInStock"`
	Rating          float64            `bson:"rating" json:"rating"`
	NumReviews      int                `bson:"numReviews" json:"numReviews"`
	ISBN            string             `bson:"isbn" json:"isbn"`
	Pages           int                `bson:"pages" json:"pages"`
	Language        string             `bson:"language" json:"language"`
	Binding         string             `bson:"binding" json:"binding"`
	PublicationYear int                `bson:"publicationYear,omitempty" json:"publicationYear,omitempty"`
	PreviewURL      string             `bson:"previewUrl" json:"previewUrl"`
	Reviews         []Review           `bson:"reviews" json:"reviews"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// ProductUpdate is the set of fields an admin may overwrite on a product.
type ProductUpdate struct {
	Name            string    `bson:"name" json:"name"`
	Price           float64   `bson:"price" json:"price"`
	Description     string    `bson:"description" json:"description"`
	Image           string    `bson:"image" json:"image"`
	Author          string    `bson:"author" json:"author"`
	Publisher       string    `bson:"publisher" json:"publisher"`
	ISBN            string    `bson:"isbn" json:"isbn"`
	Pages           int       `bson:"pages" json:"pages"`
	Language        string    `bson:"language" json:"language"`
	Binding         string    `bson:"binding" json:"binding"`
	PublicationYear int       `bson:"publicationYear" json:"publicationYear"`
	PreviewURL      string    `bson:"previewUrl" json:"previewUrl"`
	Category        string    `bson:"category" json:"category"`
	CountInStock    int       `bson:"countInStock" json:"countInStock"`
	UpdatedAt       time.Time `bson:"updatedAt" json:"-"`
}

// NewSampleProduct returns the placeholder product an admin creates before editing it.
func NewSampleProduct(owner primitive.ObjectID) *Product {
	return &Product{
		User:         owner,
		Name:         "Sample name",
		Image:        "/images/sample.jpg",
		Author:       "Sample Author",
		Publisher:    "Sample Publisher",
		Category:     "Sample category",
		Description:  "Sample description",
		ISBN:         "000-0000000000",
		Language:     "Bangla",
		Binding:      "Paperback",
		PreviewURL:   "/previews/sample.pdf",
		Reviews:      []Review{},
		CountInStock: 0,
	}
}

// FilterValues are the distinct values used to populate catalog filters.
type FilterValues struct {
	Categories []string `json:"categories"`
	Authors    []string `json:"authors"`
	Publishers []string `json:"publishers"`
	Bindings   []string `json:"bindings"`
}

// ProductPage is one page of a catalog query.
type ProductPage struct {
	Products []Product `json:"products"`
	Page     int       `json:"page"`
	Pages    int       `json:"pages"`
}
