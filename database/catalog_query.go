package database

import (
	"regexp"

	"github.com/Madhav-Gupta-28/islamic-library-backend-go/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ProductPageSize is the fixed number of products per catalog page.
const ProductPageSize = 12

// BuildProductFilter translates a catalog query into a MongoDB filter.
func BuildProductFilter(q models.ProductQuery) bson.M {
	filter := bson.M{}

	if q.Keyword != "" {
		pattern := keywordPattern(q.Keyword)
		filter["$or"] = []bson.M{
			{"name": pattern},
			{"author": pattern},
		}
	}

	if q.Category != "" {
		filter["category"] = q.Category
	}
	// keyword already searches authors
	if q.Author != "" && q.Keyword == "" {
		filter["author"] = q.Author
	}
	if q.Publisher != "" {
		filter["publisher"] = q.Publisher
	}
	if q.Binding != "" {
		filter["binding"] = q.Binding
	}

	if q.MinPrice != nil || q.MaxPrice != nil {
		price := bson.M{}
		if q.MinPrice != nil {
			price["$gte"] = *q.MinPrice
		}
		if q.MaxPrice != nil {
			price["$lte"] = *q.MaxPrice
		}
		filter["price"] = price
	}

	return filter
}

// keywordPattern matches the keyword as a literal, case-insensitive substring.
func keywordPattern(keyword string) primitive.Regex {
	return primitive.Regex{Pattern: regexp.QuoteMeta(keyword), Options: "i"}
}

// BuildProductSort maps a sortBy key to a sort document. _id breaks ties so
// that pages do not overlap.
func BuildProductSort(sortBy string) bson.D {
	switch sortBy {
	case models.SortPriceLow:
		return bson.D{{Key: "price", Value: 1}, {Key: "_id", Value: 1}}
	case models.SortPriceHigh:
		return bson.D{{Key: "price", Value: -1}, {Key: "_id", Value: 1}}
	case models.SortTopRated:
		return bson.D{{Key: "rating", Value: -1}, {Key: "_id", Value: 1}}
	default:
		return bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}
	}
}

// ProductFindOptions returns sort, skip and limit for the requested page.
func ProductFindOptions(q models.ProductQuery) *options.FindOptions {
	page := int64(q.Page)
	if page < 1 {
		page = 1
	}
	if page > models.MaxPage {
		page = models.MaxPage
	}

	return options.Find().
		SetSort(BuildProductSort(q.SortBy)).
		SetSkip(int64(ProductPageSize) * (page - 1)).
		SetLimit(ProductPageSize)
}

// PageCount is ceil(total / pageSize).
func PageCount(total int64, pageSize int) int {
	if total <= 0 || pageSize <= 0 {
		return 0
	}
	size := int64(pageSize)
	return int((total + size - 1) / size)
}
