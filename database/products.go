package database

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/Madhav-Gupta-28/islamic-library-backend-go/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// ProductRepository owns the products collection, including embedded reviews.
type ProductRepository struct {
	coll *mongo.Collection
	log  *zap.Logger
}

func NewProductRepository(db *mongo.Database, log *zap.Logger) *ProductRepository {
	return &ProductRepository{
		coll: db.Collection(productsCollection),
		log:  log,
	}
}

// ListProducts runs a catalog query and returns one page of results.
func (r *ProductRepository) ListProducts(ctx context.Context, q models.ProductQuery) (*models.ProductPage, error) {
	filter := BuildProductFilter(q)

	count, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		r.log.Error("Failed to count products", zap.Error(err))
		return nil, fmt.Errorf("count products: %w", err)
	}

	opts := ProductFindOptions(q)
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		r.log.Error("Failed to list products", zap.Error(err))
		return nil, fmt.Errorf("find products: %w", err)
	}
	defer cursor.Close(ctx)

	products := []models.Product{}
	if err := cursor.All(ctx, &products); err != nil {
		return nil, fmt.Errorf("decode products: %w", err)
	}

	page := q.Page
	if page < 1 {
		page = 1
	}

	return &models.ProductPage{
		Products: products,
		Page:     page,
		Pages:    PageCount(count, ProductPageSize),
	}, nil
}

// FilterValues returns the distinct category, author, publisher and binding values.
func (r *ProductRepository) FilterValues(ctx context.Context) (*models.FilterValues, error) {
	values := &models.FilterValues{}
	fields := []struct {
		name string
		dst  *[]string
	}{
		{"category", &values.Categories},
		{"author", &values.Authors},
		{"publisher", &values.Publishers},
		{"binding", &values.Bindings},
	}

	for _, f := range fields {
		raw, err := r.coll.Distinct(ctx, f.name, bson.M{})
		if err != nil {
			r.log.Error("Failed to read distinct values", zap.String("field", f.name), zap.Error(err))
			return nil, fmt.Errorf("distinct %s: %w", f.name, err)
		}
		*f.dst = distinctStrings(raw)
	}

	return values, nil
}

func distinctStrings(raw []interface{}) []string {
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

// TopProducts returns the highest rated products.
func (r *ProductRepository) TopProducts(ctx context.Context, limit int64) ([]models.Product, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "rating", Value: -1}, {Key: "_id", Value: 1}}).
		SetLimit(limit)

	cursor, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("find top products: %w", err)
	}
	defer cursor.Close(ctx)

	products := []models.Product{}
	if err := cursor.All(ctx, &products); err != nil {
		return nil, fmt.Errorf("decode top products: %w", err)
	}
	return products, nil
}

func (r *ProductRepository) GetProduct(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	var product models.Product
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&product)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrProductNotFound
		}
		r.log.Error("Failed to get product", zap.String("id", id.Hex()), zap.Error(err))
		return nil, fmt.Errorf("get product: %w", err)
	}
	return &product, nil
}

func (r *ProductRepository) CreateProduct(ctx context.Context, product *models.Product) error {
	now := time.Now().UTC()
	product.ID = primitive.NewObjectID()
	product.CreatedAt = now
	product.UpdatedAt = now
	if product.Reviews == nil {
		product.Reviews = []models.Review{}
	}

	if _, err := r.coll.InsertOne(ctx, product); err != nil {
		r.log.Error("Failed to create product", zap.Error(err))
		return fmt.Errorf("insert product: %w", err)
	}

	r.log.Info("Product created", zap.String("id", product.ID.Hex()), zap.String("name", product.Name))
	return nil
}

func (r *ProductRepository) UpdateProduct(ctx context.Context, id primitive.ObjectID, update models.ProductUpdate) (*models.Product, error) {
	update.UpdatedAt = time.Now().UTC()

	var product models.Product
	err := r.coll.FindOneAndUpdate(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": update},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&product)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrProductNotFound
		}
		r.log.Error("Failed to update product", zap.String("id", id.Hex()), zap.Error(err))
		return nil, fmt.Errorf("update product: %w", err)
	}
	return &product, nil
}

func (r *ProductRepository) DeleteProduct(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		r.log.Error("Failed to delete product", zap.String("id", id.Hex()), zap.Error(err))
		return fmt.Errorf("delete product: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrProductNotFound
	}
	return nil
}

// AddReview appends a review and recomputes rating and numReviews in one
// atomic update. The filter rejects a second review from the same user.
func (r *ProductRepository) AddReview(ctx context.Context, productID primitive.ObjectID, review models.Review) error {
	filter := bson.M{
		"_id":          productID,
		"reviews.user": bson.M{"$ne": review.User},
	}

	result, err := r.coll.UpdateOne(ctx, filter, addReviewPipeline(review))
	if err != nil {
		r.log.Error("Failed to add review", zap.String("product", productID.Hex()), zap.Error(err))
		return fmt.Errorf("add review: %w", err)
	}
	if result.MatchedCount > 0 {
		return nil
	}

	if err := r.exists(ctx, productID); err != nil {
		return err
	}
	return ErrAlreadyReviewed
}

// DeleteReview removes a review and recomputes the aggregates atomically.
func (r *ProductRepository) DeleteReview(ctx context.Context, productID, reviewID primitive.ObjectID) error {
	filter := bson.M{
		"_id":         productID,
		"reviews._id": reviewID,
	}

	result, err := r.coll.UpdateOne(ctx, filter, removeReviewPipeline(reviewID))
	if err != nil {
		r.log.Error("Failed to delete review", zap.String("product", productID.Hex()), zap.Error(err))
		return fmt.Errorf("delete review: %w", err)
	}
	if result.MatchedCount > 0 {
		return nil
	}

	if err := r.exists(ctx, productID); err != nil {
		return err
	}
	return ErrReviewNotFound
}

func (r *ProductRepository) exists(ctx context.Context, id primitive.ObjectID) error {
	n, err := r.coll.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return fmt.Errorf("count product: %w", err)
	}
	if n == 0 {
		return ErrProductNotFound
	}
	return nil
}
