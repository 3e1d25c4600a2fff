package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Madhav-Gupta-28/islamic-library-backend-go/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// CartRepository keeps one cart document per user.
type CartRepository struct {
	coll *mongo.Collection
	log  *zap.Logger
}

func NewCartRepository(db *mongo.Database, log *zap.Logger) *CartRepository {
	return &CartRepository{
		coll: db.Collection(cartsCollection),
		log:  log,
	}
}

// GetCart returns the user's cart, or an empty one if none was saved yet.
func (r *CartRepository) GetCart(ctx context.Context, userID primitive.ObjectID) (*models.Cart, error) {
	var cart models.Cart
	err := r.coll.FindOne(ctx, bson.M{"userId": userID}).Decode(&cart)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return &models.Cart{UserID: userID, Items: []models.CartItem{}}, nil
		}
		return nil, fmt.Errorf("find cart: %w", err)
	}
	if cart.Items == nil {
		cart.Items = []models.CartItem{}
	}
	return &cart, nil
}

// AddItem puts a line in the cart. An existing line for the same product is
// replaced by the new snapshot.
func (r *CartRepository) AddItem(ctx context.Context, userID primitive.ObjectID, item models.CartItem) error {
	now := time.Now().UTC()

	// Replace the line if the product is already in the cart
	result, err := r.coll.UpdateOne(ctx,
		bson.M{"userId": userID, "items.product": item.Product},
		bson.M{"$set": bson.M{"items.$": item, "updatedAt": now}},
	)
	if err != nil {
		return fmt.Errorf("update cart item: %w", err)
	}
	if result.MatchedCount > 0 {
		return nil
	}

	_, err = r.coll.UpdateOne(ctx,
		bson.M{"userId": userID},
		bson.M{
			"$push": bson.M{"items": item},
			"$set":  bson.M{"updatedAt": now},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		r.log.Error("Failed to add cart item", zap.String("user", userID.Hex()), zap.Error(err))
		return fmt.Errorf("push cart item: %w", err)
	}
	return nil
}

// UpdateQuantity changes the quantity of a product already in the cart.
func (r *CartRepository) UpdateQuantity(ctx context.Context, userID, productID primitive.ObjectID, qty int) error {
	update := bson.M{
		"$set": bson.M{
			"items.$[elem].qty": qty,
			"updatedAt":         time.Now().UTC(),
		},
	}

	arrayFilters := options.ArrayFilters{
		Filters: []interface{}{
			bson.M{"elem.product": productID},
		},
	}

	result, err := r.coll.UpdateOne(ctx,
		bson.M{"userId": userID, "items.product": productID},
		update,
		options.Update().SetArrayFilters(arrayFilters),
	)
	if err != nil {
		return fmt.Errorf("update cart quantity: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrCartItemNotFound
	}
	return nil
}

func (r *CartRepository) RemoveItem(ctx context.Context, userID, productID primitive.ObjectID) error {
	update := bson.M{
		"$pull": bson.M{
			"items": bson.M{"product": productID},
		},
		"$set": bson.M{"updatedAt": time.Now().UTC()},
	}

	result, err := r.coll.UpdateOne(ctx, removeItemFilter(userID, productID), update)
	if err != nil {
		return fmt.Errorf("remove cart item: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrCartItemNotFound
	}
	return nil
}

// removeItemFilter only matches a cart that holds the product, so a miss
// reports ErrCartItemNotFound even though updatedAt is always set.
func removeItemFilter(userID, productID primitive.ObjectID) bson.M {
	return bson.M{"userId": userID, "items.product": productID}
}

// ClearCart empties the user's cart after checkout.
func (r *CartRepository) ClearCart(ctx context.Context, userID primitive.ObjectID) error {
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"userId": userID},
		bson.M{"$set": bson.M{"items": []models.CartItem{}, "updatedAt": time.Now().UTC()}},
	)
	if err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}
