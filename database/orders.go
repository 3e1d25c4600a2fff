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

// OrderRepository owns the orders collection.
type OrderRepository struct {
	coll *mongo.Collection
	log  *zap.Logger
}

func NewOrderRepository(db *mongo.Database, log *zap.Logger) *OrderRepository {
	return &OrderRepository{
		coll: db.Collection(ordersCollection),
		log:  log,
	}
}

// CreateOrder stores the order exactly as submitted. Prices are not checked
// against the catalog.
func (r *OrderRepository) CreateOrder(ctx context.Context, order *models.Order) error {
	now := time.Now().UTC()
	order.ID = primitive.NewObjectID()
	order.Owner = nil
	order.IsPaid = false
	order.PaidAt = nil
	order.PaymentResult = nil
	order.IsDelivered = false
	order.DeliveredAt = nil
	order.CreatedAt = now
	order.UpdatedAt = now

	if _, err := r.coll.InsertOne(ctx, order); err != nil {
		r.log.Error("Failed to create order", zap.Error(err))
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

// GetOrder returns one order with its owner's name and email attached.
func (r *OrderRepository) GetOrder(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	orders, err := r.aggregate(ctx, bson.M{"_id": id})
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, ErrOrderNotFound
	}
	return &orders[0], nil
}

// ListOrdersByUser returns the orders placed by one user, newest first.
func (r *OrderRepository) ListOrdersByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.coll.Find(ctx, bson.M{"user": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("find orders: %w", err)
	}
	defer cursor.Close(ctx)

	orders := []models.Order{}
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, fmt.Errorf("decode orders: %w", err)
	}
	return orders, nil
}

// ListOrders returns every order with owners populated.
func (r *OrderRepository) ListOrders(ctx context.Context) ([]models.Order, error) {
	return r.aggregate(ctx, bson.M{})
}

func (r *OrderRepository) aggregate(ctx context.Context, match bson.M) ([]models.Order, error) {
	cursor, err := r.coll.Aggregate(ctx, ownerPipeline(match))
	if err != nil {
		r.log.Error("Failed to aggregate orders", zap.Error(err))
		return nil, fmt.Errorf("aggregate orders: %w", err)
	}
	defer cursor.Close(ctx)

	orders := []models.Order{}
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, fmt.Errorf("decode orders: %w", err)
	}
	return orders, nil
}

// ownerPipeline joins each order with the name and email of its owner.
func ownerPipeline(match bson.M) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$sort", Value: bson.D{{Key: "createdAt", Value: -1}}}},
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: usersCollection},
			{Key: "localField", Value: "user"},
			{Key: "foreignField", Value: "_id"},
			{Key: "pipeline", Value: bson.A{
				bson.D{{Key: "$project", Value: bson.D{{Key: "name", Value: 1}, {Key: "email", Value: 1}}}},
			}},
			{Key: "as", Value: "owner"},
		}}},
		{{Key: "$unwind", Value: bson.D{
			{Key: "path", Value: "$owner"},
			{Key: "preserveNullAndEmptyArrays", Value: true},
		}}},
	}
}

// SetTransactionID records the gateway transaction opened for the order.
// Earlier ids stay in transactionIds so a late callback for an older
// session still matches.
func (r *OrderRepository) SetTransactionID(ctx context.Context, id primitive.ObjectID, transactionID string) error {
	result, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{
			"$set":      bson.M{"transactionId": transactionID, "updatedAt": time.Now().UTC()},
			"$addToSet": bson.M{"transactionIds": transactionID},
		},
	)
	if err != nil {
		return fmt.Errorf("set transaction id: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrOrderNotFound
	}
	return nil
}

// MarkPaid flips an unpaid order to paid. A second call returns
// ErrOrderAlreadyPaid and leaves paidAt untouched.
func (r *OrderRepository) MarkPaid(ctx context.Context, id primitive.ObjectID, result models.PaymentResult, paidAt time.Time) (*models.Order, error) {
	update := bson.M{
		"$set": bson.M{
			"isPaid":        true,
			"paidAt":        paidAt,
			"paymentResult": result,
			"updatedAt":     paidAt,
		},
	}

	order, err := r.findOneAndUpdate(ctx, bson.M{"_id": id, "isPaid": false}, update)
	if errors.Is(err, ErrOrderNotFound) {
		var existing models.Order
		if findErr := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&existing); findErr == nil && existing.IsPaid {
			return &existing, ErrOrderAlreadyPaid
		}
	}
	return order, err
}

// MarkDelivered sets the delivery flag. Payment is not a precondition.
func (r *OrderRepository) MarkDelivered(ctx context.Context, id primitive.ObjectID, deliveredAt time.Time) (*models.Order, error) {
	update := bson.M{
		"$set": bson.M{
			"isDelivered": true,
			"deliveredAt": deliveredAt,
			"updatedAt":   deliveredAt,
		},
	}
	return r.findOneAndUpdate(ctx, bson.M{"_id": id}, update)
}

func (r *OrderRepository) findOneAndUpdate(ctx context.Context, filter, update bson.M) (*models.Order, error) {
	var order models.Order
	err := r.coll.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&order)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrOrderNotFound
		}
		r.log.Error("Failed to update order", zap.Error(err))
		return nil, fmt.Errorf("update order: %w", err)
	}
	return &order, nil
}
