package models

import (
	"bytes"
	"encoding/json"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OrderItem is a snapshot of a cart line taken at checkout. It is not kept in
// sync with the product it came from.
type OrderItem struct {
	Name    string             `bson:"name" json:"name"`
	Qty     int                `bson:"qty" json:"qty"`
	Image   string             `bson:"image" json:"image"`
	Price   float64            `bson:"price" json:"price"`
	Product primitive.ObjectID `bson:"product" json:"product"`
}

type ShippingAddress struct {
	Address     string `bson:"address" json:"address"`
	City        string `bson:"city" json:"city"`
	PostalCode  string `bson:"postalCode" json:"postalCode"`
	Country     string `bson:"country" json:"country"`
	PhoneNumber string `bson:"phoneNumber" json:"phoneNumber"`
}

// OrderUser is the owner projection attached to admin and detail views.
type OrderUser struct {
	ID    primitive.ObjectID `bson:"_id" json:"_id"`
	Name  string             `bson:"name" json:"name"`
	Email string             `bson:"email" json:"email"`
}

type Order struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	UserID          primitive.ObjectID `bson:"user" json:"-"`
	Owner           *OrderUser         `bson:"owner,omitempty" json:"-"`
	OrderItems      []OrderItem        `bson:"orderItems" json:"orderItems"`
	ShippingAddress ShippingAddress    `bson:"shippingAddress" json:"shippingAddress"`
	PaymentMethod   string             `bson:"paymentMethod" json:"paymentMethod"`
	PaymentResult   *PaymentResult     `bson:"paymentResult,omitempty" json:"paymentResult,omitempty"`
	TransactionID   string             `bson:"transactionId,omitempty" json:"-"`
	TransactionIDs  []string           `bson:"transactionIds,omitempty" json:"-"`
	ItemsPrice      float64            `bson:"itemsPrice" json:"itemsPrice"`
	TaxPrice        float64            `bson:"taxPrice" json:"taxPrice"`
	ShippingPrice   float64            `bson:"shippingPrice" json:"shippingPrice"`
	TotalPrice      float64            `bson:"totalPrice" json:"totalPrice"`
	IsPaid          bool               `bson:"isPaid" json:"isPaid"`
	PaidAt          *time.Time         `bson:"paidAt,omitempty" json:"paidAt"`
	IsDelivered     bool               `bson:"isDelivered" json:"isDelivered"`
	DeliveredAt     *time.Time         `bson:"deliveredAt,omitempty" json:"deliveredAt"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// VisibleTo reports whether the user may read the order.
func (o *Order) VisibleTo(user *User) bool {
	return user != nil && (user.IsAdmin || o.UserID == user.ID)
}

// IssuedTransaction reports whether tranID was handed out for this order.
// Every checkout session counts, not only the latest one.
func (o *Order) IssuedTransaction(tranID string) bool {
	if tranID == "" {
		return false
	}
	if tranID == o.TransactionID {
		return true
	}
	for _, id := range o.TransactionIDs {
		if id == tranID {
			return true
		}
	}
	return false
}

type orderJSON Order

// MarshalJSON always writes "user": the populated owner when loaded,
// otherwise the owner's id.
func (o Order) MarshalJSON() ([]byte, error) {
	var user interface{} = o.UserID
	if o.Owner != nil {
		user = o.Owner
	}
	return json.Marshal(struct {
		orderJSON
		User interface{} `json:"user"`
	}{orderJSON(o), user})
}

func (o *Order) UnmarshalJSON(data []byte) error {
	aux := struct {
		*orderJSON
		User json.RawMessage `json:"user"`
	}{orderJSON: (*orderJSON)(o)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	raw := bytes.TrimSpace(aux.User)
	switch {
	case len(raw) == 0 || bytes.Equal(raw, []byte("null")):
		return nil
	case raw[0] == '"':
		return json.Unmarshal(raw, &o.UserID)
	default:
		var owner OrderUser
		if err := json.Unmarshal(raw, &owner); err != nil {
			return err
		}
		o.Owner = &owner
		o.UserID = owner.ID
		return nil
	}
}
