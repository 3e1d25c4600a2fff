package models

// PaymentResult is the gateway's echo of a completed transaction.
type PaymentResult struct {
	ID           string `bson:"id" json:"id"`
	Status       string `bson:"status" json:"status"`
	UpdateTime   string `bson:"update_time" json:"update_time"`
	EmailAddress string `bson:"email_address" json:"email_address"`
}

// PaymentCallback is the form body the gateway posts to the callback URLs.
type PaymentCallback struct {
	TransactionID string
	ValidationID  string
	Status        string
	TransactionAt string
	StoreID       string
	Amount        string
	OrderRef      string
}

// Result converts the callback into the value stored on the order.
func (c PaymentCallback) Result() PaymentResult {
	return PaymentResult{
		ID:           c.TransactionID,
		Status:       c.Status,
		UpdateTime:   c.TransactionAt,
		EmailAddress: c.StoreID,
	}
}

// PaymentSession is what the gateway returns when a checkout session is opened.
type PaymentSession struct {
	TransactionID  string
	GatewayPageURL string
	SessionKey     string
}
