package store

import "time"

// Customer is a known message sender.
type Customer struct {
	CustomerID   string `gorm:"primaryKey;size:20"`
	CustomerName string `gorm:"size:100"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Interaction is one classified inbound message. MessageID carries the
// idempotency guarantee: one row per delivered message, ever.
type Interaction struct {
	InteractionID uint   `gorm:"primaryKey;autoIncrement"`
	MessageID     string `gorm:"uniqueIndex;size:100"`
	CustomerID    string `gorm:"index;size:20"`
	BusinessID    string `gorm:"size:50"`
	Category      string `gorm:"size:40"`
	Priority      string `gorm:"size:10"`
	MessageText   string `gorm:"size:500"`
	RecordKind    string `gorm:"size:10"`
	RecordRef     string `gorm:"size:50"` // identifier of the routed record
	Timestamp     time.Time
	CreatedAt     time.Time
}

// Order is one line item of an order. Rows sharing an OrderNumber form one
// logical order; consolidation appends rows under the existing number.
type Order struct {
	OrderID         uint   `gorm:"primaryKey;autoIncrement"`
	OrderNumber     string `gorm:"index;size:50"`
	CustomerID      string `gorm:"index;size:20"`
	Item            string `gorm:"size:100"`
	Quantity        string `gorm:"size:20"`
	Unit            string `gorm:"size:20"`
	Notes           string `gorm:"size:200"`
	OrderStatus     string `gorm:"size:20"`
	DeliveryAddress string `gorm:"size:200"`
	DeliveryTime    string `gorm:"size:50"`
	DeliveryMethod  string `gorm:"size:30"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Issue is a complaint, refund request, or follow-up.
type Issue struct {
	IssueID     uint   `gorm:"primaryKey;autoIncrement"`
	IssueRef    string `gorm:"uniqueIndex;size:50"`
	CustomerID  string `gorm:"index;size:20"`
	Description string `gorm:"size:500"`
	Category    string `gorm:"size:40"`
	Priority    string `gorm:"size:10"`
	Status      string `gorm:"size:20"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Enquiry is a question that is not yet an order or an issue.
type Enquiry struct {
	EnquiryID   uint   `gorm:"primaryKey;autoIncrement"`
	EnquiryRef  string `gorm:"uniqueIndex;size:50"`
	CustomerID  string `gorm:"index;size:20"`
	Description string `gorm:"size:500"`
	Category    string `gorm:"size:40"`
	Priority    string `gorm:"size:10"`
	Status      string `gorm:"size:20"`
	CreatedAt   time.Time
}

// Feedback is a review or opinion.
type Feedback struct {
	FeedbackID  uint   `gorm:"primaryKey;autoIncrement"`
	FeedbackRef string `gorm:"uniqueIndex;size:50"`
	CustomerID  string `gorm:"index;size:20"`
	Comments    string `gorm:"size:500"`
	CreatedAt   time.Time
}
