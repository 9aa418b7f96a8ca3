package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/waffyhq/waffy-go/internal/extract"
	"github.com/waffyhq/waffy-go/internal/routing"
)

// SqliteGateway implements Gateway on a local SQLite database.
type SqliteGateway struct {
	db *gorm.DB
}

// NewSqlite opens (and migrates) the database at path.
func NewSqlite(path string) (*SqliteGateway, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get db: %w", err)
	}
	sqlDB.Exec("PRAGMA foreign_keys = ON;")
	sqlDB.Exec("PRAGMA journal_mode = WAL;")

	if err := db.AutoMigrate(&Customer{}, &Interaction{}, &Order{}, &Issue{}, &Enquiry{}, &Feedback{}); err != nil {
		return nil, fmt.Errorf("migrate db: %w", err)
	}

	return &SqliteGateway{db: db}, nil
}

// newRef builds a short record identifier like ORD-1a2b3c4d.
func newRef(prefix string) string {
	return prefix + "-" + strings.Split(uuid.NewString(), "-")[0]
}

// UpsertRecord persists one finalized record. Redelivery of an already-seen
// MessageID is a no-op returning the original record identifier.
func (g *SqliteGateway) UpsertRecord(ctx context.Context, kind routing.RecordKind, rec Record) (string, error) {
	var ref string

	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var seen Interaction
		err := tx.Where("message_id = ?", rec.MessageID).First(&seen).Error
		if err == nil {
			log.Printf("[Store] message %s already persisted as %s", rec.MessageID, seen.RecordRef)
			ref = seen.RecordRef
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if err := g.ensureCustomer(tx, rec); err != nil {
			return err
		}

		switch kind {
		case routing.KindOrder:
			ref, err = g.writeOrder(tx, rec)
		case routing.KindIssue:
			ref, err = g.writeIssue(tx, rec)
		case routing.KindFeedback:
			ref, err = g.writeFeedback(tx, rec)
		default:
			ref, err = g.writeEnquiry(tx, rec)
		}
		if err != nil {
			return err
		}

		return tx.Create(&Interaction{
			MessageID:   rec.MessageID,
			CustomerID:  rec.CustomerID,
			BusinessID:  rec.BusinessID,
			Category:    rec.Category,
			Priority:    rec.Priority,
			MessageText: rec.Text,
			RecordKind:  string(kind),
			RecordRef:   ref,
			Timestamp:   time.Unix(rec.Timestamp, 0).UTC(),
		}).Error
	})
	if err != nil {
		return "", fmt.Errorf("upsert record: %w", err)
	}
	return ref, nil
}

func (g *SqliteGateway) ensureCustomer(tx *gorm.DB, rec Record) error {
	customer := Customer{CustomerID: rec.CustomerID, CustomerName: rec.CustomerName}
	return tx.Where("customer_id = ?", rec.CustomerID).FirstOrCreate(&customer).Error
}

func (g *SqliteGateway) writeOrder(tx *gorm.DB, rec Record) (string, error) {
	orderNumber := rec.ConsolidateInto
	if orderNumber == "" {
		orderNumber = newRef("ORD")
	}

	items := rec.Fields.Items
	if len(items) == 0 {
		// Order intent without concrete items yet; hold a placeholder row
		// so delivery details are not lost.
		items = []extract.LineItem{{Item: "unspecified", Quantity: "1"}}
	}

	for _, li := range items {
		row := Order{
			OrderNumber:     orderNumber,
			CustomerID:      rec.CustomerID,
			Item:            li.Item,
			Quantity:        li.Quantity,
			Unit:            li.Unit,
			Notes:           li.Notes,
			OrderStatus:     OrderStatusPending,
			DeliveryAddress: rec.Fields.Scalar(extract.KeyDeliveryAddress),
			DeliveryTime:    rec.Fields.Scalar(extract.KeyDeliveryTime),
			DeliveryMethod:  rec.Fields.Scalar(extract.KeyDeliveryMethod),
		}
		if err := tx.Create(&row).Error; err != nil {
			return "", err
		}
	}
	return orderNumber, nil
}

func (g *SqliteGateway) writeIssue(tx *gorm.DB, rec Record) (string, error) {
	description := rec.Fields.Scalar(extract.KeyIssue)
	if description == "" {
		description = rec.Text
	}
	issue := Issue{
		IssueRef:    newRef("ISS"),
		CustomerID:  rec.CustomerID,
		Description: description,
		Category:    rec.Category,
		Priority:    rec.Priority,
		Status:      "open",
	}
	if err := tx.Create(&issue).Error; err != nil {
		return "", err
	}
	return issue.IssueRef, nil
}

func (g *SqliteGateway) writeEnquiry(tx *gorm.DB, rec Record) (string, error) {
	enquiry := Enquiry{
		EnquiryRef:  newRef("ENQ"),
		CustomerID:  rec.CustomerID,
		Description: rec.Text,
		Category:    rec.Category,
		Priority:    rec.Priority,
		Status:      "open",
	}
	if err := tx.Create(&enquiry).Error; err != nil {
		return "", err
	}
	return enquiry.EnquiryRef, nil
}

func (g *SqliteGateway) writeFeedback(tx *gorm.DB, rec Record) (string, error) {
	feedback := Feedback{
		FeedbackRef: newRef("FBK"),
		CustomerID:  rec.CustomerID,
		Comments:    rec.Text,
	}
	if err := tx.Create(&feedback).Error; err != nil {
		return "", err
	}
	return feedback.FeedbackRef, nil
}

// MostRecentOrder returns the customer's latest order regardless of status,
// or nil when the customer has never ordered.
func (g *SqliteGateway) MostRecentOrder(ctx context.Context, customerID string) (*OpenOrder, error) {
	var latest Order
	err := g.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("created_at DESC, order_id DESC").
		First(&latest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("most recent order: %w", err)
	}

	open := &OpenOrder{
		OrderNumber:     latest.OrderNumber,
		CustomerID:      latest.CustomerID,
		Status:          latest.OrderStatus,
		DeliveryAddress: latest.DeliveryAddress,
		DeliveryTime:    latest.DeliveryTime,
		DeliveryMethod:  latest.DeliveryMethod,
	}

	// The order's age is the age of its first row, not the latest addition.
	var first Order
	err = g.db.WithContext(ctx).
		Where("order_number = ?", latest.OrderNumber).
		Order("created_at ASC, order_id ASC").
		First(&first).Error
	if err != nil {
		open.CreatedAt = latest.CreatedAt
	} else {
		open.CreatedAt = first.CreatedAt
	}

	// Backfill delivery details from any row of the order.
	if open.DeliveryAddress == "" || open.DeliveryTime == "" || open.DeliveryMethod == "" {
		var rows []Order
		if g.db.WithContext(ctx).Where("order_number = ?", latest.OrderNumber).Find(&rows).Error == nil {
			for _, row := range rows {
				if open.DeliveryAddress == "" {
					open.DeliveryAddress = row.DeliveryAddress
				}
				if open.DeliveryTime == "" {
					open.DeliveryTime = row.DeliveryTime
				}
				if open.DeliveryMethod == "" {
					open.DeliveryMethod = row.DeliveryMethod
				}
			}
		}
	}

	return open, nil
}

// OrderItems returns the line items stored under an order number, oldest first.
func (g *SqliteGateway) OrderItems(ctx context.Context, orderNumber string) ([]Order, error) {
	var rows []Order
	err := g.db.WithContext(ctx).
		Where("order_number = ?", orderNumber).
		Order("order_id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("order items: %w", err)
	}
	return rows, nil
}

// Close closes the underlying database handle.
func (g *SqliteGateway) Close() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
