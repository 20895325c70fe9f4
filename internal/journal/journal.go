// Package journal persists delivery and compliance notification history to a
// local SQLite database. It is operator telemetry: the delivery flow never
// depends on a journal read, and a missing row is not an error.
package journal

import (
	"embed"
	"errors"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"moul.io/zapgorm2"

	"github.com/pngnest/pngnest/generic"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// NewRecordID generates a unique identifier suitable for either record type.
func NewRecordID() string {
	return generic.Unwrap(uuid.NewRandom()).String()
}

type DeliveryStatus string

const (
	DeliveryStatusUndefined DeliveryStatus = ""
	DeliveryStatusPending   DeliveryStatus = "pending"
	DeliveryStatusRunning   DeliveryStatus = "running"
	DeliveryStatusComplete  DeliveryStatus = "complete"
	DeliveryStatusHandedOff DeliveryStatus = "handed_off"
	DeliveryStatusFailed    DeliveryStatus = "failed"
)

var terminalStatuses = generic.NewSet(
	DeliveryStatusComplete,
	DeliveryStatusHandedOff,
	DeliveryStatusFailed,
)

// IsTerminal returns true if the status is one where no process should still be updating the record.
func (s DeliveryStatus) IsTerminal() bool {
	return terminalStatuses.Contains(s)
}

// Interrupted returns the status a non-terminal record should resume at after a
// restart, which may be the same status if it was never running.
func (s DeliveryStatus) Interrupted() DeliveryStatus {
	if s == DeliveryStatusRunning {
		return DeliveryStatusPending
	}
	return s
}

// DeliveryRecord is one row of delivery history. Status and Error describe the
// most recent attempt; Strategy and Path are only meaningful once terminal.
type DeliveryRecord struct {
	ID        string
	AssetSlug string
	Variant   string
	URL       string
	Filename  string
	Strategy  string
	Path      string
	Status    DeliveryStatus
	Error     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (DeliveryRecord) TableName() string {
	return "deliveries"
}

// NotificationRecord is one row of compliance notification history, linked to
// the delivery that triggered it. Dispatched means the request was sent, not
// that it was acknowledged; StatusCode is 0 when no response arrived.
type NotificationRecord struct {
	ID         string
	DeliveryID string
	UnsplashID string
	Dispatched bool
	Skipped    bool
	StatusCode int
	Error      string
	CreatedAt  time.Time
}

func (NotificationRecord) TableName() string {
	return "notifications"
}

// Acknowledged returns true if the provider responded with a 2xx status.
func (r *NotificationRecord) Acknowledged() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

type Journal struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

// NewJournal opens (creating if necessary) the SQLite database at path and
// applies any pending schema migrations.
func NewJournal(path string) (*Journal, error) {
	gormLog := zapgorm2.New(zap.L().Named("journal"))
	gormLog.IgnoreRecordNotFoundError = true
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, err
	}
	j := &Journal{
		db:  db,
		log: zap.S().Named("journal"),
	}
	if err := j.migrate(); err != nil {
		j.Close()
		return nil, err
	}
	return j, nil
}

func (j *Journal) migrate() error {
	j.log.Debug("running journal migrations")
	fs, err := iofs.New(embedMigrations, "migrations")
	if err != nil {
		return err
	}
	sqlDB, err := j.db.DB()
	if err != nil {
		return err
	}
	driver, err := migratesqlite.WithInstance(sqlDB, &migratesqlite.Config{})
	if err != nil {
		return err
	}
	m, err := migrate.NewWithInstance("iofs", fs, "sqlite3", driver)
	if err != nil {
		return err
	}
	err = m.Up()
	switch err {
	case nil:
		j.log.Debug("journal migration complete")
	case migrate.ErrNoChange:
		j.log.Debug("no journal migration required")
	default:
		return err
	}
	return nil
}

func (j *Journal) Close() {
	if sqlDB, err := j.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// RecordDelivery inserts the delivery record, or overwrites an existing record with the same ID.
func (j *Journal) RecordDelivery(rec *DeliveryRecord) error {
	return j.db.Save(rec).Error
}

// GetDelivery returns (nil, nil) if the error is only that no such row exists.
func (j *Journal) GetDelivery(id string) (*DeliveryRecord, error) {
	rec := DeliveryRecord{}
	if err := j.db.First(&rec, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		} else {
			return nil, err
		}
	} else {
		return &rec, nil
	}
}

// ListDeliveries returns up to limit delivery records, newest first; limit <= 0 returns all of them.
func (j *Journal) ListDeliveries(limit int) ([]DeliveryRecord, error) {
	var recs []DeliveryRecord
	tx := j.db.Order("created_at DESC")
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	if err := tx.Find(&recs).Error; err != nil {
		return nil, err
	}
	return recs, nil
}

// DeliveriesForAsset returns all delivery records for the given asset slug, newest first.
func (j *Journal) DeliveriesForAsset(slug string) ([]DeliveryRecord, error) {
	var recs []DeliveryRecord
	if err := j.db.Where("asset_slug = ?", slug).Order("created_at DESC").Find(&recs).Error; err != nil {
		return nil, err
	}
	return recs, nil
}

// ResumeInterrupted rewrites the status of every non-terminal record, so that a
// delivery cut off by a restart is not reported as still running.
func (j *Journal) ResumeInterrupted() error {
	return j.db.
		Model(&DeliveryRecord{}).
		Where("status = ?", DeliveryStatusRunning).
		Update("status", DeliveryStatusRunning.Interrupted()).
		Error
}

// RecordNotification inserts the notification record, or overwrites an existing record with the same ID.
func (j *Journal) RecordNotification(rec *NotificationRecord) error {
	return j.db.Save(rec).Error
}

// NotificationsForDelivery returns all notification records for the given delivery, oldest first.
func (j *Journal) NotificationsForDelivery(deliveryID string) ([]NotificationRecord, error) {
	var recs []NotificationRecord
	if err := j.db.Where("delivery_id = ?", deliveryID).Order("created_at ASC").Find(&recs).Error; err != nil {
		return nil, err
	}
	return recs, nil
}
