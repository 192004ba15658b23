// Package store is the persistence collaborator: a Postgres-backed record of
// every issued invoice plus the company settings singleton. The unique index
// on order_number is the authoritative guard behind the advisory sequence
// allocator.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/invoicegen/pkg/currency"
	"github.com/invoicegen/pkg/invoice"
)

// settingsRow is the company settings singleton (always id = 1).
type settingsRow struct {
	ID              int    `gorm:"primaryKey"`
	CompanyName     string `gorm:"not null"`
	CompanyAddress  string `gorm:"not null"`
	CompanyPhone    string `gorm:"not null"`
	LogoPath        string
	DefaultCurrency string `gorm:"not null;default:USD"`
	OutputFolder    string `gorm:"not null"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (settingsRow) TableName() string { return "settings" }

// recordRow is one issued invoice. Immutable once written.
type recordRow struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey"`
	OrderNumber    string          `gorm:"uniqueIndex;not null"`
	InvoiceDate    time.Time       `gorm:"index;not null"`
	BillingName    string          `gorm:"not null"`
	BillingAddress string
	BillingPhone   string          `gorm:"not null"`
	Currency       string          `gorm:"not null"`
	Subtotal       decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	TaxAmount      decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0"`
	DiscountAmount decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0"`
	Total          decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	DocumentPath   string          `gorm:"not null"`
	CreatedAt      time.Time
}

func (recordRow) TableName() string { return "invoices" }

// Store wraps the GORM connection.
type Store struct {
	db  *gorm.DB
	log *slog.Logger
}

var _ invoice.Store = (*Store)(nil)

// Open connects to Postgres and migrates the schema.
func Open(ctx context.Context, databaseURL string, log *slog.Logger) (*Store, error) {
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	if err := db.WithContext(ctx).AutoMigrate(&settingsRow{}, &recordRow{}); err != nil {
		return nil, fmt.Errorf("migrating schema: %w", err)
	}
	return &Store{db: db, log: log}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// FindLatestIdentifier returns the lexicographically greatest order number
// matching the day prefix, or the empty string when the day has none.
// Zero-padded fixed-width sequences make string order equal numeric order.
func (s *Store) FindLatestIdentifier(dayPrefix string) (string, error) {
	var row recordRow
	err := s.db.
		Select("order_number").
		Where("order_number LIKE ?", dayPrefix+"%").
		Order("order_number DESC").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return row.OrderNumber, nil
}

// SaveRecord inserts an issued invoice. A unique violation on the order
// number surfaces as invoice.ErrDuplicateIdentifier so the caller can report
// it distinctly; the row is never overwritten.
func (s *Store) SaveRecord(ctx context.Context, rec *invoice.Record) error {
	row := fromRecord(rec)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", invoice.ErrDuplicateIdentifier, rec.OrderNumber)
		}
		return fmt.Errorf("saving invoice %s: %w", rec.OrderNumber, err)
	}
	return nil
}

// GetByOrderNumber looks up one issued invoice.
func (s *Store) GetByOrderNumber(ctx context.Context, orderNumber string) (*invoice.Record, error) {
	var row recordRow
	err := s.db.WithContext(ctx).Where("order_number = ?", orderNumber).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", invoice.ErrRecordNotFound, orderNumber)
	}
	if err != nil {
		return nil, err
	}
	rec := toRecord(&row)
	return &rec, nil
}

// ListRecords returns issued invoices, newest first. A limit <= 0 returns
// everything.
func (s *Store) ListRecords(ctx context.Context, limit int) ([]invoice.Record, error) {
	q := s.db.WithContext(ctx).Order("invoice_date DESC, created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []recordRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	records := make([]invoice.Record, len(rows))
	for i := range rows {
		records[i] = toRecord(&rows[i])
	}
	return records, nil
}

// ListRecordsByDateRange returns invoices issued between from and to,
// inclusive, newest first.
func (s *Store) ListRecordsByDateRange(ctx context.Context, from, to time.Time) ([]invoice.Record, error) {
	var rows []recordRow
	err := s.db.WithContext(ctx).
		Where("invoice_date >= ? AND invoice_date <= ?", from, to).
		Order("invoice_date DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	records := make([]invoice.Record, len(rows))
	for i := range rows {
		records[i] = toRecord(&rows[i])
	}
	return records, nil
}

// CountRecords returns the total number of issued invoices.
func (s *Store) CountRecords(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&recordRow{}).Count(&count).Error
	return count, err
}

// HasProfile reports whether the company profile has been saved (first-run
// detection).
func (s *Store) HasProfile(ctx context.Context) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&settingsRow{}).Count(&count).Error
	return count > 0, err
}

// LoadProfile returns the company settings singleton.
func (s *Store) LoadProfile(ctx context.Context) (*invoice.CompanyProfile, error) {
	var row settingsRow
	err := s.db.WithContext(ctx).Where("id = ?", 1).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, invoice.ErrProfileNotFound
	}
	if err != nil {
		return nil, err
	}
	return &invoice.CompanyProfile{
		Name:      row.CompanyName,
		Address:   row.CompanyAddress,
		Phone:     row.CompanyPhone,
		LogoPath:  row.LogoPath,
		Currency:  currency.Code(row.DefaultCurrency),
		OutputDir: row.OutputFolder,
	}, nil
}

// SaveProfile creates or updates the settings singleton.
func (s *Store) SaveProfile(ctx context.Context, profile *invoice.CompanyProfile) error {
	row := settingsRow{
		ID:              1,
		CompanyName:     profile.Name,
		CompanyAddress:  profile.Address,
		CompanyPhone:    profile.Phone,
		LogoPath:        profile.LogoPath,
		DefaultCurrency: string(profile.Currency),
		OutputFolder:    profile.OutputDir,
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("saving company profile: %w", err)
	}
	return nil
}

// isUniqueViolation reports whether err is a Postgres unique-constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func fromRecord(rec *invoice.Record) recordRow {
	return recordRow{
		ID:             rec.ID,
		OrderNumber:    rec.OrderNumber,
		InvoiceDate:    rec.InvoiceDate,
		BillingName:    rec.BillingName,
		BillingAddress: rec.BillingAddress,
		BillingPhone:   rec.BillingPhone,
		Currency:       string(rec.Currency),
		Subtotal:       rec.Subtotal,
		TaxAmount:      rec.TaxAmount,
		DiscountAmount: rec.DiscountAmount,
		Total:          rec.Total,
		DocumentPath:   rec.DocumentPath,
		CreatedAt:      rec.CreatedAt,
	}
}

func toRecord(row *recordRow) invoice.Record {
	return invoice.Record{
		ID:             row.ID,
		OrderNumber:    row.OrderNumber,
		InvoiceDate:    row.InvoiceDate,
		BillingName:    row.BillingName,
		BillingAddress: row.BillingAddress,
		BillingPhone:   row.BillingPhone,
		Currency:       currency.Code(row.Currency),
		Subtotal:       row.Subtotal,
		TaxAmount:      row.TaxAmount,
		DiscountAmount: row.DiscountAmount,
		Total:          row.Total,
		DocumentPath:   row.DocumentPath,
		CreatedAt:      row.CreatedAt,
	}
}
