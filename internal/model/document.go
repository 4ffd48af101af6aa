package model

import (
	"context"
	"fmt"
	"time"

	"github.com/thep200/github-graph-crawler/cfg"
	"github.com/thep200/github-graph-crawler/pkg/db"
	"github.com/thep200/github-graph-crawler/pkg/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Document is one canonical crawled document. The urn is the row key; the
// source url is indexed separately so the fetch layer can look up etags.
type Document struct {
	Model
	Urn         string    `json:"urn" gorm:"column:urn;type:varchar(512);primaryKey"`
	Type        string    `json:"type" gorm:"column:type;type:varchar(64);not null;index"`
	Url         string    `json:"url" gorm:"column:url;type:varchar(1024);index:idx_documents_url,length:255"`
	Etag        string    `json:"etag" gorm:"column:etag;type:varchar(255)"`
	Version     int       `json:"version" gorm:"column:version;default:0"`
	Body        []byte    `json:"body" gorm:"column:body;type:longtext"`
	FetchedAt   time.Time `json:"fetched_at" gorm:"column:fetched_at"`
	ProcessedAt time.Time `json:"processed_at" gorm:"column:processed_at"`
}

func NewDocument(config *cfg.Config, logger log.Logger, mysql *db.Mysql) (*Document, error) {
	doc := &Document{
		Model: Model{
			Config: config,
			Logger: logger,
			Mysql:  mysql,
		},
	}
	return doc, nil
}

func (d *Document) TableName() string {
	return "documents"
}

// Upsert writes a document row, last writer wins on the urn key.
func (d *Document) Upsert(ctx context.Context, row *Document) error {
	gdb, err := d.Mysql.Db()
	if err != nil {
		d.Logger.Error(ctx, "Failed to get database connection: %v", err)
		return err
	}

	row.Urn = TruncateString(row.Urn, 512)
	row.Url = TruncateString(row.Url, 1024)
	row.Etag = TruncateString(row.Etag, 255)
	row.UpdatedAt = time.Now()
	if row.CreatedAt.IsZero() {
		row.CreatedAt = row.UpdatedAt
	}

	if err := gdb.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "urn"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"type", "url", "etag", "version", "body", "fetched_at", "processed_at", "updated_at",
		}),
	}).Create(row).Error; err != nil {
		d.Logger.Error(ctx, "Failed to upsert document %s: %v", row.Urn, err)
		return err
	}

	return nil
}

// UpsertBatch writes a batch of rows inside one transaction.
func (d *Document) UpsertBatch(ctx context.Context, rows []*Document) error {
	gdb, err := d.Mysql.Db()
	if err != nil {
		return fmt.Errorf("failed to get database connection: %w", err)
	}

	now := time.Now()
	for _, row := range rows {
		row.Urn = TruncateString(row.Urn, 512)
		row.Url = TruncateString(row.Url, 1024)
		row.Etag = TruncateString(row.Etag, 255)
		row.UpdatedAt = now
		if row.CreatedAt.IsZero() {
			row.CreatedAt = now
		}
	}

	return gdb.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "urn"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"type", "url", "etag", "version", "body", "fetched_at", "processed_at", "updated_at",
			}),
		}).CreateInBatches(rows, 100)

		if result.Error != nil {
			return fmt.Errorf("failed to batch upsert documents: %w", result.Error)
		}

		return nil
	})
}
