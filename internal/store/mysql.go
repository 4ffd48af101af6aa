package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/thep200/github-graph-crawler/cfg"
	"github.com/thep200/github-graph-crawler/internal/graph"
	"github.com/thep200/github-graph-crawler/internal/model"
	"github.com/thep200/github-graph-crawler/internal/urn"
	"github.com/thep200/github-graph-crawler/pkg/db"
	"github.com/thep200/github-graph-crawler/pkg/log"
	"gorm.io/gorm"
)

// MysqlStore persists documents in the documents table and memoizes reads in
// a TTL cache keyed by url. The cache is per-process and best-effort.
type MysqlStore struct {
	Config *cfg.Config
	Logger log.Logger
	Mysql  *db.Mysql
	DocMd  *model.Document
	cache  *gocache.Cache
}

func NewMysqlStore(config *cfg.Config, logger log.Logger, mysql *db.Mysql) (*MysqlStore, error) {
	docMd, err := model.NewDocument(config, logger, mysql)
	if err != nil {
		return nil, fmt.Errorf("failed to create document model: %w", err)
	}

	ttl := time.Duration(config.Crawler.CacheTtlSeconds) * time.Second
	if ttl <= 0 {
		ttl = time.Minute
	}

	return &MysqlStore{
		Config: config,
		Logger: logger,
		Mysql:  mysql,
		DocMd:  docMd,
		cache:  gocache.New(ttl, 2*ttl),
	}, nil
}

// Migrate creates the documents table.
func (s *MysqlStore) Migrate() error {
	return s.Mysql.Migrate(s.DocMd)
}

func (s *MysqlStore) Get(ctx context.Context, docType, key string) (*graph.Document, error) {
	if cached, ok := s.cache.Get(key); ok {
		if doc, ok := cached.(*graph.Document); ok {
			return doc, nil
		}
	}

	row, err := s.find(ctx, docType, key)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, nil
	}

	doc := &graph.Document{}
	if err := json.Unmarshal(row.Body, doc); err != nil {
		return nil, fmt.Errorf("corrupt document body for %s: %w", row.Urn, err)
	}

	s.cache.SetDefault(key, doc)
	return doc, nil
}

func (s *MysqlStore) Etag(ctx context.Context, docType, url string) (string, error) {
	row, err := s.find(ctx, docType, url)
	if err != nil {
		return "", err
	}
	if row == nil {
		return "", nil
	}
	return row.Etag, nil
}

func (s *MysqlStore) Upsert(ctx context.Context, doc *graph.Document) error {
	// Documents without a self link (malformed payloads kept for audit) fall
	// back to their source url as the row key.
	self := doc.Self()
	if self == "" {
		self = urn.URN(doc.Meta.Url)
	}
	if self == "" {
		return fmt.Errorf("document of type %s has no self link or url", doc.Meta.Type)
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("cannot marshal document %s: %w", self, err)
	}

	row := &model.Document{
		Model:       model.Model{Config: s.Config, Logger: s.Logger, Mysql: s.Mysql},
		Urn:         self.String(),
		Type:        doc.Meta.Type,
		Url:         doc.Meta.Url,
		Etag:        doc.Meta.Etag,
		Version:     doc.Meta.Version,
		Body:        body,
		FetchedAt:   doc.Meta.FetchedAt,
		ProcessedAt: doc.Meta.ProcessedAt,
	}

	if err := s.DocMd.Upsert(ctx, row); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	s.cache.SetDefault(doc.Meta.Url, doc)
	s.cache.SetDefault(self.String(), doc)
	return nil
}

func (s *MysqlStore) List(ctx context.Context, docType string) ([]Summary, error) {
	gdb, err := s.Mysql.Db()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var rows []model.Document
	if err := gdb.WithContext(ctx).
		Select("urn", "type", "url", "etag", "version").
		Where("type = ?", docType).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	summaries := make([]Summary, 0, len(rows))
	for _, row := range rows {
		summaries = append(summaries, Summary{
			Urn:     urn.URN(row.Urn),
			Type:    row.Type,
			Url:     row.Url,
			Etag:    row.Etag,
			Version: row.Version,
		})
	}
	return summaries, nil
}

func (s *MysqlStore) Delete(ctx context.Context, docType string, u urn.URN) error {
	gdb, err := s.Mysql.Db()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if err := gdb.WithContext(ctx).
		Where("type = ? AND urn = ?", docType, u.String()).
		Delete(&model.Document{}).Error; err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	s.cache.Delete(u.String())
	return nil
}

func (s *MysqlStore) Count(ctx context.Context, docType string) (int64, error) {
	gdb, err := s.Mysql.Db()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var count int64
	query := gdb.WithContext(ctx).Model(&model.Document{})
	if docType != "" {
		query = query.Where("type = ?", docType)
	}
	if err := query.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return count, nil
}

func (s *MysqlStore) find(ctx context.Context, docType, key string) (*model.Document, error) {
	gdb, err := s.Mysql.Db()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var row model.Document
	query := gdb.WithContext(ctx).Where("urn = ? OR url = ?", key, key)
	if docType != "" {
		query = query.Where("type = ?", docType)
	}
	if err := query.First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return &row, nil
}
