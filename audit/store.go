package audit

import (
	"context"

	"gorm.io/gorm"

	"loanpilot/models"
)

// GormStore reads audit input from the CRM database. Rows come back in id
// order so duplicate detection sees a stable input order.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Leads(ctx context.Context) ([]models.Lead, error) {
	var leads []models.Lead
	err := s.db.WithContext(ctx).Preload("Contact").Order("id").Find(&leads).Error
	return leads, err
}

func (s *GormStore) Clients(ctx context.Context) ([]models.Client, error) {
	var clients []models.Client
	err := s.db.WithContext(ctx).Preload("Contact").Order("id").Find(&clients).Error
	return clients, err
}

func (s *GormStore) PipelineEntries(ctx context.Context) ([]models.PipelineEntry, error) {
	var entries []models.PipelineEntry
	err := s.db.WithContext(ctx).Order("id").Find(&entries).Error
	return entries, err
}
