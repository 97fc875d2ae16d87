package repository

import (
	"context"

	"github.com/minawano/group-management-api/internal/models"
	"gorm.io/gorm"
)

// GormSiteRepository is a GORM implementation of SiteRepository
type GormSiteRepository struct {
	db *gorm.DB
}

// NewSiteRepository creates a new SiteRepository
func NewSiteRepository(db *gorm.DB) SiteRepository {
	return &GormSiteRepository{db: db}
}

// Create creates a new site
func (r *GormSiteRepository) Create(ctx context.Context, site *models.Site) error {
	return r.db.WithContext(ctx).Create(site).Error
}

// FindByID finds a site by ID
func (r *GormSiteRepository) FindByID(ctx context.Context, id uint64) (*models.Site, error) {
	var site models.Site
	if err := r.db.WithContext(ctx).First(&site, id).Error; err != nil {
		return nil, err
	}
	return &site, nil
}

// FindByDomain finds a site by its domain
func (r *GormSiteRepository) FindByDomain(ctx context.Context, domain string) (*models.Site, error) {
	var site models.Site
	if err := r.db.WithContext(ctx).Where("domain = ?", domain).First(&site).Error; err != nil {
		return nil, err
	}
	return &site, nil
}
