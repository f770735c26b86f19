package dashboard

import (
	"context"

	"csvcatalog/internal/common/models"
)

const recentFilesLimit = 5

type Service interface {
	GetCatalogStats(ctx context.Context) (*models.CatalogStats, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{
		repo: repo,
	}
}

func (s *service) GetCatalogStats(ctx context.Context) (*models.CatalogStats, error) {
	stats, err := s.repo.GetCatalogStats(ctx)
	if err != nil {
		return nil, err
	}

	recentFiles, err := s.repo.GetRecentFiles(ctx, recentFilesLimit)
	if err != nil {
		return nil, err
	}
	stats.RecentFiles = recentFiles

	return stats, nil
}
