package service

import (
	"context"

	"github.com/noah-isme/school-attendance/internal/models"
	appErrors "github.com/noah-isme/school-attendance/pkg/errors"
)

type overviewReader interface {
	Counts(ctx context.Context) (*models.AdminOverview, error)
}

// AdminService serves the administrator's landing page.
type AdminService struct {
	overview overviewReader
}

// NewAdminService constructs an AdminService.
func NewAdminService(overview overviewReader) *AdminService {
	return &AdminService{overview: overview}
}

// Overview returns record counts for the admin dashboard.
func (s *AdminService) Overview(ctx context.Context) (*models.AdminOverview, error) {
	overview, err := s.overview.Counts(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load overview")
	}
	return overview, nil
}
