package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/lti-bridge-api/internal/dto"
	"github.com/noah-isme/lti-bridge-api/internal/repository"
)

// AdminService hosts the administrative operations that live outside the
// launch request path.
type AdminService interface {
	// TransferOwnership reassigns an activity to a new owner identity.
	TransferOwnership(ctx context.Context, activityID uint, req dto.TransferRequest) error
}

type adminService struct {
	activities repository.ActivityRepository
	validate   *validator.Validate
	logger     zerolog.Logger
}

// NewAdminService builds the admin service.
func NewAdminService(activities repository.ActivityRepository, validate *validator.Validate, logger zerolog.Logger) AdminService {
	return &adminService{
		activities: activities,
		validate:   validate,
		logger:     logger.With().Str("component", "admin_service").Logger(),
	}
}

func (s *adminService) TransferOwnership(ctx context.Context, activityID uint, req dto.TransferRequest) error {
	if err := s.validate.Struct(req); err != nil {
		return err
	}

	if err := s.activities.TransferOwner(ctx, activityID, req.OwnerIdentity); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to transfer ownership: %w", err)
	}

	s.logger.Info().Uint("activity_id", activityID).Msg("activity ownership transferred")

	return nil
}
