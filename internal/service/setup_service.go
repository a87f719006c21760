package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/lti-bridge-api/internal/dto"
	"github.com/noah-isme/lti-bridge-api/internal/models"
	"github.com/noah-isme/lti-bridge-api/internal/repository"
	"github.com/noah-isme/lti-bridge-api/internal/tokenstore"
)

// SetupService renders and applies the activity setup form.
type SetupService interface {
	// FormData assembles what the setup page needs: the launch context and
	// the published assistants the instructor can attach.
	FormData(ctx context.Context, payload tokenstore.Payload) (dto.SetupFormData, error)
	// Submit creates the activity on first configuration, or reconfigures
	// it when the placement already exists. Reconfiguration is owner-only.
	Submit(ctx context.Context, payload tokenstore.Payload, form dto.SetupSubmission) (models.Activity, error)
}

type setupService struct {
	activities repository.ActivityRepository
	assistants repository.AssistantRepository
	validate   *validator.Validate
	logger     zerolog.Logger
}

// NewSetupService builds the setup service.
func NewSetupService(activities repository.ActivityRepository, assistants repository.AssistantRepository, validate *validator.Validate, logger zerolog.Logger) SetupService {
	return &setupService{
		activities: activities,
		assistants: assistants,
		validate:   validate,
		logger:     logger.With().Str("component", "setup_service").Logger(),
	}
}

func (s *setupService) FormData(ctx context.Context, payload tokenstore.Payload) (dto.SetupFormData, error) {
	published, err := s.assistants.ListPublished(ctx)
	if err != nil {
		return dto.SetupFormData{}, fmt.Errorf("failed to list assistants: %w", err)
	}

	choices := make([]dto.AssistantChoice, 0, len(published))
	for _, assistant := range published {
		choices = append(choices, dto.AssistantChoice{ID: assistant.ID, Name: assistant.Name})
	}

	data := dto.SetupFormData{
		PlacementID:   payload.PlacementID,
		SuggestedName: payload.ContextTitle,
		Assistants:    choices,
	}

	activity, err := s.activities.GetByPlacementID(ctx, payload.PlacementID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return data, nil
		}
		return dto.SetupFormData{}, fmt.Errorf("failed to load activity: %w", err)
	}

	// Relaunch of the setup flow against an existing placement: prefill,
	// and make sure only the owner can proceed.
	if activity.OwnerIdentity != payload.OperatorIdentity {
		return dto.SetupFormData{}, ErrPermissionDenied
	}

	attached, err := s.activities.AssistantIDs(ctx, activity.ID)
	if err != nil {
		return dto.SetupFormData{}, fmt.Errorf("failed to load attached assistants: %w", err)
	}

	data.SuggestedName = activity.Name
	data.ChatVisibility = activity.ChatVisibility
	data.AttachedAssistantIDs = attached

	return data, nil
}

func (s *setupService) Submit(ctx context.Context, payload tokenstore.Payload, form dto.SetupSubmission) (models.Activity, error) {
	if err := s.validate.Struct(form); err != nil {
		return models.Activity{}, err
	}

	if payload.OperatorIdentity == "" {
		return models.Activity{}, ErrPermissionDenied
	}

	assistants, err := s.assistants.ListByIDs(ctx, form.AssistantIDs)
	if err != nil {
		return models.Activity{}, fmt.Errorf("failed to load assistants: %w", err)
	}
	if len(assistants) != len(form.AssistantIDs) {
		return models.Activity{}, fmt.Errorf("%w: unknown assistant", ErrNotFound)
	}

	existing, err := s.activities.GetByPlacementID(ctx, payload.PlacementID)
	switch {
	case err == nil:
		// Owner identity is compared verbatim; a non-owner instructor
		// gets no mutation affordance.
		if existing.OwnerIdentity != payload.OperatorIdentity {
			return models.Activity{}, ErrPermissionDenied
		}
		if err := s.activities.UpdateConfiguration(ctx, existing.ID, form.Name, form.ChatVisibility, form.AssistantIDs); err != nil {
			return models.Activity{}, fmt.Errorf("failed to reconfigure activity: %w", err)
		}
		s.logger.Info().Str("placement_id", payload.PlacementID).Msg("activity reconfigured")
		return s.activities.GetByID(ctx, existing.ID)

	case errors.Is(err, gorm.ErrRecordNotFound):
		activity := models.Activity{
			PlacementID:    payload.PlacementID,
			Name:           form.Name,
			OwnerIdentity:  payload.OperatorIdentity,
			ChatVisibility: form.ChatVisibility,
			Status:         models.ActivityStatusActive,
		}
		if err := s.activities.Create(ctx, &activity, form.AssistantIDs); err != nil {
			return models.Activity{}, fmt.Errorf("failed to create activity: %w", err)
		}
		s.logger.Info().Str("placement_id", payload.PlacementID).Msg("activity configured")
		return activity, nil

	default:
		return models.Activity{}, fmt.Errorf("failed to load activity: %w", err)
	}
}
