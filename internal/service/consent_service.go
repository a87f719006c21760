package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/lti-bridge-api/internal/events"
	"github.com/noah-isme/lti-bridge-api/internal/repository"
	"github.com/noah-isme/lti-bridge-api/internal/tokenstore"
)

// ConsentService gates conversation visibility behind informed consent.
type ConsentService interface {
	// Accept stamps the member's consent and immediately performs the
	// session-provider handoff, returning the redirect URL.
	Accept(ctx context.Context, payload tokenstore.Payload) (string, error)
}

type consentService struct {
	activities repository.ActivityRepository
	members    repository.MemberRepository
	launches   LaunchService
	dashboards DashboardService
	publisher  *events.Publisher
	logger     zerolog.Logger
	now        func() time.Time
}

// NewConsentService builds the consent manager.
func NewConsentService(
	activities repository.ActivityRepository,
	members repository.MemberRepository,
	launches LaunchService,
	dashboards DashboardService,
	publisher *events.Publisher,
	logger zerolog.Logger,
) ConsentService {
	return &consentService{
		activities: activities,
		members:    members,
		launches:   launches,
		dashboards: dashboards,
		publisher:  publisher,
		logger:     logger.With().Str("component", "consent_service").Logger(),
		now:        time.Now,
	}
}

func (s *consentService) Accept(ctx context.Context, payload tokenstore.Payload) (string, error) {
	activity, err := s.activities.GetByID(ctx, payload.ActivityID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to load activity: %w", err)
	}

	member, err := s.members.Get(ctx, activity.ID, payload.LMSUserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to load member: %w", err)
	}

	if !member.HasConsented() {
		if err := s.members.RecordConsent(ctx, member.ID, s.now().UTC()); err != nil {
			return "", fmt.Errorf("failed to record consent: %w", err)
		}
		s.dashboards.Invalidate(ctx, activity.ID)
		s.publisher.Publish(events.SubjectConsent, events.ConsentEvent{
			PlacementID: activity.PlacementID,
			ActivityID:  activity.ID,
			OccurredAt:  s.now().UTC(),
		})
	}

	redirectURL, err := s.launches.HandoffStudent(ctx, activity, member)
	if err != nil {
		return "", err
	}

	s.logger.Info().Str("placement_id", activity.PlacementID).Msg("consent recorded, member handed off")

	return redirectURL, nil
}
