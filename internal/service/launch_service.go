package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/lti-bridge-api/internal/events"
	"github.com/noah-isme/lti-bridge-api/internal/lti"
	"github.com/noah-isme/lti-bridge-api/internal/models"
	"github.com/noah-isme/lti-bridge-api/internal/repository"
	"github.com/noah-isme/lti-bridge-api/internal/tokenstore"
	"github.com/noah-isme/lti-bridge-api/pkg/sessionprovider"
)

// Outcome kinds of the launch state machine. Every (activity state, role,
// consent) combination maps to exactly one of these.
const (
	OutcomeSetupForm      = "setup_form"
	OutcomeContactAdmin   = "contact_admin"
	OutcomeNotConfigured  = "not_configured"
	OutcomeDashboard      = "dashboard"
	OutcomeConsentPage    = "consent_page"
	OutcomeHandoff        = "handoff"
	OutcomeDisabledNotice = "disabled_notice"
)

// Outcome is the single decision the state machine returns for a launch.
type Outcome struct {
	Kind string
	// Token authorizes the follow-up browser request for the setup,
	// dashboard and consent kinds.
	Token string
	// RedirectURL is set for the handoff kind.
	RedirectURL string
	ActivityName string
}

// TokenTTLs groups the per-class token lifetimes.
type TokenTTLs struct {
	Setup     time.Duration
	Dashboard time.Duration
	Consent   time.Duration
}

// LaunchService is the authoritative decision point for inbound launches.
type LaunchService interface {
	// Decide runs the activity launch state machine for the per-activity
	// surfaces (global and per-tenant credential scopes).
	Decide(ctx context.Context, req lti.LaunchRequest) (Outcome, error)
	// ResourceHandoff serves the per-resource surface: no activity record,
	// every caller is handed straight into the session provider.
	ResourceHandoff(ctx context.Context, req lti.LaunchRequest, assistant models.Assistant) (Outcome, error)
	// HandoffStudent performs the session-provider handoff for a member.
	// Exposed for the consent flow, which hands off right after stamping
	// consent.
	HandoffStudent(ctx context.Context, activity models.Activity, member models.ActivityMember) (string, error)
	// RecordFailure writes an audit row for a launch rejected before the
	// state machine ran.
	RecordFailure(ctx context.Context, placementID, role, failureClass string)
}

type launchService struct {
	activities     repository.ActivityRepository
	members        repository.MemberRepository
	identityLinks  repository.IdentityLinkRepository
	launchEvents   repository.LaunchEventRepository
	tokens         tokenstore.Store
	provider       sessionprovider.Provider
	publisher      *events.Publisher
	platformDomain string
	ttls           TokenTTLs
	logger         zerolog.Logger
	now            func() time.Time
}

// NewLaunchService builds the launch state machine.
func NewLaunchService(
	activities repository.ActivityRepository,
	members repository.MemberRepository,
	identityLinks repository.IdentityLinkRepository,
	launchEvents repository.LaunchEventRepository,
	tokens tokenstore.Store,
	provider sessionprovider.Provider,
	publisher *events.Publisher,
	platformDomain string,
	ttls TokenTTLs,
	logger zerolog.Logger,
) LaunchService {
	return &launchService{
		activities:     activities,
		members:        members,
		identityLinks:  identityLinks,
		launchEvents:   launchEvents,
		tokens:         tokens,
		provider:       provider,
		publisher:      publisher,
		platformDomain: platformDomain,
		ttls:           ttls,
		logger:         logger.With().Str("component", "launch_service").Logger(),
		now:            time.Now,
	}
}

func (s *launchService) Decide(ctx context.Context, req lti.LaunchRequest) (Outcome, error) {
	activity, err := s.activities.GetByPlacementID(ctx, req.PlacementID)
	exists := err == nil
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return Outcome{}, fmt.Errorf("failed to load activity: %w", err)
	}

	var outcome Outcome
	switch {
	case !exists || (!activity.IsActive() && req.Role == lti.RoleStudent):
		// A disabled activity looks unconfigured to students.
		outcome, err = s.decideUnconfigured(ctx, req)
	case !activity.IsActive():
		outcome = Outcome{Kind: OutcomeDisabledNotice, ActivityName: activity.Name}
	case req.Role == lti.RoleInstructor:
		outcome, err = s.decideInstructor(ctx, req, activity)
	default:
		outcome, err = s.decideStudent(ctx, req, activity)
	}
	if err != nil {
		return Outcome{}, err
	}

	s.recordOutcome(ctx, req.PlacementID, req.Role, outcome.Kind)

	return outcome, nil
}

func (s *launchService) decideUnconfigured(ctx context.Context, req lti.LaunchRequest) (Outcome, error) {
	if req.Role == lti.RoleStudent {
		return Outcome{Kind: OutcomeNotConfigured}, nil
	}

	link, err := s.identityLinks.Resolve(ctx, req.UserID, req.ContactHint)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Instructor with no linkable platform identity: terminal
			// page, no token issued.
			return Outcome{Kind: OutcomeContactAdmin}, nil
		}
		return Outcome{}, fmt.Errorf("failed to resolve instructor identity: %w", err)
	}

	token, err := s.tokens.Issue(ctx, tokenstore.Payload{
		Class:            tokenstore.ClassSetup,
		PlacementID:      req.PlacementID,
		LMSUserID:        req.UserID,
		Username:         req.PreferredUsername(),
		DisplayName:      req.DisplayName,
		ContactHint:      req.ContactHint,
		ContextTitle:     req.ContextTitle,
		Role:             req.Role,
		OperatorIdentity: link.OperatorIdentity,
	}, s.ttls.Setup)
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to issue setup token: %w", err)
	}

	return Outcome{Kind: OutcomeSetupForm, Token: token}, nil
}

func (s *launchService) decideInstructor(ctx context.Context, req lti.LaunchRequest, activity models.Activity) (Outcome, error) {
	// Dashboard viewing is open to any instructor on the placement;
	// ownership only matters for reconfiguration, so an unresolvable
	// identity is not an error here.
	operatorIdentity := ""
	if link, err := s.identityLinks.Resolve(ctx, req.UserID, req.ContactHint); err == nil {
		operatorIdentity = link.OperatorIdentity
	}

	token, err := s.tokens.Issue(ctx, tokenstore.Payload{
		Class:            tokenstore.ClassDashboard,
		PlacementID:      req.PlacementID,
		ActivityID:       activity.ID,
		LMSUserID:        req.UserID,
		Username:         req.PreferredUsername(),
		DisplayName:      req.DisplayName,
		Role:             req.Role,
		OperatorIdentity: operatorIdentity,
	}, s.ttls.Dashboard)
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to issue dashboard token: %w", err)
	}

	return Outcome{Kind: OutcomeDashboard, Token: token, ActivityName: activity.Name}, nil
}

func (s *launchService) decideStudent(ctx context.Context, req lti.LaunchRequest, activity models.Activity) (Outcome, error) {
	member, err := s.ensureMember(ctx, req, activity)
	if err != nil {
		return Outcome{}, err
	}

	if activity.ChatVisibility && !member.HasConsented() {
		token, err := s.tokens.Issue(ctx, tokenstore.Payload{
			Class:        tokenstore.ClassConsent,
			PlacementID:  req.PlacementID,
			ActivityID:   activity.ID,
			LMSUserID:    req.UserID,
			Username:     req.PreferredUsername(),
			DisplayName:  req.DisplayName,
			ContextTitle: activity.Name,
			Role:         req.Role,
		}, s.ttls.Consent)
		if err != nil {
			return Outcome{}, fmt.Errorf("failed to issue consent token: %w", err)
		}

		return Outcome{Kind: OutcomeConsentPage, Token: token, ActivityName: activity.Name}, nil
	}

	redirectURL, err := s.HandoffStudent(ctx, activity, member)
	if err != nil {
		return Outcome{}, err
	}

	return Outcome{Kind: OutcomeHandoff, RedirectURL: redirectURL, ActivityName: activity.Name}, nil
}

func (s *launchService) ensureMember(ctx context.Context, req lti.LaunchRequest, activity models.Activity) (models.ActivityMember, error) {
	member, err := s.members.Get(ctx, activity.ID, req.UserID)
	if err == nil {
		return member, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return models.ActivityMember{}, fmt.Errorf("failed to load member: %w", err)
	}

	member = models.ActivityMember{
		ActivityID:      activity.ID,
		LMSUserID:       req.UserID,
		DisplayName:     req.DisplayName,
		SessionIdentity: lti.ActivityIdentity(req.PreferredUsername(), req.PlacementID, s.platformDomain),
	}
	if err := s.members.Create(ctx, &member); err != nil {
		return models.ActivityMember{}, fmt.Errorf("failed to create member: %w", err)
	}

	return member, nil
}

func (s *launchService) HandoffStudent(ctx context.Context, activity models.Activity, member models.ActivityMember) (string, error) {
	account, err := s.provider.CreateOrGetAccount(ctx, member.SessionIdentity)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrUpstreamUnavailable, "session provider account")
	}

	if err := s.provider.AddAccountToGroup(ctx, account.ID, activity.PlacementID); err != nil {
		return "", fmt.Errorf("%w: %s", ErrUpstreamUnavailable, "session provider group")
	}

	sessionToken, err := s.provider.IssueSessionToken(ctx, member.SessionIdentity)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrUpstreamUnavailable, "session provider token")
	}

	if err := s.members.RecordAccess(ctx, member.ID, s.now().UTC()); err != nil {
		s.logger.Warn().Err(err).Uint("member_id", member.ID).Msg("failed to record member access")
	}

	return s.provider.CompletionURL(sessionToken), nil
}

func (s *launchService) ResourceHandoff(ctx context.Context, req lti.LaunchRequest, assistant models.Assistant) (Outcome, error) {
	identity := lti.ResourceIdentity(req.PreferredUsername(), assistant.PublishedName, s.platformDomain)

	account, err := s.provider.CreateOrGetAccount(ctx, identity)
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: %s", ErrUpstreamUnavailable, "session provider account")
	}

	if err := s.provider.AddAccountToGroup(ctx, account.ID, assistant.PublishedName); err != nil {
		return Outcome{}, fmt.Errorf("%w: %s", ErrUpstreamUnavailable, "session provider group")
	}

	sessionToken, err := s.provider.IssueSessionToken(ctx, identity)
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: %s", ErrUpstreamUnavailable, "session provider token")
	}

	s.recordOutcome(ctx, req.PlacementID, req.Role, OutcomeHandoff)

	return Outcome{Kind: OutcomeHandoff, RedirectURL: s.provider.CompletionURL(sessionToken), ActivityName: assistant.Name}, nil
}

func (s *launchService) RecordFailure(ctx context.Context, placementID, role, failureClass string) {
	event := models.LaunchEvent{
		PlacementID:  placementID,
		Role:         role,
		Outcome:      "rejected",
		FailureClass: failureClass,
	}
	if err := s.launchEvents.Create(ctx, &event); err != nil {
		s.logger.Warn().Err(err).Str("placement_id", placementID).Msg("failed to record launch failure")
	}
}

func (s *launchService) recordOutcome(ctx context.Context, placementID, role, outcome string) {
	event := models.LaunchEvent{
		PlacementID: placementID,
		Role:        role,
		Outcome:     outcome,
		Metadata:    datatypes.JSONMap{},
	}
	if err := s.launchEvents.Create(ctx, &event); err != nil {
		s.logger.Warn().Err(err).Str("placement_id", placementID).Msg("failed to record launch event")
	}

	s.publisher.Publish(events.SubjectLaunch, events.LaunchEvent{
		PlacementID: placementID,
		Role:        role,
		Outcome:     outcome,
		OccurredAt:  s.now().UTC(),
	})
}
