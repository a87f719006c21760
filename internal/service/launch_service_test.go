package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/lti-bridge-api/internal/lti"
	"github.com/noah-isme/lti-bridge-api/internal/models"
	"github.com/noah-isme/lti-bridge-api/internal/repository"
	"github.com/noah-isme/lti-bridge-api/internal/tokenstore"
	"github.com/noah-isme/lti-bridge-api/pkg/sessionprovider"
)

const testPlatformDomain = "platform.example.com"

func setupServiceDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Activity{},
		&models.ActivityAssistantLink{},
		&models.ActivityMember{},
		&models.IdentityLink{},
		&models.CredentialRecord{},
		&models.Tenant{},
		&models.Assistant{},
		&models.Conversation{},
		&models.ConversationMessage{},
		&models.LaunchEvent{},
	))
	return db
}

// stubProvider is an in-memory session provider double.
type stubProvider struct {
	accounts     map[string]string
	groups       map[string][]string
	failAccounts bool
}

func newStubProvider() *stubProvider {
	return &stubProvider{
		accounts: map[string]string{},
		groups:   map[string][]string{},
	}
}

func (p *stubProvider) CreateOrGetAccount(_ context.Context, identity string) (sessionprovider.Account, error) {
	if p.failAccounts {
		return sessionprovider.Account{}, fmt.Errorf("provider down")
	}
	id, exists := p.accounts[identity]
	if !exists {
		id = fmt.Sprintf("acct-%d", len(p.accounts)+1)
		p.accounts[identity] = id
	}
	return sessionprovider.Account{ID: id, Identity: identity, Created: !exists}, nil
}

func (p *stubProvider) IssueSessionToken(_ context.Context, identity string) (string, error) {
	return "tok-" + identity, nil
}

func (p *stubProvider) AddAccountToGroup(_ context.Context, accountID, group string) error {
	p.groups[group] = append(p.groups[group], accountID)
	return nil
}

func (p *stubProvider) CompletionURL(sessionToken string) string {
	return "https://chat.example.com/session/complete?token=" + sessionToken
}

type launchFixture struct {
	db       *gorm.DB
	tokens   *tokenstore.MemoryStore
	provider *stubProvider
	service  LaunchService
}

func newLaunchFixture(t *testing.T) launchFixture {
	t.Helper()

	db := setupServiceDB(t)
	tokens := tokenstore.NewMemoryStore()
	t.Cleanup(func() { tokens.Close() })
	provider := newStubProvider()

	svc := NewLaunchService(
		repository.NewActivityRepository(db),
		repository.NewMemberRepository(db),
		repository.NewIdentityLinkRepository(db),
		repository.NewLaunchEventRepository(db),
		tokens,
		provider,
		nil,
		testPlatformDomain,
		TokenTTLs{Setup: 10 * time.Minute, Dashboard: 30 * time.Minute, Consent: 10 * time.Minute},
		zerolog.Nop(),
	)

	return launchFixture{db: db, tokens: tokens, provider: provider, service: svc}
}

func studentLaunch(placementID, userID string) lti.LaunchRequest {
	return lti.LaunchRequest{
		ConsumerKey: "course-key",
		PlacementID: placementID,
		UserID:      userID,
		Username:    "user" + userID,
		DisplayName: "User " + userID,
		Role:        lti.RoleStudent,
	}
}

func instructorLaunch(placementID, userID string) lti.LaunchRequest {
	req := studentLaunch(placementID, userID)
	req.Role = lti.RoleInstructor
	req.ContactHint = "user" + userID + "@school.edu"
	req.ContextTitle = "Algebra 101"
	return req
}

func seedActivity(t *testing.T, db *gorm.DB, activity models.Activity) models.Activity {
	t.Helper()
	require.NoError(t, db.Create(&activity).Error)
	return activity
}

func TestDecideStudentOnUnknownPlacement(t *testing.T) {
	fx := newLaunchFixture(t)

	outcome, err := fx.service.Decide(context.Background(), studentLaunch("placement-1", "42"))
	require.NoError(t, err)
	require.Equal(t, OutcomeNotConfigured, outcome.Kind)
	require.Empty(t, outcome.Token)
	require.Empty(t, outcome.RedirectURL)
}

func TestDecideInstructorWithIdentityLinkGetsSetupForm(t *testing.T) {
	fx := newLaunchFixture(t)

	link := models.IdentityLink{
		LMSUserID:        "7",
		ContactHint:      "user7@school.edu",
		OperatorIdentity: "prof@platform",
	}
	require.NoError(t, fx.db.Create(&link).Error)

	outcome, err := fx.service.Decide(context.Background(), instructorLaunch("placement-1", "7"))
	require.NoError(t, err)
	require.Equal(t, OutcomeSetupForm, outcome.Kind)
	require.NotEmpty(t, outcome.Token)

	payload, err := fx.tokens.Peek(context.Background(), outcome.Token)
	require.NoError(t, err)
	require.Equal(t, tokenstore.ClassSetup, payload.Class)
	require.Equal(t, "placement-1", payload.PlacementID)
	require.Equal(t, "prof@platform", payload.OperatorIdentity)
	require.Equal(t, "Algebra 101", payload.ContextTitle)
}

func TestDecideInstructorWithoutIdentityLinkContactsAdmin(t *testing.T) {
	fx := newLaunchFixture(t)

	outcome, err := fx.service.Decide(context.Background(), instructorLaunch("placement-1", "7"))
	require.NoError(t, err)
	require.Equal(t, OutcomeContactAdmin, outcome.Kind)
	require.Empty(t, outcome.Token)
}

func TestDecideInstructorOnConfiguredActivityGetsDashboard(t *testing.T) {
	fx := newLaunchFixture(t)

	activity := seedActivity(t, fx.db, models.Activity{
		PlacementID:   "placement-1",
		Name:          "Algebra Helpers",
		OwnerIdentity: "prof@platform",
		Status:        models.ActivityStatusActive,
	})

	outcome, err := fx.service.Decide(context.Background(), instructorLaunch("placement-1", "7"))
	require.NoError(t, err)
	require.Equal(t, OutcomeDashboard, outcome.Kind)
	require.Equal(t, "Algebra Helpers", outcome.ActivityName)

	payload, err := fx.tokens.Peek(context.Background(), outcome.Token)
	require.NoError(t, err)
	require.Equal(t, tokenstore.ClassDashboard, payload.Class)
	require.Equal(t, activity.ID, payload.ActivityID)
	// No identity link exists, so the token carries no operator identity
	// and reconfiguration stays out of reach.
	require.Empty(t, payload.OperatorIdentity)
}

func TestDecideStudentHandoffCreatesMember(t *testing.T) {
	fx := newLaunchFixture(t)

	activity := seedActivity(t, fx.db, models.Activity{
		PlacementID:   "placement-1",
		Name:          "Algebra Helpers",
		OwnerIdentity: "prof@platform",
		Status:        models.ActivityStatusActive,
	})

	outcome, err := fx.service.Decide(context.Background(), studentLaunch("placement-1", "42"))
	require.NoError(t, err)
	require.Equal(t, OutcomeHandoff, outcome.Kind)
	require.Contains(t, outcome.RedirectURL, "https://chat.example.com/session/complete?token=")

	var member models.ActivityMember
	require.NoError(t, fx.db.First(&member, "activity_id = ? AND lms_user_id = ?", activity.ID, "42").Error)
	require.Equal(t, "user42_placement-1@"+testPlatformDomain, member.SessionIdentity)
	require.Equal(t, uint(1), member.LaunchCount)
	require.NotNil(t, member.LastAccessedAt)

	// The provider account joined the placement group.
	require.Len(t, fx.provider.groups["placement-1"], 1)
}

func TestDecideStudentRelaunchKeepsIdentityAndCountsLaunches(t *testing.T) {
	fx := newLaunchFixture(t)

	seedActivity(t, fx.db, models.Activity{
		PlacementID:   "placement-1",
		Name:          "Algebra Helpers",
		OwnerIdentity: "prof@platform",
		Status:        models.ActivityStatusActive,
	})

	first, err := fx.service.Decide(context.Background(), studentLaunch("placement-1", "42"))
	require.NoError(t, err)
	second, err := fx.service.Decide(context.Background(), studentLaunch("placement-1", "42"))
	require.NoError(t, err)
	require.Equal(t, first.RedirectURL, second.RedirectURL)

	var member models.ActivityMember
	require.NoError(t, fx.db.First(&member, "lms_user_id = ?", "42").Error)
	require.Equal(t, uint(2), member.LaunchCount)

	// One provider account, not two.
	require.Len(t, fx.provider.accounts, 1)
}

func TestDecideStudentConsentGate(t *testing.T) {
	fx := newLaunchFixture(t)

	activity := seedActivity(t, fx.db, models.Activity{
		PlacementID:    "placement-1",
		Name:           "Algebra Helpers",
		OwnerIdentity:  "prof@platform",
		ChatVisibility: true,
		Status:         models.ActivityStatusActive,
	})

	outcome, err := fx.service.Decide(context.Background(), studentLaunch("placement-1", "42"))
	require.NoError(t, err)
	require.Equal(t, OutcomeConsentPage, outcome.Kind)

	payload, err := fx.tokens.Peek(context.Background(), outcome.Token)
	require.NoError(t, err)
	require.Equal(t, tokenstore.ClassConsent, payload.Class)
	require.Equal(t, "Algebra Helpers", payload.ContextTitle)

	// The member row exists already, without consent and without handoff.
	var member models.ActivityMember
	require.NoError(t, fx.db.First(&member, "activity_id = ?", activity.ID).Error)
	require.False(t, member.HasConsented())
	require.Empty(t, fx.provider.accounts)

	// Relaunching before consenting shows the consent page again.
	again, err := fx.service.Decide(context.Background(), studentLaunch("placement-1", "42"))
	require.NoError(t, err)
	require.Equal(t, OutcomeConsentPage, again.Kind)
}

func TestDecideStudentWithConsentIsHandedOff(t *testing.T) {
	fx := newLaunchFixture(t)

	activity := seedActivity(t, fx.db, models.Activity{
		PlacementID:    "placement-1",
		Name:           "Algebra Helpers",
		OwnerIdentity:  "prof@platform",
		ChatVisibility: true,
		Status:         models.ActivityStatusActive,
	})

	consented := time.Now().UTC()
	member := models.ActivityMember{
		ActivityID:      activity.ID,
		LMSUserID:       "42",
		SessionIdentity: "user42_placement-1@" + testPlatformDomain,
		ConsentedAt:     &consented,
	}
	require.NoError(t, fx.db.Create(&member).Error)

	outcome, err := fx.service.Decide(context.Background(), studentLaunch("placement-1", "42"))
	require.NoError(t, err)
	require.Equal(t, OutcomeHandoff, outcome.Kind)
}

func TestDecideDisabledActivity(t *testing.T) {
	fx := newLaunchFixture(t)

	seedActivity(t, fx.db, models.Activity{
		PlacementID:   "placement-1",
		Name:          "Algebra Helpers",
		OwnerIdentity: "prof@platform",
		Status:        models.ActivityStatusDisabled,
	})

	instructor, err := fx.service.Decide(context.Background(), instructorLaunch("placement-1", "7"))
	require.NoError(t, err)
	require.Equal(t, OutcomeDisabledNotice, instructor.Kind)

	// Students see the same page as an unconfigured placement; the
	// activity's existence is not disclosed.
	student, err := fx.service.Decide(context.Background(), studentLaunch("placement-1", "42"))
	require.NoError(t, err)
	require.Equal(t, OutcomeNotConfigured, student.Kind)
}

func TestDecideProviderFailureIsUpstreamError(t *testing.T) {
	fx := newLaunchFixture(t)
	fx.provider.failAccounts = true

	seedActivity(t, fx.db, models.Activity{
		PlacementID:   "placement-1",
		Name:          "Algebra Helpers",
		OwnerIdentity: "prof@platform",
		Status:        models.ActivityStatusActive,
	})

	_, err := fx.service.Decide(context.Background(), studentLaunch("placement-1", "42"))
	require.ErrorIs(t, err, ErrUpstreamUnavailable)
}

func TestDecideRecordsLaunchEvents(t *testing.T) {
	fx := newLaunchFixture(t)

	_, err := fx.service.Decide(context.Background(), studentLaunch("placement-1", "42"))
	require.NoError(t, err)

	var events []models.LaunchEvent
	require.NoError(t, fx.db.Find(&events, "placement_id = ?", "placement-1").Error)
	require.Len(t, events, 1)
	require.Equal(t, OutcomeNotConfigured, events[0].Outcome)
	require.Equal(t, lti.RoleStudent, events[0].Role)
}

func TestRecordFailureWritesAuditRow(t *testing.T) {
	fx := newLaunchFixture(t)

	fx.service.RecordFailure(context.Background(), "placement-1", lti.RoleStudent, "authentication")

	var event models.LaunchEvent
	require.NoError(t, fx.db.First(&event, "placement_id = ?", "placement-1").Error)
	require.Equal(t, "rejected", event.Outcome)
	require.Equal(t, "authentication", event.FailureClass)
}

func TestResourceHandoffUsesPerResourceIdentity(t *testing.T) {
	fx := newLaunchFixture(t)

	math := models.Assistant{Name: "Math Helper", PublishedName: "math-helper", LTISecret: "s1"}
	essay := models.Assistant{Name: "Essay Coach", PublishedName: "essay-coach", LTISecret: "s2"}
	require.NoError(t, fx.db.Create(&math).Error)
	require.NoError(t, fx.db.Create(&essay).Error)

	req := studentLaunch("placement-1", "42")

	first, err := fx.service.ResourceHandoff(context.Background(), req, math)
	require.NoError(t, err)
	require.Equal(t, OutcomeHandoff, first.Kind)

	second, err := fx.service.ResourceHandoff(context.Background(), req, essay)
	require.NoError(t, err)

	// The same human gets a distinct identity per resource.
	require.Len(t, fx.provider.accounts, 2)
	require.Contains(t, fx.provider.accounts, "user42-math-helper@"+testPlatformDomain)
	require.Contains(t, fx.provider.accounts, "user42-essay-coach@"+testPlatformDomain)
	require.NotEqual(t, first.RedirectURL, second.RedirectURL)
}
