package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/lti-bridge-api/internal/dto"
	"github.com/noah-isme/lti-bridge-api/internal/models"
	"github.com/noah-isme/lti-bridge-api/internal/repository"
)

const activeWindow = 7 * 24 * time.Hour

// DashboardService is the read-only aggregation layer over activity
// membership and the externally-owned conversation store. Every row it
// returns has been passed through the anonymization map.
type DashboardService interface {
	Summary(ctx context.Context, activityID uint) (dto.DashboardSummary, error)
	Members(ctx context.Context, activityID uint, page, perPage int) (dto.Page[dto.MemberSummary], error)
	// Conversations and Transcript refuse with ErrPermissionDenied when
	// chat visibility is disabled on the activity, independent of caller
	// role.
	Conversations(ctx context.Context, activityID uint, page, perPage int) (dto.Page[dto.ConversationSummary], error)
	Transcript(ctx context.Context, activityID, conversationID uint) (dto.Transcript, error)
	// Invalidate drops the cached summary after a membership write.
	Invalidate(ctx context.Context, activityID uint)
}

type dashboardService struct {
	activities    repository.ActivityRepository
	members       repository.MemberRepository
	assistants    repository.AssistantRepository
	conversations repository.ConversationRepository
	cache         *redis.Client
	cacheTTL      time.Duration
	logger        zerolog.Logger
	now           func() time.Time
}

// NewDashboardService builds the dashboard aggregator.
func NewDashboardService(
	activities repository.ActivityRepository,
	members repository.MemberRepository,
	assistants repository.AssistantRepository,
	conversations repository.ConversationRepository,
	cache *redis.Client,
	cacheTTL time.Duration,
	logger zerolog.Logger,
) DashboardService {
	return &dashboardService{
		activities:    activities,
		members:       members,
		assistants:    assistants,
		conversations: conversations,
		cache:         cache,
		cacheTTL:      cacheTTL,
		logger:        logger.With().Str("component", "dashboard_service").Logger(),
		now:           time.Now,
	}
}

func summaryCacheKey(activityID uint) string {
	return fmt.Sprintf("dashboard:activity:%d", activityID)
}

func (s *dashboardService) Summary(ctx context.Context, activityID uint) (dto.DashboardSummary, error) {
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, summaryCacheKey(activityID)).Result(); err == nil {
			var summary dto.DashboardSummary
			if unmarshalErr := json.Unmarshal([]byte(cached), &summary); unmarshalErr == nil {
				s.logger.Debug().Uint("activity_id", activityID).Msg("dashboard cache hit")
				return summary, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Msg("failed to read dashboard cache")
		}
	}

	activity, members, conversations, err := s.loadActivityData(ctx, activityID)
	if err != nil {
		return dto.DashboardSummary{}, err
	}

	summary := s.buildSummary(activity, members, conversations)

	if s.cache != nil {
		if payload, err := json.Marshal(summary); err == nil {
			if err := s.cache.Set(ctx, summaryCacheKey(activityID), payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store dashboard cache")
			}
		}
	}

	return summary, nil
}

func (s *dashboardService) buildSummary(activity models.Activity, members []models.ActivityMember, conversations []models.Conversation) dto.DashboardSummary {
	summary := dto.DashboardSummary{
		ActivityName:      activity.Name,
		ChatVisibility:    activity.ChatVisibility,
		MemberCount:       len(members),
		ConversationCount: len(conversations),
		Timeline:          []dto.TimelineEntry{},
	}

	for _, member := range members {
		if member.HasConsented() {
			summary.ConsentedCount++
		}
	}

	cutoff := s.now().UTC().Add(-activeWindow)
	activeIdentities := map[string]bool{}
	byDay := map[string]int{}

	for _, conversation := range conversations {
		summary.MessageCount += int(conversation.MessageCount)
		if conversation.UpdatedAt.After(cutoff) {
			activeIdentities[conversation.AccountIdentity] = true
		}
		byDay[conversation.UpdatedAt.UTC().Format("2006-01-02")]++
	}
	summary.ActiveLast7Days = len(activeIdentities)

	days := make([]string, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	sort.Strings(days)
	for _, day := range days {
		summary.Timeline = append(summary.Timeline, dto.TimelineEntry{Date: day, Conversations: byDay[day]})
	}

	return summary
}

func (s *dashboardService) Members(ctx context.Context, activityID uint, page, perPage int) (dto.Page[dto.MemberSummary], error) {
	members, err := s.members.ListByActivity(ctx, activityID)
	if err != nil {
		return dto.Page[dto.MemberSummary]{}, fmt.Errorf("failed to list members: %w", err)
	}

	summaries := make([]dto.MemberSummary, 0, len(members))
	for i, member := range members {
		summaries = append(summaries, dto.MemberSummary{
			Pseudonym:    Pseudonym(i + 1),
			Consented:    member.HasConsented(),
			LaunchCount:  member.LaunchCount,
			LastAccessAt: member.LastAccessedAt,
		})
	}

	return paginate(summaries, page, perPage), nil
}

func (s *dashboardService) Conversations(ctx context.Context, activityID uint, page, perPage int) (dto.Page[dto.ConversationSummary], error) {
	activity, members, conversations, err := s.loadActivityData(ctx, activityID)
	if err != nil {
		return dto.Page[dto.ConversationSummary]{}, err
	}

	if !activity.ChatVisibility {
		return dto.Page[dto.ConversationSummary]{}, ErrPermissionDenied
	}

	assistants, err := s.assistants.ListByActivity(ctx, activityID)
	if err != nil {
		return dto.Page[dto.ConversationSummary]{}, fmt.Errorf("failed to list assistants: %w", err)
	}
	assistantNames := make(map[uint]string, len(assistants))
	for _, assistant := range assistants {
		assistantNames[assistant.ID] = assistant.Name
	}

	pseudonyms := pseudonymsByIdentity(members)

	summaries := make([]dto.ConversationSummary, 0, len(conversations))
	for _, conversation := range conversations {
		summaries = append(summaries, dto.ConversationSummary{
			ID:            conversation.ID,
			Pseudonym:     pseudonyms[conversation.AccountIdentity],
			AssistantName: assistantNames[conversation.AssistantID],
			MessageCount:  conversation.MessageCount,
			UpdatedAt:     conversation.UpdatedAt,
		})
	}

	return paginate(summaries, page, perPage), nil
}

func (s *dashboardService) Transcript(ctx context.Context, activityID, conversationID uint) (dto.Transcript, error) {
	activity, members, _, err := s.loadActivityData(ctx, activityID)
	if err != nil {
		return dto.Transcript{}, err
	}

	if !activity.ChatVisibility {
		return dto.Transcript{}, ErrPermissionDenied
	}

	conversation, err := s.conversations.Get(ctx, conversationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.Transcript{}, ErrNotFound
		}
		return dto.Transcript{}, fmt.Errorf("failed to load conversation: %w", err)
	}

	// The conversation must belong to this activity's resource set and
	// member set; anything else is indistinguishable from not-found.
	assistantIDs, err := s.activities.AssistantIDs(ctx, activityID)
	if err != nil {
		return dto.Transcript{}, fmt.Errorf("failed to load attached assistants: %w", err)
	}
	if !containsUint(assistantIDs, conversation.AssistantID) {
		return dto.Transcript{}, ErrNotFound
	}

	pseudonyms := pseudonymsByIdentity(members)
	pseudonym, isMember := pseudonyms[conversation.AccountIdentity]
	if !isMember {
		return dto.Transcript{}, ErrNotFound
	}

	messages, err := s.conversations.Messages(ctx, conversationID)
	if err != nil {
		return dto.Transcript{}, fmt.Errorf("failed to load transcript: %w", err)
	}

	assistants, err := s.assistants.ListByIDs(ctx, []uint{conversation.AssistantID})
	if err != nil || len(assistants) == 0 {
		return dto.Transcript{}, fmt.Errorf("failed to load assistant: %w", err)
	}

	transcript := dto.Transcript{
		ID:            conversation.ID,
		Pseudonym:     pseudonym,
		AssistantName: assistants[0].Name,
		Messages:      make([]dto.TranscriptMessage, 0, len(messages)),
	}

	for _, message := range messages {
		speaker := transcript.AssistantName
		if message.Role == models.MessageRoleUser {
			speaker = pseudonym
		}
		transcript.Messages = append(transcript.Messages, dto.TranscriptMessage{
			Speaker:   speaker,
			Content:   message.Content,
			CreatedAt: message.CreatedAt,
		})
	}

	return transcript, nil
}

func (s *dashboardService) Invalidate(ctx context.Context, activityID uint) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, summaryCacheKey(activityID)).Err(); err != nil {
		s.logger.Warn().Err(err).Uint("activity_id", activityID).Msg("failed to invalidate dashboard cache")
	}
}

func (s *dashboardService) loadActivityData(ctx context.Context, activityID uint) (models.Activity, []models.ActivityMember, []models.Conversation, error) {
	activity, err := s.activities.GetByID(ctx, activityID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Activity{}, nil, nil, ErrNotFound
		}
		return models.Activity{}, nil, nil, fmt.Errorf("failed to load activity: %w", err)
	}

	members, err := s.members.ListByActivity(ctx, activityID)
	if err != nil {
		return models.Activity{}, nil, nil, fmt.Errorf("failed to list members: %w", err)
	}

	assistantIDs, err := s.activities.AssistantIDs(ctx, activityID)
	if err != nil {
		return models.Activity{}, nil, nil, fmt.Errorf("failed to load attached assistants: %w", err)
	}

	identities := make([]string, 0, len(members))
	for _, member := range members {
		identities = append(identities, member.SessionIdentity)
	}

	conversations, err := s.conversations.Query(ctx, assistantIDs, identities)
	if err != nil {
		return models.Activity{}, nil, nil, fmt.Errorf("%w: conversation store", ErrUpstreamUnavailable)
	}

	return activity, members, conversations, nil
}

func paginate[T any](items []T, page, perPage int) dto.Page[T] {
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 || perPage > 100 {
		perPage = 25
	}

	start := (page - 1) * perPage
	if start > len(items) {
		start = len(items)
	}
	end := start + perPage
	if end > len(items) {
		end = len(items)
	}

	return dto.Page[T]{
		Items:      items[start:end],
		Page:       page,
		PerPage:    perPage,
		TotalItems: len(items),
	}
}

func containsUint(haystack []uint, needle uint) bool {
	for _, value := range haystack {
		if value == needle {
			return true
		}
	}
	return false
}
