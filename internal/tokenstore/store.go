package tokenstore

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

// Token classes. Setup and consent tokens are consumed once; dashboard
// tokens stay valid for repeated reads until they expire.
const (
	ClassSetup     = "setup"
	ClassDashboard = "dashboard"
	ClassConsent   = "consent"
)

// ErrTokenInvalid covers unknown, expired and already-consumed tokens alike;
// callers cannot tell the cases apart.
var ErrTokenInvalid = errors.New("token invalid or expired")

// Payload is the launch context a token carries between browser round-trips.
type Payload struct {
	Class       string `json:"class"`
	PlacementID string `json:"placement_id"`
	ActivityID  uint   `json:"activity_id,omitempty"`
	LMSUserID   string `json:"lms_user_id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name,omitempty"`
	ContactHint string `json:"contact_hint,omitempty"`
	ContextTitle string `json:"context_title,omitempty"`
	Role        string `json:"role"`
	// OperatorIdentity is set on setup tokens once the instructor's
	// platform identity has been resolved.
	OperatorIdentity string `json:"operator_identity,omitempty"`
}

// Store issues and redeems the ephemeral bearer tokens that bridge one LMS
// launch into its follow-up browser requests.
//
// Tokens are process-local by default and do not survive a restart; the
// redis backend exists for multi-instance deployments.
type Store interface {
	// Issue stores payload under a fresh unguessable token id.
	Issue(ctx context.Context, payload Payload, ttl time.Duration) (string, error)
	// Peek returns the payload without consuming the token.
	Peek(ctx context.Context, tokenID string) (Payload, error)
	// Consume returns the payload and deletes the token.
	Consume(ctx context.Context, tokenID string) (Payload, error)
	// Sweep drops expired entries. Backends that expire entries on their
	// own may treat it as a no-op.
	Sweep(ctx context.Context) error
	Close() error
}

// newTokenID returns 32 hex characters (128 bits) from crypto/rand.
func newTokenID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate token id: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
