package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/travel-auth/internal/auth"
	"github.com/spec-kit/travel-auth/internal/cache"
	"github.com/spec-kit/travel-auth/internal/domain"
	"github.com/spec-kit/travel-auth/internal/events"
	"github.com/spec-kit/travel-auth/internal/repository"
	"github.com/spec-kit/travel-auth/internal/session"
	apperrors "github.com/spec-kit/travel-auth/pkg/util"
)

// LoginResult bundles everything a login handler needs.
type LoginResult struct {
	Principal domain.Principal
	Tokens    domain.TokenPair
	SessionID string
}

// AuthService coordinates login, refresh and logout flows for the three
// principal kinds.
type AuthService struct {
	accounts   repository.AccountRepository
	tokens     *auth.TokenService
	sessions   *session.Store
	cache      *cache.Manager
	dispatcher events.Dispatcher
}

// AuthDependencies encapsulates requirements for the auth service.
type AuthDependencies struct {
	Accounts   repository.AccountRepository
	Tokens     *auth.TokenService
	Sessions   *session.Store
	Cache      *cache.Manager
	Dispatcher events.Dispatcher
}

// NewAuthService builds the service.
func NewAuthService(deps AuthDependencies) *AuthService {
	return &AuthService{
		accounts:   deps.Accounts,
		tokens:     deps.Tokens,
		sessions:   deps.Sessions,
		cache:      deps.Cache,
		dispatcher: deps.Dispatcher,
	}
}

// LoginConsumer authenticates an end-traveler.
func (s *AuthService) LoginConsumer(ctx context.Context, email, password string) (*LoginResult, error) {
	account, err := s.accounts.GetConsumerByEmail(ctx, email)
	if err != nil {
		return nil, s.loginFailure(ctx, domain.KindConsumer, email, err)
	}
	if err := auth.ComparePassword(account.PasswordHash, password); err != nil {
		return nil, s.loginFailure(ctx, domain.KindConsumer, email, err)
	}
	return s.finishLogin(ctx, domain.ConsumerPrincipal(account.ID, account.Email, account.Name))
}

// LoginBusiness authenticates a corporate account.
func (s *AuthService) LoginBusiness(ctx context.Context, email, password string) (*LoginResult, error) {
	account, err := s.accounts.GetBusinessByEmail(ctx, email)
	if err != nil {
		return nil, s.loginFailure(ctx, domain.KindBusiness, email, err)
	}
	if err := auth.ComparePassword(account.PasswordHash, password); err != nil {
		return nil, s.loginFailure(ctx, domain.KindBusiness, email, err)
	}
	return s.finishLogin(ctx, domain.BusinessPrincipal(account.ID, account.Email, account.CompanyName))
}

// LoginAdmin authenticates a back-office operator.
func (s *AuthService) LoginAdmin(ctx context.Context, email, password string) (*LoginResult, error) {
	account, err := s.accounts.GetAdminByEmail(ctx, email)
	if err != nil {
		return nil, s.loginFailure(ctx, domain.KindAdmin, email, err)
	}
	if err := auth.ComparePassword(account.PasswordHash, password); err != nil {
		return nil, s.loginFailure(ctx, domain.KindAdmin, email, err)
	}
	return s.finishLogin(ctx, domain.AdminPrincipal(account.ID, account.Email, account.Role))
}

// Refresh verifies the refresh token and mints a rotated token pair.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (domain.TokenPair, error) {
	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return domain.TokenPair{}, apperrors.NewUnauthorized("invalid refresh token")
	}

	principal, err := s.lookupPrincipal(ctx, claims.UserType, claims.SubjectID())
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.TokenPair{}, apperrors.NewUnauthorized("account no longer exists")
		}
		return domain.TokenPair{}, err
	}

	pair, err := s.tokens.IssueTokens(principal)
	if err != nil {
		return domain.TokenPair{}, err
	}

	s.publish(ctx, events.Event{
		Type:  events.EventTokenRefreshed,
		Actor: events.Actor{Kind: principal.Kind, SubjectID: principal.ID},
		Payload: events.TokenRefreshedPayload{
			AccessExpiresAt:  pair.AccessExpiresAt,
			RefreshExpiresAt: pair.RefreshExpiresAt,
		},
	})
	return pair, nil
}

// Logout removes the server-side session.
func (s *AuthService) Logout(ctx context.Context, kind domain.PrincipalKind, subjectID, sessionID string) (bool, error) {
	deleted, err := s.sessions.Delete(ctx, sessionID)
	if err != nil {
		return false, err
	}
	if deleted {
		s.publish(ctx, events.Event{
			Type:    events.EventLoggedOut,
			Actor:   events.Actor{Kind: kind, SubjectID: subjectID},
			Payload: events.LoggedOutPayload{SessionID: sessionID},
		})
	}
	return deleted, nil
}

// LogoutAll removes every session of the subject.
func (s *AuthService) LogoutAll(ctx context.Context, kind domain.PrincipalKind, subjectID string) (int64, error) {
	count, err := s.sessions.DeleteAllForUser(ctx, subjectID)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		s.publish(ctx, events.Event{
			Type:  events.EventLoggedOut,
			Actor: events.Actor{Kind: kind, SubjectID: subjectID},
		})
	}
	return count, nil
}

// Session returns the stored session payload, nil when it expired.
func (s *AuthService) Session(ctx context.Context, sessionID string) (map[string]any, error) {
	return s.sessions.Get(ctx, sessionID)
}

func (s *AuthService) finishLogin(ctx context.Context, principal domain.Principal) (*LoginResult, error) {
	pair, err := s.tokens.IssueTokens(principal)
	if err != nil {
		return nil, err
	}

	sessionID, err := s.sessions.Create(ctx, principal.ID, map[string]any{
		"userType": string(principal.Kind),
		"email":    principal.Email,
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.Event{
		Type:  events.EventLoginSucceeded,
		Actor: events.Actor{Kind: principal.Kind, SubjectID: principal.ID, Email: principal.Email},
	})
	return &LoginResult{Principal: principal, Tokens: pair, SessionID: sessionID}, nil
}

func (s *AuthService) loginFailure(ctx context.Context, kind domain.PrincipalKind, email string, cause error) error {
	if !errors.Is(cause, pgx.ErrNoRows) && !errors.Is(cause, bcrypt.ErrMismatchedHashAndPassword) {
		// Infrastructure faults surface as-is instead of a credential error.
		return cause
	}
	s.publish(ctx, events.Event{
		Type:    events.EventLoginFailed,
		Actor:   events.Actor{Kind: kind, Email: email},
		Payload: events.LoginFailedPayload{Email: email, Reason: "invalid credentials"},
	})
	return apperrors.NewUnauthorized("invalid credentials")
}

// accountProfile is the memoized shape of an account lookup.
type accountProfile struct {
	Email       string `json:"email"`
	Name        string `json:"name,omitempty"`
	CompanyName string `json:"companyName,omitempty"`
	Role        string `json:"role,omitempty"`
}

// lookupPrincipal rebuilds a principal from storage, memoizing the account
// row in the cache layer so refresh bursts do not hammer Postgres.
func (s *AuthService) lookupPrincipal(ctx context.Context, kind domain.PrincipalKind, id string) (domain.Principal, error) {
	var profile accountProfile
	key := "account:" + string(kind) + ":" + id

	err := s.cache.Remember(ctx, key, &profile, 0, func(ctx context.Context) (any, error) {
		switch kind {
		case domain.KindConsumer:
			account, err := s.accounts.GetConsumerByID(ctx, id)
			if err != nil {
				return nil, err
			}
			return accountProfile{Email: account.Email, Name: account.Name}, nil
		case domain.KindBusiness:
			account, err := s.accounts.GetBusinessByID(ctx, id)
			if err != nil {
				return nil, err
			}
			return accountProfile{Email: account.Email, CompanyName: account.CompanyName}, nil
		case domain.KindAdmin:
			account, err := s.accounts.GetAdminByID(ctx, id)
			if err != nil {
				return nil, err
			}
			return accountProfile{Email: account.Email, Role: account.Role}, nil
		}
		return nil, errors.New("unknown principal kind")
	})
	if err != nil {
		return domain.Principal{}, err
	}

	switch kind {
	case domain.KindBusiness:
		return domain.BusinessPrincipal(id, profile.Email, profile.CompanyName), nil
	case domain.KindAdmin:
		return domain.AdminPrincipal(id, profile.Email, profile.Role), nil
	default:
		return domain.ConsumerPrincipal(id, profile.Email, profile.Name), nil
	}
}

func (s *AuthService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	event.ID = uuid.NewString()
	event.Timestamp = time.Now()
	_ = s.dispatcher.Publish(ctx, event)
}
