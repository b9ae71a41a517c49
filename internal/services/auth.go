package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/onceloved/storefront/internal/models"
	"github.com/onceloved/storefront/internal/observability"
)

const googleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"

var (
	ErrAuthUnavailable   = errors.New("auth service unavailable")
	ErrAuthInvalidCode   = errors.New("oauth code is required")
	ErrAuthCodeExchange  = errors.New("failed to exchange oauth code")
	ErrAuthGetGoogleUser = errors.New("failed to fetch google user")
	ErrAuthUnverified    = errors.New("google account email is not verified")
	ErrAuthGenerateState = errors.New("failed to generate oauth state")
	ErrAuthUpsertUser    = errors.New("failed to save user")
)

type GoogleUser struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

type StartGoogleLoginResult struct {
	State            string
	AuthorizationURL string
}

type AuthConfig struct {
	ClientID     string
	ClientSecret string
	BaseURL      string
	AdminEmails  []string
}

type userUpserter interface {
	Upsert(ctx context.Context, user *models.User) error
	UpdateProfile(ctx context.Context, id uuid.UUID, name *string, role *models.Role) (*models.User, error)
}

type AuthService struct {
	users       userUpserter
	oauthConfig *oauth2.Config
	userInfoURL string
	adminEmails map[string]struct{}
	httpClient  *http.Client
	logger      *slog.Logger
}

func NewAuthService(cfg AuthConfig, users userUpserter, logger *slog.Logger) (*AuthService, error) {
	if users == nil {
		return nil, fmt.Errorf("auth service user store is required")
	}
	if strings.TrimSpace(cfg.ClientID) == "" {
		return nil, ErrAuthUnavailable
	}

	admins := make(map[string]struct{}, len(cfg.AdminEmails))
	for _, email := range cfg.AdminEmails {
		if email = normalizeEmail(email); email != "" {
			admins[email] = struct{}{}
		}
	}

	return &AuthService{
		users: users,
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       []string{"openid", "email", "profile"},
			RedirectURL:  googleOAuthRedirectURL(cfg.BaseURL),
		},
		userInfoURL: googleUserInfoURL,
		adminEmails: admins,
		httpClient:  observability.NewHTTPClient(10 * time.Second),
		logger:      logger,
	}, nil
}

func googleOAuthRedirectURL(baseURL string) string {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return ""
	}

	return strings.TrimRight(baseURL, "/") + "/auth/google/callback"
}

func (s *AuthService) StartGoogleLogin() (StartGoogleLoginResult, error) {
	result := StartGoogleLoginResult{}
	if s == nil || s.oauthConfig == nil {
		return result, ErrAuthUnavailable
	}

	state, err := generateOAuthState()
	if err != nil {
		return result, fmt.Errorf("%w: %v", ErrAuthGenerateState, err)
	}

	result.State = state
	result.AuthorizationURL = s.oauthConfig.AuthCodeURL(state, oauth2.AccessTypeOnline)

	return result, nil
}

// CompleteGoogleOAuth exchanges the code, loads the Google profile and
// records the user. Emails listed as admins are promoted on every login.
func (s *AuthService) CompleteGoogleOAuth(ctx context.Context, code string) (*models.User, error) {
	if s == nil || s.oauthConfig == nil || s.httpClient == nil || s.users == nil {
		return nil, ErrAuthUnavailable
	}

	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrAuthInvalidCode
	}

	token, err := s.oauthConfig.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthCodeExchange, err)
	}

	profile, err := s.getGoogleUser(ctx, token.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthGetGoogleUser, err)
	}
	if !profile.EmailVerified {
		return nil, ErrAuthUnverified
	}

	user := s.userFromProfile(profile)
	wantRole := user.Role
	if err := s.users.Upsert(ctx, user); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthUpsertUser, err)
	}
	if wantRole == models.RoleAdmin && user.Role != models.RoleAdmin {
		role := models.RoleAdmin
		promoted, err := s.users.UpdateProfile(ctx, user.ID, nil, &role)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrAuthUpsertUser, err)
		}
		user = promoted
	}

	if s.logger != nil {
		s.logger.Info("user signed in", "user_id", user.ID, "role", user.Role)
	}
	return user, nil
}

func (s *AuthService) userFromProfile(profile *GoogleUser) *models.User {
	email := normalizeEmail(profile.Email)
	name := strings.TrimSpace(profile.Name)
	if name == "" {
		name, _, _ = strings.Cut(email, "@")
	}

	role := models.RoleCustomer
	if _, ok := s.adminEmails[email]; ok {
		role = models.RoleAdmin
	}

	return &models.User{
		Email:      email,
		Name:       name,
		AvatarURL:  profile.Picture,
		Provider:   "google",
		ProviderID: profile.Subject,
		Role:       role,
	}
}

func (s *AuthService) getGoogleUser(ctx context.Context, accessToken string) (*GoogleUser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.userInfoURL, nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil && s.logger != nil {
			s.logger.Warn("failed to close google userinfo response body", "error", closeErr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return nil, fmt.Errorf("google userinfo returned status %d (failed to read response body: %w)", resp.StatusCode, readErr)
		}
		return nil, fmt.Errorf("google userinfo returned status %d: %s", resp.StatusCode, string(body))
	}

	var user GoogleUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, err
	}
	if user.Subject == "" || user.Email == "" {
		return nil, fmt.Errorf("google userinfo is missing sub or email")
	}

	return &user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func generateOAuthState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
