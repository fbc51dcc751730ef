package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/funnelform/funnelform-backend/internal/apperrors"
	"github.com/funnelform/funnelform-backend/internal/logger"
	"github.com/funnelform/funnelform-backend/internal/repos"
	"github.com/funnelform/funnelform-backend/internal/requestdata"
	"github.com/funnelform/funnelform-backend/internal/types"
	"github.com/funnelform/funnelform-backend/internal/utils"
)

type JWTClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

type AuthService interface {
	Register(ctx context.Context, email, password, fullName string) (*types.User, error)
	Login(ctx context.Context, email, password string) (*TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
	Logout(ctx context.Context, refreshToken string) error
	VerifyEmail(ctx context.Context, token string) error
	ResendVerification(ctx context.Context, email string) error
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
	SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
	GetAccessTTL() time.Duration
}

type authService struct {
	db               *gorm.DB
	log              *logger.Logger
	userRepo         repos.UserRepo
	refreshTokenRepo repos.RefreshTokenRepo
	emailTokenRepo   repos.EmailTokenRepo
	emailService     EmailService
	jwtSecretKey     string
	tokenSalt        string
	accessTTL        time.Duration
	refreshTTL       time.Duration
	emailTokenTTL    time.Duration
}

func NewAuthService(
	db *gorm.DB,
	log *logger.Logger,
	userRepo repos.UserRepo,
	refreshTokenRepo repos.RefreshTokenRepo,
	emailTokenRepo repos.EmailTokenRepo,
	emailService EmailService,
	jwtSecretKey string,
	tokenSalt string,
	accessTTL time.Duration,
	refreshTTL time.Duration,
) AuthService {
	serviceLog := log.With("service", "AuthService")
	return &authService{
		db:               db,
		log:              serviceLog,
		userRepo:         userRepo,
		refreshTokenRepo: refreshTokenRepo,
		emailTokenRepo:   emailTokenRepo,
		emailService:     emailService,
		jwtSecretKey:     jwtSecretKey,
		tokenSalt:        tokenSalt,
		accessTTL:        accessTTL,
		refreshTTL:       refreshTTL,
		emailTokenTTL:    24 * time.Hour,
	}
}

func (as *authService) Register(ctx context.Context, email, password, fullName string) (*types.User, error) {
	email = utils.NormalizeEmail(email)
	fullName = utils.NormalizeInput(fullName)
	if email == "" {
		return nil, fmt.Errorf("%w: An email is required to register", apperrors.ErrInvalidArgument)
	}
	if password == "" {
		return nil, fmt.Errorf("%w: A password is required to register", apperrors.ErrInvalidArgument)
	}
	if fullName == "" {
		return nil, fmt.Errorf("%w: A full name is required to register", apperrors.ErrInvalidArgument)
	}
	exists, err := as.userRepo.EmailExists(ctx, nil, email)
	if err != nil {
		return nil, fmt.Errorf("Failed to check user email: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("%w: Email is already in use", apperrors.ErrInvalidArgument)
	}
	hashed, err := utils.HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &types.User{
		ID:       uuid.New(),
		Email:    email,
		Password: hashed,
		FullName: fullName,
		Role:     types.RoleUser,
		IsActive: true,
	}
	var verifyToken string
	err = as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := as.userRepo.Create(ctx, tx, user); err != nil {
			return fmt.Errorf("Failed to create user: %w", err)
		}
		tok, err := as.issueEmailToken(ctx, tx, user.ID, types.EmailTokenVerify)
		if err != nil {
			return err
		}
		verifyToken = tok
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Mail failure must not fail registration; the user can request a resend.
	if as.emailService != nil {
		if err := as.emailService.SendVerificationEmail(ctx, user.Email, verifyToken, user.FullName); err != nil {
			as.log.Warn("Verification email failed after registration", "error", err)
		}
	}
	return user, nil
}

func (as *authService) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	email = utils.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: Email and password are required to login", apperrors.ErrInvalidArgument)
	}
	user, err := as.userRepo.GetByEmail(ctx, nil, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: Invalid email or password", apperrors.ErrUnauthorized)
		}
		return nil, fmt.Errorf("Failed to load user by email: %w", err)
	}
	if !user.IsActive {
		return nil, fmt.Errorf("%w: Account is deactivated", apperrors.ErrUnauthorized)
	}
	if err := utils.CheckPassword(user.Password, password); err != nil {
		return nil, fmt.Errorf("%w: Invalid email or password", apperrors.ErrUnauthorized)
	}

	accessToken, err := as.generateAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("Failed to generate access token: %w", err)
	}
	refreshToken := uuid.New().String()
	row := &types.RefreshToken{
		ID:        uuid.New(),
		UserID:    user.ID,
		TokenHash: utils.HashToken(refreshToken, as.tokenSalt),
		ExpiresAt: time.Now().Add(as.refreshTTL),
	}
	if _, err := as.refreshTokenRepo.Create(ctx, nil, row); err != nil {
		return nil, fmt.Errorf("Failed to persist refresh token: %w", err)
	}
	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// Refresh exchanges a live refresh token for a new access token. The refresh
// token is deliberately not rotated.
func (as *authService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	if refreshToken == "" {
		return "", fmt.Errorf("%w: Refresh token required", apperrors.ErrInvalidArgument)
	}
	row, err := as.refreshTokenRepo.GetByHash(ctx, nil, utils.HashToken(refreshToken, as.tokenSalt))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return "", fmt.Errorf("%w: Unknown refresh token", apperrors.ErrUnauthorized)
		}
		return "", fmt.Errorf("Failed to load refresh token: %w", err)
	}
	if row.RevokedAt != nil {
		return "", fmt.Errorf("%w: Refresh token revoked", apperrors.ErrUnauthorized)
	}
	if row.ExpiresAt.Before(time.Now()) {
		return "", fmt.Errorf("%w: Refresh token expired", apperrors.ErrUnauthorized)
	}
	user, err := as.userRepo.GetByID(ctx, nil, row.UserID)
	if err != nil {
		return "", fmt.Errorf("Failed to load user for refresh: %w", err)
	}
	if !user.IsActive {
		return "", fmt.Errorf("%w: Account is deactivated", apperrors.ErrUnauthorized)
	}
	accessToken, err := as.generateAccessToken(user)
	if err != nil {
		return "", fmt.Errorf("Failed to generate access token: %w", err)
	}
	return accessToken, nil
}

func (as *authService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return fmt.Errorf("%w: Refresh token required", apperrors.ErrInvalidArgument)
	}
	row, err := as.refreshTokenRepo.GetByHash(ctx, nil, utils.HashToken(refreshToken, as.tokenSalt))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			// Already gone; logout is idempotent.
			return nil
		}
		return fmt.Errorf("Failed to load refresh token: %w", err)
	}
	return as.refreshTokenRepo.Revoke(ctx, nil, row.ID)
}

func (as *authService) VerifyEmail(ctx context.Context, token string) error {
	if token == "" {
		return fmt.Errorf("%w: Verification token required", apperrors.ErrInvalidArgument)
	}
	return as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := as.emailTokenRepo.GetActiveByHash(ctx, tx, utils.HashToken(token, as.tokenSalt), types.EmailTokenVerify)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return fmt.Errorf("%w: Invalid or expired verification token", apperrors.ErrInvalidArgument)
			}
			return fmt.Errorf("Failed to load verification token: %w", err)
		}
		if err := as.emailTokenRepo.MarkUsed(ctx, tx, row.ID); err != nil {
			return fmt.Errorf("Failed to consume verification token: %w", err)
		}
		if err := as.userRepo.SetEmailVerified(ctx, tx, row.UserID); err != nil {
			return fmt.Errorf("Failed to mark email verified: %w", err)
		}
		return nil
	})
}

// ResendVerification is an explicit user action, so mail failures propagate.
func (as *authService) ResendVerification(ctx context.Context, email string) error {
	email = utils.NormalizeEmail(email)
	user, err := as.userRepo.GetByEmail(ctx, nil, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return fmt.Errorf("%w: No account for that email", apperrors.ErrNotFound)
		}
		return fmt.Errorf("Failed to load user by email: %w", err)
	}
	if user.EmailVerified {
		return fmt.Errorf("%w: Email already verified", apperrors.ErrInvalidArgument)
	}
	token, err := as.issueEmailToken(ctx, nil, user.ID, types.EmailTokenVerify)
	if err != nil {
		return err
	}
	return as.emailService.SendVerificationEmail(ctx, user.Email, token, user.FullName)
}

// RequestPasswordReset never reveals whether the email exists.
func (as *authService) RequestPasswordReset(ctx context.Context, email string) error {
	email = utils.NormalizeEmail(email)
	user, err := as.userRepo.GetByEmail(ctx, nil, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			as.log.Debug("Password reset requested for unknown email")
			return nil
		}
		return fmt.Errorf("Failed to load user by email: %w", err)
	}
	token, err := as.issueEmailToken(ctx, nil, user.ID, types.EmailTokenPasswordReset)
	if err != nil {
		return err
	}
	if err := as.emailService.SendPasswordResetEmail(ctx, user.Email, token, user.FullName); err != nil {
		as.log.Warn("Password reset email failed", "error", err)
	}
	return nil
}

func (as *authService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if token == "" || newPassword == "" {
		return fmt.Errorf("%w: Token and new password required", apperrors.ErrInvalidArgument)
	}
	hashed, err := utils.HashPassword(newPassword)
	if err != nil {
		return err
	}
	return as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := as.emailTokenRepo.GetActiveByHash(ctx, tx, utils.HashToken(token, as.tokenSalt), types.EmailTokenPasswordReset)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return fmt.Errorf("%w: Invalid or expired reset token", apperrors.ErrInvalidArgument)
			}
			return fmt.Errorf("Failed to load reset token: %w", err)
		}
		if err := as.emailTokenRepo.MarkUsed(ctx, tx, row.ID); err != nil {
			return fmt.Errorf("Failed to consume reset token: %w", err)
		}
		if err := as.userRepo.UpdatePassword(ctx, tx, row.UserID, hashed); err != nil {
			return fmt.Errorf("Failed to update password: %w", err)
		}
		// Forces re-login everywhere.
		if err := as.refreshTokenRepo.RevokeAllForUser(ctx, tx, row.UserID); err != nil {
			return fmt.Errorf("Failed to revoke refresh tokens: %w", err)
		}
		return nil
	})
}

func (as *authService) issueEmailToken(ctx context.Context, tx *gorm.DB, userID uuid.UUID, purpose string) (string, error) {
	token := uuid.New().String()
	row := &types.EmailToken{
		ID:        uuid.New(),
		UserID:    userID,
		TokenHash: utils.HashToken(token, as.tokenSalt),
		Purpose:   purpose,
		ExpiresAt: time.Now().Add(as.emailTokenTTL),
	}
	if _, err := as.emailTokenRepo.Create(ctx, tx, row); err != nil {
		return "", fmt.Errorf("Failed to create %s token: %w", purpose, err)
	}
	return token, nil
}

func (as *authService) generateAccessToken(user *types.User) (string, error) {
	claims := JWTClaims{
		Role: user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(as.accessTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(as.jwtSecretKey))
}

// SetContextFromToken validates the stateless access token and stashes the
// caller's identity in the request context. No database round-trip.
func (as *authService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	if tokenString == "" {
		return ctx, fmt.Errorf("%w: Missing token", apperrors.ErrUnauthorized)
	}
	parsedToken, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("Unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(as.jwtSecretKey), nil
	})
	if err != nil {
		return ctx, fmt.Errorf("%w: Failed to parse token: %v", apperrors.ErrUnauthorized, err)
	}
	claims, ok := parsedToken.Claims.(*JWTClaims)
	if !ok || !parsedToken.Valid {
		return ctx, fmt.Errorf("%w: Invalid or expired token", apperrors.ErrUnauthorized)
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return ctx, fmt.Errorf("%w: Invalid user id in token", apperrors.ErrUnauthorized)
	}
	rd := &requestdata.RequestData{
		TokenString: tokenString,
		UserID:      userID,
		Role:        claims.Role,
	}
	return requestdata.WithRequestData(ctx, rd), nil
}

func (as *authService) GetAccessTTL() time.Duration {
	return as.accessTTL
}
