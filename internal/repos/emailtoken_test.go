package repos

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/funnelform/funnelform-backend/internal/apperrors"
	"github.com/funnelform/funnelform-backend/internal/repos/testutil"
	"github.com/funnelform/funnelform-backend/internal/types"
)

func TestEmailTokenRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)

	userRepo := NewUserRepo(db, log)
	repo := NewEmailTokenRepo(db, log)
	ctx := context.Background()

	user, err := userRepo.Create(ctx, tx, &types.User{
		Email:    "emailtoken@example.com",
		Password: "hash",
		FullName: "Token User",
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	token, err := repo.Create(ctx, tx, &types.EmailToken{
		UserID:    user.ID,
		TokenHash: "hash-verify",
		Purpose:   types.EmailTokenVerify,
		ExpiresAt: time.Now().Add(24 * time.Hour),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := repo.GetActiveByHash(ctx, tx, "hash-verify", types.EmailTokenVerify)
	if err != nil {
		t.Fatalf("GetActiveByHash: %v", err)
	}
	if got.ID != token.ID {
		t.Fatalf("GetActiveByHash: unexpected token: %+v", got)
	}

	// Purpose is part of the lookup: a verify token is not a reset token.
	if _, err := repo.GetActiveByHash(ctx, tx, "hash-verify", types.EmailTokenPasswordReset); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("GetActiveByHash (wrong purpose): expected ErrNotFound, got %v", err)
	}

	if err := repo.MarkUsed(ctx, tx, token.ID); err != nil {
		t.Fatalf("MarkUsed: %v", err)
	}
	if _, err := repo.GetActiveByHash(ctx, tx, "hash-verify", types.EmailTokenVerify); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("GetActiveByHash (used): expected ErrNotFound, got %v", err)
	}

	// Second consumption must fail loudly: a racing consumer that loses
	// counts on this error to abort its transaction.
	if err := repo.MarkUsed(ctx, tx, token.ID); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("MarkUsed (already used): expected ErrNotFound, got %v", err)
	}
	if err := repo.MarkUsed(ctx, tx, uuid.New()); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("MarkUsed (missing): expected ErrNotFound, got %v", err)
	}

	// Expired tokens are invisible too.
	if _, err := repo.Create(ctx, tx, &types.EmailToken{
		UserID:    user.ID,
		TokenHash: "hash-expired",
		Purpose:   types.EmailTokenVerify,
		ExpiresAt: time.Now().Add(-time.Minute),
	}); err != nil {
		t.Fatalf("Create expired: %v", err)
	}
	if _, err := repo.GetActiveByHash(ctx, tx, "hash-expired", types.EmailTokenVerify); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("GetActiveByHash (expired): expected ErrNotFound, got %v", err)
	}
}

func TestRefreshTokenRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)

	userRepo := NewUserRepo(db, log)
	repo := NewRefreshTokenRepo(db, log)
	ctx := context.Background()

	user, err := userRepo.Create(ctx, tx, &types.User{
		Email:    "refreshtoken@example.com",
		Password: "hash",
		FullName: "Refresh User",
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	first, err := repo.Create(ctx, tx, &types.RefreshToken{
		UserID:    user.ID,
		TokenHash: "rt-1",
		ExpiresAt: time.Now().Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := repo.Create(ctx, tx, &types.RefreshToken{
		UserID:    user.ID,
		TokenHash: "rt-2",
		ExpiresAt: time.Now().Add(time.Hour),
	}); err != nil {
		t.Fatalf("Create second: %v", err)
	}

	got, err := repo.GetByHash(ctx, tx, "rt-1")
	if err != nil {
		t.Fatalf("GetByHash: %v", err)
	}
	if got.ID != first.ID || got.RevokedAt != nil {
		t.Fatalf("GetByHash: unexpected token: %+v", got)
	}

	if err := repo.Revoke(ctx, tx, first.ID); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	got, err = repo.GetByHash(ctx, tx, "rt-1")
	if err != nil {
		t.Fatalf("GetByHash after revoke: %v", err)
	}
	if got.RevokedAt == nil {
		t.Fatalf("Revoke: revoked_at not set")
	}

	if err := repo.RevokeAllForUser(ctx, tx, user.ID); err != nil {
		t.Fatalf("RevokeAllForUser: %v", err)
	}
	got, _ = repo.GetByHash(ctx, tx, "rt-2")
	if got.RevokedAt == nil {
		t.Fatalf("RevokeAllForUser: second token still active")
	}
}
