// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/identityapp/api/internal/models"
	"github.com/identityapp/api/internal/repository"
	"github.com/identityapp/api/internal/testutil"
)

func TestCreateActionToken(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	user := testutil.NewTestUser(t, repo, "ann@x.com", false)
	expiresAt := time.Now().Add(time.Hour)

	err := repo.CreateActionToken(ctx, user.ID, models.PurposeConfirmEmail, "hash-1", expiresAt)
	require.NoError(t, err)

	token, err := repo.GetActionToken(ctx, user.ID, models.PurposeConfirmEmail, "hash-1")
	require.NoError(t, err)
	assert.Equal(t, user.ID, token.UserID)
	assert.Equal(t, models.PurposeConfirmEmail, token.Purpose)
	assert.False(t, token.Expired(time.Now()))
}

func TestGetActionToken_WrongPurpose(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	user := testutil.NewTestUser(t, repo, "ann@x.com", false)
	require.NoError(t, repo.CreateActionToken(ctx, user.ID, models.PurposeConfirmEmail, "hash-1", time.Now().Add(time.Hour)))

	_, err := repo.GetActionToken(ctx, user.ID, models.PurposeResetPassword, "hash-1")

	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestGetActionToken_WrongUser(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	ann := testutil.NewTestUser(t, repo, "ann@x.com", false)
	bob := testutil.NewTestUser(t, repo, "bob@x.com", false)
	require.NoError(t, repo.CreateActionToken(ctx, ann.ID, models.PurposeConfirmEmail, "hash-1", time.Now().Add(time.Hour)))

	_, err := repo.GetActionToken(ctx, bob.ID, models.PurposeConfirmEmail, "hash-1")

	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestDeleteActionToken(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	user := testutil.NewTestUser(t, repo, "ann@x.com", false)
	require.NoError(t, repo.CreateActionToken(ctx, user.ID, models.PurposeConfirmEmail, "hash-1", time.Now().Add(time.Hour)))

	token, err := repo.GetActionToken(ctx, user.ID, models.PurposeConfirmEmail, "hash-1")
	require.NoError(t, err)

	require.NoError(t, repo.DeleteActionToken(ctx, token.ID))

	_, err = repo.GetActionToken(ctx, user.ID, models.PurposeConfirmEmail, "hash-1")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestDeleteExpiredActionTokens(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	user := testutil.NewTestUser(t, repo, "ann@x.com", false)
	require.NoError(t, repo.CreateActionToken(ctx, user.ID, models.PurposeConfirmEmail, "expired", time.Now().Add(-time.Hour)))
	require.NoError(t, repo.CreateActionToken(ctx, user.ID, models.PurposeConfirmEmail, "fresh", time.Now().Add(time.Hour)))

	require.NoError(t, repo.DeleteExpiredActionTokens(ctx))

	_, err := repo.GetActionToken(ctx, user.ID, models.PurposeConfirmEmail, "expired")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = repo.GetActionToken(ctx, user.ID, models.PurposeConfirmEmail, "fresh")
	assert.NoError(t, err)
}

func TestCreateActionToken_ReissueKeepsOutstanding(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	user := testutil.NewTestUser(t, repo, "ann@x.com", false)
	require.NoError(t, repo.CreateActionToken(ctx, user.ID, models.PurposeConfirmEmail, "first", time.Now().Add(time.Hour)))
	require.NoError(t, repo.CreateActionToken(ctx, user.ID, models.PurposeConfirmEmail, "second", time.Now().Add(time.Hour)))

	_, err := repo.GetActionToken(ctx, user.ID, models.PurposeConfirmEmail, "first")
	assert.NoError(t, err)

	_, err = repo.GetActionToken(ctx, user.ID, models.PurposeConfirmEmail, "second")
	assert.NoError(t, err)
}
