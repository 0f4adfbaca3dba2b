package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/spec-kit/identity-service/pkg/util/errorutil"
)

func TestMemoryUserRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryUserRepository()

	first, err := repo.Create(ctx, "John Doe", "john.doe@gmail.com", "hash")
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.ID)
	assert.True(t, first.Active)

	second, err := repo.Create(ctx, "Jane Roe", "jane@example.com", "hash2")
	require.NoError(t, err)
	assert.Equal(t, int64(2), second.ID)

	_, err = repo.Create(ctx, "Dup", "john.doe@gmail.com", "hash3")
	assert.ErrorIs(t, err, apperrors.NewUserNotCreated())

	found, err := repo.FindBy(ctx, Predicate{"email": "jane@example.com", "is_active": true})
	require.NoError(t, err)
	assert.Equal(t, "Jane Roe", found.Name)

	require.True(t, repo.SetActive("jane@example.com", false))
	_, err = repo.FindByEmail(ctx, "jane@example.com", true)
	assert.ErrorIs(t, err, apperrors.NewUserNotFound())

	inactive, err := repo.FindByEmail(ctx, "jane@example.com", false)
	require.NoError(t, err)
	assert.False(t, inactive.Active)

	byID, err := repo.FindBy(ctx, Predicate{"user_id": int64(1)})
	require.NoError(t, err)
	assert.Equal(t, "john.doe@gmail.com", byID.Email)

	_, err = repo.FindBy(ctx, Predicate{"password": "hash"})
	assert.Error(t, err)
}
