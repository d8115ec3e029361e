package user

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simplrflow/service/internal/db/dbtest"
)

func TestRepositoryEnsureIsIdempotent(t *testing.T) {
	pool := dbtest.Open(t)
	ctx := context.Background()
	repo := NewRepository(pool)

	require.NoError(t, repo.Ensure(ctx, "auth0|abc"))
	require.NoError(t, repo.Ensure(ctx, "auth0|abc"))

	_, err := pool.Exec(ctx, `INSERT INTO datasets (name, user_id) VALUES ('a', $1), ('b', $1)`, "auth0|abc")
	require.NoError(t, err)

	u, err := repo.GetByID(ctx, "auth0|abc")
	require.NoError(t, err)
	assert.Equal(t, "auth0|abc", u.ID)
	assert.Equal(t, 2, u.DatasetCount)

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
