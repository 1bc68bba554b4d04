package db

import (
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool_Implementations(t *testing.T) {
	var _ Pool = (*pgxpool.Pool)(nil)

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	var p Pool = mock
	assert.NotNil(t, p)
}
