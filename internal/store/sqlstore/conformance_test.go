package sqlstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"mangatrack/internal/store"
	"mangatrack/internal/store/storetest"
)

// TestConformance runs the shared store suite against a real PostgreSQL.
// Skipped when Docker is not available.
func TestConformance(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("mangadb"),
		tcpostgres.WithUsername("mangatrack"),
		tcpostgres.WithPassword("mangatrack"),
		tcpostgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	suite.Run(t, &storetest.Suite{
		NewStore: func(t *testing.T) store.Store {
			db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
				Logger: gormlogger.Default.LogMode(gormlogger.Silent),
			})
			require.NoError(t, err)

			s := New(db, 5*time.Second, nil)
			require.NoError(t, s.EnsureSchema(ctx))
			require.NoError(t, db.Exec("TRUNCATE chapter_files, manga_outputs, subscriptions, last_chapters, manga_names RESTART IDENTITY").Error)
			return s
		},
	})
}
