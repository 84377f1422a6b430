package commission

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/bank-melli/commission/internal/migrate"
	"github.com/bank-melli/commission/pkg/database"
	"github.com/bank-melli/commission/pkg/docnum"
	"github.com/bank-melli/commission/pkg/models"
)

func TestCreateCase_Postgres(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("commission"),
		tcpostgres.WithUsername("commission"),
		tcpostgres.WithPassword("commission"),
		tcpostgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err)

	url, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := database.Connect(database.Config{URL: url}, nil)
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, migrate.RunMigrations(sqlDB, "postgres", nil))

	for _, strategy := range []string{StrategyScan, StrategyCounter} {
		t.Run(strategy, func(t *testing.T) {
			require.NoError(t, db.Exec("TRUNCATE event_outbox, case_timelines, cases, identifier_counters CASCADE").Error)

			const n = 20
			svc, _ := setupService(t, Config{
				DB:       db,
				Strategy: strategy,
				Retry: docnum.RetryConfig{
					MaxAttempts:     n,
					InitialInterval: time.Millisecond,
					MaxInterval:     20 * time.Millisecond,
				},
			})

			var person models.InsuredPerson
			if err := db.Where("national_id = ?", "0012345678").First(&person).Error; err != nil {
				person = *createPerson(t, svc, "0012345678", "12345")
			}

			var (
				wg      sync.WaitGroup
				mu      sync.Mutex
				numbers = make(map[string]bool)
			)
			for i := 0; i < n; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					c, err := svc.CreateCase(ctx, CaseInput{
						InsuredPersonID: person.ID,
						CommissionLevel: models.CommissionLevelProvincial,
					})
					if !assert.NoError(t, err) {
						return
					}
					mu.Lock()
					numbers[c.CaseNumber] = true
					mu.Unlock()
				}()
			}
			wg.Wait()

			require.Len(t, numbers, n)
			f := docnum.Format{Prefix: "1403-12345", Width: 5}
			for serial := uint64(1); serial <= n; serial++ {
				assert.True(t, numbers[f.Render(serial)], "missing %s", f.Render(serial))
			}

			stats, err := database.GetPoolStats(db)
			require.NoError(t, err)
			assert.LessOrEqual(t, stats.OpenConnections, 25)
		})
	}
}
