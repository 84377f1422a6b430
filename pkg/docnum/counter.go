package docnum

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-hclog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/bank-melli/commission/pkg/models"
)

// CounterAllocator allocates identifiers from a counter row per scope in the
// identifier_counters table. The increment happens inside a transaction, so
// concurrent callers of the same scope never receive the same serial.
//
// The first allocation of a scope seeds the counter from the highest
// identifier already stored in the owning column, so switching from scanning
// to counters does not restart existing sequences.
type CounterAllocator struct {
	db     *gorm.DB
	seed   Store
	logger hclog.Logger
}

// NewCounterAllocator creates a counter-backed allocator. seed is scanned once
// per scope, when its counter row does not exist yet.
func NewCounterAllocator(db *gorm.DB, seed Store, logger hclog.Logger) *CounterAllocator {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &CounterAllocator{
		db:     db,
		seed:   seed,
		logger: logger.Named("counter"),
	}
}

// Next implements Allocator.
func (a *CounterAllocator) Next(ctx context.Context, f Format) (string, error) {
	if err := f.Validate(); err != nil {
		return "", err
	}

	scope := f.ScopePrefix()
	if err := a.ensureCounter(ctx, f); err != nil {
		return "", err
	}

	var counter models.IdentifierCounter
	err := a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.IdentifierCounter{}).
			Where("scope = ?", scope).
			Updates(map[string]interface{}{
				"last_serial": gorm.Expr("last_serial + ?", 1),
				"updated_at":  time.Now(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("counter for scope %q disappeared", scope)
		}

		return tx.Where("scope = ?", scope).First(&counter).Error
	})
	if err != nil {
		return "", fmt.Errorf("error incrementing counter for scope %q: %w", scope, err)
	}

	id := f.Render(counter.LastSerial)
	a.logger.Trace("allocated identifier", "prefix", scope, "serial", counter.LastSerial, "identifier", id)
	return id, nil
}

// ensureCounter creates the counter row for the scope if it is missing.
func (a *CounterAllocator) ensureCounter(ctx context.Context, f Format) error {
	scope := f.ScopePrefix()

	var existing []models.IdentifierCounter
	if err := a.db.WithContext(ctx).
		Where("scope = ?", scope).
		Limit(1).
		Find(&existing).
		Error; err != nil {
		return fmt.Errorf("error looking up counter for scope %q: %w", scope, err)
	}
	if len(existing) > 0 {
		return nil
	}

	var last uint64
	if a.seed != nil {
		latest, found, err := a.seed.LatestWithPrefix(ctx, scope)
		if err != nil {
			return err
		}
		if found {
			if last, err = f.Serial(latest); err != nil {
				return err
			}
		}
	}

	// Concurrent seeders compute the same value from the same column; the
	// first insert wins and the rest are no-ops.
	if err := a.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.IdentifierCounter{
			Scope:      scope,
			LastSerial: last,
		}).Error; err != nil {
		return fmt.Errorf("error seeding counter for scope %q: %w", scope, err)
	}

	a.logger.Debug("seeded identifier counter", "scope", scope, "last_serial", last)
	return nil
}
