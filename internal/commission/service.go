// Package commission implements the creation workflows of the medical
// commission: registering insured persons, filing cases and social work
// cases, and issuing referral letters. Every document number is issued by
// pkg/docnum and inserted together with its owning row.
package commission

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
	"gorm.io/gorm"

	"github.com/bank-melli/commission/pkg/docnum"
	"github.com/bank-melli/commission/pkg/models"
	"github.com/bank-melli/commission/pkg/numbering"
)

// Allocation strategies.
const (
	StrategyScan    = "scan"
	StrategyCounter = "counter"
)

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput wraps validation failures of caller-supplied fields.
	ErrInvalidInput = errors.New("invalid input")

	// ErrAssessmentRequired is returned when a referral letter is requested
	// for a social work case that has no assessment report.
	ErrAssessmentRequired = errors.New("assessment report must be recorded before referral")

	// ErrInvalidState is returned when a social work case cannot make the
	// requested transition.
	ErrInvalidState = errors.New("invalid case state")
)

// Config configures a Service.
type Config struct {
	DB *gorm.DB

	// Schemes defaults to numbering.DefaultSchemes().
	Schemes *numbering.Schemes

	// Strategy is StrategyScan (default) or StrategyCounter.
	Strategy string

	Retry docnum.RetryConfig

	// Now defaults to time.Now.
	Now func() time.Time

	Logger hclog.Logger
}

// Service runs the commission workflows.
type Service struct {
	db      *gorm.DB
	schemes numbering.Schemes
	now     func() time.Time
	logger  hclog.Logger

	cases      *docnum.Issuer
	socialWork *docnum.Issuer
	referrals  *docnum.Issuer

	// Previews scan the owning tables whatever the strategy, so they show
	// the next free number without touching counters.
	casePreview       *docnum.Generator
	socialWorkPreview *docnum.Generator
	referralPreview   *docnum.Generator
}

// New creates a Service.
func New(cfg Config) (*Service, error) {
	if cfg.DB == nil {
		return nil, fmt.Errorf("database is required")
	}

	schemes := numbering.DefaultSchemes()
	if cfg.Schemes != nil {
		schemes = *cfg.Schemes
	}
	for _, s := range []numbering.Scheme{schemes.Case, schemes.SocialWorkCase, schemes.ReferralLetter} {
		if err := s.Validate(); err != nil {
			return nil, err
		}
	}

	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = hclog.NewNullLogger()
	}
	if cfg.Strategy == "" {
		cfg.Strategy = StrategyScan
	}

	logger := cfg.Logger.Named("commission")
	numLog := cfg.Logger.Named("docnum")

	newIssuer := func(table, column string) (*docnum.Issuer, error) {
		store := docnum.NewGormStore(cfg.DB, table, column)

		var alloc docnum.Allocator
		switch cfg.Strategy {
		case StrategyScan:
			alloc = docnum.NewGenerator(store, numLog.With("table", table))
		case StrategyCounter:
			alloc = docnum.NewCounterAllocator(cfg.DB, store, numLog.With("table", table))
		default:
			return nil, fmt.Errorf("unknown allocation strategy %q (supported: scan, counter)", cfg.Strategy)
		}
		return docnum.NewIssuer(alloc, cfg.Retry, numLog.With("table", table)), nil
	}

	newPreview := func(table, column string) *docnum.Generator {
		return docnum.NewGenerator(docnum.NewGormStore(cfg.DB, table, column), numLog.With("table", table))
	}

	s := &Service{
		db:                cfg.DB,
		schemes:           schemes,
		now:               cfg.Now,
		logger:            logger,
		casePreview:       newPreview(models.Case{}.TableName(), "case_number"),
		socialWorkPreview: newPreview(models.SocialWorkCase{}.TableName(), "case_number"),
		referralPreview:   newPreview(models.ReferralLetter{}.TableName(), "letter_number"),
	}

	var err error
	if s.cases, err = newIssuer(models.Case{}.TableName(), "case_number"); err != nil {
		return nil, err
	}
	if s.socialWork, err = newIssuer(models.SocialWorkCase{}.TableName(), "case_number"); err != nil {
		return nil, err
	}
	if s.referrals, err = newIssuer(models.ReferralLetter{}.TableName(), "letter_number"); err != nil {
		return nil, err
	}

	logger.Debug("commission service configured",
		"strategy", cfg.Strategy,
		"max_attempts", s.cases.Attempts(),
	)
	return s, nil
}

// notFound maps gorm.ErrRecordNotFound to ErrNotFound.
func notFound(err error, what string, id uuid.UUID) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %s: %w", what, id, ErrNotFound)
	}
	return fmt.Errorf("error loading %s %s: %w", what, id, err)
}

func invalid(err error) error {
	return fmt.Errorf("%w: %w", ErrInvalidInput, err)
}

// DB returns the service's database handle.
func (s *Service) DB() *gorm.DB {
	return s.db
}

// Ping checks database connectivity.
func (s *Service) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
