package docnum

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/hashicorp/go-hclog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const tracerName = "github.com/bank-melli/commission/pkg/docnum"

// RetryConfig bounds the allocate+insert retries of an Issuer.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts (default: 5).
	MaxAttempts int

	// InitialInterval is the wait after the first conflict (default: 10ms).
	InitialInterval time.Duration

	// MaxInterval caps the wait between attempts (default: 250ms).
	MaxInterval time.Duration
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:     5,
		InitialInterval: 10 * time.Millisecond,
		MaxInterval:     250 * time.Millisecond,
	}
}

func (c RetryConfig) withDefaults() RetryConfig {
	d := DefaultRetryConfig()
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = d.MaxAttempts
	}
	if c.InitialInterval <= 0 {
		c.InitialInterval = d.InitialInterval
	}
	if c.MaxInterval <= 0 {
		c.MaxInterval = d.MaxInterval
	}
	return c
}

// InsertFunc persists the owning row carrying id. It must return the store's
// error unchanged (or wrapped) so uniqueness violations can be recognized.
type InsertFunc func(ctx context.Context, id string) error

// Issuer couples an Allocator with the insert of the owning row and retries
// the pair when the insert loses a race for the identifier.
type Issuer struct {
	allocator Allocator
	retry     RetryConfig
	logger    hclog.Logger
}

// NewIssuer creates an issuer. Zero fields of retry take their defaults.
func NewIssuer(allocator Allocator, retry RetryConfig, logger hclog.Logger) *Issuer {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Issuer{
		allocator: allocator,
		retry:     retry.withDefaults(),
		logger:    logger.Named("issuer"),
	}
}

// Next computes the next identifier of the scope without persisting anything.
func (i *Issuer) Next(ctx context.Context, f Format) (string, error) {
	return i.allocator.Next(ctx, f)
}

// ScopeFunc resolves the format of the scope at the time of an attempt.
type ScopeFunc func() (Format, error)

// Issue allocates an identifier for the scope and hands it to insert. When
// insert fails with a uniqueness violation the scope is re-read and the pair
// is attempted again, up to MaxAttempts. Any other error ends the operation,
// as does a violation insert marks with Unrelated.
//
// The returned identifier is the one insert accepted.
func (i *Issuer) Issue(ctx context.Context, f Format, insert InsertFunc) (string, error) {
	return i.IssueScoped(ctx, func() (Format, error) { return f, nil }, insert)
}

// IssueScoped is Issue for scopes that depend on the time of the attempt,
// e.g. a fiscal year. scope is called again before every attempt, so a retry
// that crosses a year boundary takes its identifier from the new year.
func (i *Issuer) IssueScoped(ctx context.Context, scope ScopeFunc, insert InsertFunc) (string, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "docnum.Issue")
	defer span.End()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = i.retry.InitialInterval
	b.MaxInterval = i.retry.MaxInterval
	b.MaxElapsedTime = 0
	b.Reset()

	var (
		issued   string
		prefix   string
		attempts int
	)
	operation := func() error {
		attempts++

		f, err := scope()
		if err != nil {
			return backoff.Permanent(err)
		}
		prefix = f.ScopePrefix()
		span.SetAttributes(attribute.String("docnum.scope", prefix))

		id, err := i.allocator.Next(ctx, f)
		if err != nil {
			return backoff.Permanent(err)
		}

		if err := insert(ctx, id); err != nil {
			if IsUniqueViolation(err) && !IsUnrelated(err) {
				i.logger.Debug("identifier taken by a concurrent insert",
					"prefix", prefix,
					"identifier", id,
					"attempt", attempts,
				)
				return err
			}
			return backoff.Permanent(err)
		}

		issued = id
		return nil
	}

	err := backoff.Retry(operation, backoff.WithContext(
		backoff.WithMaxRetries(b, uint64(i.retry.MaxAttempts-1)), ctx))
	span.SetAttributes(attribute.Int("docnum.attempts", attempts))

	if err != nil {
		if IsUniqueViolation(err) && !IsUnrelated(err) {
			err = &ConflictError{Prefix: prefix, Attempts: attempts, Err: err}
			i.logger.Warn("identifier retries exhausted", "prefix", prefix, "attempts", attempts)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	if attempts > 1 {
		i.logger.Info("issued identifier after conflicts",
			"identifier", issued,
			"attempts", attempts,
		)
	}
	return issued, nil
}

// Attempts reports the configured attempt bound.
func (i *Issuer) Attempts() int {
	return i.retry.MaxAttempts
}

// IsRetryable reports whether err from Issue is transient.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrUniquenessConflict)
}
