// Package docnum issues human-readable, sequential document numbers such as
// case numbers ("1403-12345-00001"), referral letter numbers
// ("REF-2025-00005") and social work case numbers ("MC-SW-2025-0001").
//
// # Core Concepts
//
//  1. Scope: the business attributes that define an independent sequence
//     (fiscal year plus personnel code, or prefix plus calendar year). The scope
//     is encoded positionally in the identifier itself.
//
//  2. Serial: the position of an identifier within its scope, starting at 1.
//
//  3. Format: the rendered scope prefix, the separator and the zero-padding
//     width of the serial.
//
// # Allocation Strategies
//
// Generator scans the owning identifier column for the highest value with the
// scope prefix and returns the next serial. CounterAllocator keeps a row per
// scope in identifier_counters and increments it atomically.
//
// Neither strategy is atomic with the insert of the owning row. The unique
// constraint on the identifier column is the authoritative guard, and Issuer
// retries allocate+insert when the insert reports a uniqueness violation:
//
//	issuer := docnum.NewIssuer(docnum.NewGenerator(store, log), docnum.RetryConfig{}, log)
//	number, err := issuer.Issue(ctx, format, func(ctx context.Context, number string) error {
//	    c.CaseNumber = number
//	    return db.WithContext(ctx).Create(c).Error
//	})
//
// Scopes that follow the clock, such as a fiscal year, go through IssueScoped
// so every attempt resolves its scope afresh. Writes of other rows inside the
// insert are wrapped with Unrelated; their uniqueness violations are not
// identifier collisions and end the operation at once.
//
// # Errors
//
//   - ErrScopeResolution: the scope could not be built (parent entity missing).
//   - ErrMalformedIdentifier: a stored identifier in the scope has a trailing
//     segment that is not an unsigned integer. The sequence is never restarted.
//   - ErrUniquenessConflict: every attempt collided with a concurrent insert.
package docnum
