// Package numbering defines the document number schemes of the commission:
// which business attributes form a scope and how its identifiers look.
package numbering

import (
	"fmt"
	"strings"
	"time"

	"github.com/bank-melli/commission/pkg/docnum"
	"github.com/bank-melli/commission/pkg/fiscal"
	"github.com/bank-melli/commission/pkg/textnorm"
)

// Scheme names.
const (
	SchemeCase           = "case"
	SchemeReferralLetter = "referral_letter"
	SchemeSocialWorkCase = "social_work_case"
)

// Scheme renders the scope of one kind of document number:
//
//	[Prefix] Separator Year [Separator code...] Separator Serial
type Scheme struct {
	Name      string
	Prefix    string
	Calendar  fiscal.Calendar
	Separator string
	Width     int
}

// Schemes holds the scheme of each numbered entity.
type Schemes struct {
	Case           Scheme
	ReferralLetter Scheme
	SocialWorkCase Scheme
}

// DefaultSchemes returns the institutional defaults:
//
//	case:             1403-12345-00001  (Jalali fiscal year, personnel code)
//	referral letter:  REF-2025-00001
//	social work case: MC-SW-2025-0001
func DefaultSchemes() Schemes {
	return Schemes{
		Case: Scheme{
			Name:     SchemeCase,
			Calendar: fiscal.Jalali{},
			Width:    5,
		},
		ReferralLetter: Scheme{
			Name:     SchemeReferralLetter,
			Prefix:   "REF",
			Calendar: fiscal.Gregorian{},
			Width:    5,
		},
		SocialWorkCase: Scheme{
			Name:     SchemeSocialWorkCase,
			Prefix:   "MC-SW",
			Calendar: fiscal.Gregorian{},
			Width:    4,
		},
	}
}

func (s Scheme) separator() string {
	if s.Separator == "" {
		return docnum.DefaultSeparator
	}
	return s.Separator
}

// Format returns the identifier format of the scope the scheme derives from
// the instant at and the given codes (e.g. a personnel code).
//
// Codes are normalized first. An empty code, or one containing the
// separator, cannot form a scope: the serial would no longer be the trailing
// segment of the identifier.
func (s Scheme) Format(at time.Time, codes ...string) (docnum.Format, error) {
	if s.Calendar == nil {
		return docnum.Format{}, fmt.Errorf("scheme %q has no calendar", s.Name)
	}

	sep := s.separator()
	parts := make([]string, 0, len(codes)+2)
	if s.Prefix != "" {
		parts = append(parts, s.Prefix)
	}
	parts = append(parts, s.Calendar.Year(at))

	for _, code := range codes {
		code = textnorm.Code(code)
		if code == "" {
			return docnum.Format{}, fmt.Errorf("%w: empty scope code for %s number",
				docnum.ErrScopeResolution, s.Name)
		}
		if strings.Contains(code, sep) {
			return docnum.Format{}, fmt.Errorf("%w: scope code %q contains separator %q",
				docnum.ErrScopeResolution, code, sep)
		}
		parts = append(parts, code)
	}

	return docnum.Format{
		Prefix:    strings.Join(parts, sep),
		Separator: sep,
		Width:     s.Width,
	}, nil
}

// Validate checks that the scheme can render identifiers.
func (s Scheme) Validate() error {
	if s.Calendar == nil {
		return fmt.Errorf("scheme %q: calendar is required", s.Name)
	}
	if s.Width < 1 || s.Width > 18 {
		return fmt.Errorf("scheme %q: width must be between 1 and 18, got %d", s.Name, s.Width)
	}
	if s.Prefix != "" && strings.Contains(s.Prefix, "%") {
		return fmt.Errorf("scheme %q: prefix must not contain %%", s.Name)
	}
	// An empty separator selects the default. Anything else must stay out of
	// the serial: a digit would be read back as part of it.
	if s.Separator != "" {
		if strings.TrimSpace(s.Separator) == "" {
			return fmt.Errorf("scheme %q: separator must not be blank", s.Name)
		}
		if strings.ContainsAny(s.Separator, "0123456789") {
			return fmt.Errorf("scheme %q: separator %q must not contain digits", s.Name, s.Separator)
		}
	}
	return nil
}
