package models

import (
	"strings"

	dErrors "trustgate/pkg/domain-errors"
)

// Category is one member of the closed compliance taxonomy.
//
// Invariants:
//   - Exactly the seven values below exist
//   - CategoryCount is the scoring denominator; it is derived from the
//     taxonomy itself and never read from configuration
//
// Adding a member changes every account's score and is a versioned change.
type Category string

const (
	CategoryBusinessLicense   Category = "BUSINESS_LICENSE"
	CategoryPropertyOwnership Category = "PROPERTY_OWNERSHIP"
	CategoryAgentVerify       Category = "AGENT_VERIFY"
	CategoryTaxCompliance     Category = "TAX_COMPLIANCE"
	CategoryAddressProof      Category = "ADDRESS_PROOF"
	CategoryBackgroundCheck   Category = "BACKGROUND_CHECK"
	CategoryLegalMatters      Category = "LEGAL_MATTERS"
)

// taxonomy is the single source of truth for valid categories, in display order.
var taxonomy = [...]Category{
	CategoryBusinessLicense,
	CategoryPropertyOwnership,
	CategoryAgentVerify,
	CategoryTaxCompliance,
	CategoryAddressProof,
	CategoryBackgroundCheck,
	CategoryLegalMatters,
}

// CategoryCount is the cardinality of the taxonomy.
const CategoryCount = len(taxonomy)

// Categories returns the taxonomy in display order.
func Categories() []Category {
	out := make([]Category, CategoryCount)
	copy(out, taxonomy[:])
	return out
}

// ParseCategory validates external input against the taxonomy.
// Matching is case-insensitive; surrounding whitespace is ignored.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToUpper(strings.TrimSpace(s)))
	if !c.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidCategory, "unknown verification category: "+s)
	}
	return c, nil
}

// IsValid reports whether c is a taxonomy member.
func (c Category) IsValid() bool {
	for _, t := range taxonomy {
		if c == t {
			return true
		}
	}
	return false
}

func (c Category) String() string {
	return string(c)
}
