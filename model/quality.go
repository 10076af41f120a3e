package model

import "strings"

// QualityTier names a stream quality preference. Each tier maps to a fixed
// index into the quality-ordered URL array returned by the catalog.
type QualityTier string

const (
	QualityLow      QualityTier = "LOW"
	QualityMedium   QualityTier = "MEDIUM"
	QualityHigh     QualityTier = "HIGH"
	QualityLossless QualityTier = "LOSSLESS"
)

// Index returns the tier's position in the resolved stream URL array.
func (q QualityTier) Index() int {
	switch q {
	case QualityLow:
		return 0
	case QualityMedium:
		return 1
	case QualityHigh:
		return 2
	case QualityLossless:
		return 3
	default:
		return QualityMedium.Index()
	}
}

// ParseQualityTier normalizes a stored quality setting. Unset or
// unrecognized values fall back to MEDIUM.
func ParseQualityTier(s string) QualityTier {
	switch QualityTier(strings.ToUpper(strings.TrimSpace(s))) {
	case QualityLow:
		return QualityLow
	case QualityMedium:
		return QualityMedium
	case QualityHigh:
		return QualityHigh
	case QualityLossless:
		return QualityLossless
	default:
		return QualityMedium
	}
}
