package types

import "strings"

type PurchaseType string

const (
	PurchaseNone   PurchaseType = ""
	PurchaseAny    PurchaseType = "any"
	PurchaseRecent PurchaseType = "recent"
)

func ParsePurchaseType(s string) PurchaseType {
	switch PurchaseType(strings.ToLower(strings.TrimSpace(s))) {
	case PurchaseAny:
		return PurchaseAny
	case PurchaseRecent:
		return PurchaseRecent
	}
	return PurchaseNone
}

func (p *PurchaseType) UnmarshalText(text []byte) error {
	*p = ParsePurchaseType(string(text))
	return nil
}

type RfmMode string

const (
	RfmCustomized RfmMode = "customized"
	RfmSegmented  RfmMode = "segmented"
)

// ParseRfmMode maps anything but "segmented" to customized.
func ParseRfmMode(s string) RfmMode {
	if RfmMode(strings.ToLower(strings.TrimSpace(s))) == RfmSegmented {
		return RfmSegmented
	}
	return RfmCustomized
}

func (m *RfmMode) UnmarshalText(text []byte) error {
	*m = ParseRfmMode(string(text))
	return nil
}

type AudienceMode string

const (
	AudienceCustomerBase AudienceMode = "Customer Base"
	AudienceUpload       AudienceMode = "upload"
)

// ParseAudienceMode maps anything but "upload" to the structured customer
// base mode.
func ParseAudienceMode(s string) AudienceMode {
	if strings.EqualFold(strings.TrimSpace(s), string(AudienceUpload)) {
		return AudienceUpload
	}
	return AudienceCustomerBase
}

func (m *AudienceMode) UnmarshalText(text []byte) error {
	*m = ParseAudienceMode(string(text))
	return nil
}

func (m AudienceMode) Structured() bool {
	return m != AudienceUpload
}

type RfmOperator string

const (
	OpNone    RfmOperator = ""
	OpEqual   RfmOperator = "="
	OpGte     RfmOperator = ">="
	OpLte     RfmOperator = "<="
	OpBetween RfmOperator = "between"
)

func ParseRfmOperator(s string) RfmOperator {
	switch op := RfmOperator(strings.ToLower(strings.TrimSpace(s))); op {
	case OpEqual, OpGte, OpLte, OpBetween:
		return op
	}
	return OpNone
}

func (o *RfmOperator) UnmarshalText(text []byte) error {
	*o = ParseRfmOperator(string(text))
	return nil
}

// RfmCriterion is one of the recency, frequency or monetary thresholds.
type RfmCriterion struct {
	Op  RfmOperator `json:"op,omitempty"`
	Min *float64    `json:"min,omitempty"`
	Max *float64    `json:"max,omitempty"`
}

// UpperBound collapses the range to the min value unless the operator is
// between.
func (c RfmCriterion) UpperBound() *float64 {
	if c.Op == OpBetween {
		return c.Max
	}
	return c.Min
}

type Rfm struct {
	Recency   RfmCriterion `json:"recency"`
	Frequency RfmCriterion `json:"frequency"`
	Monetary  RfmCriterion `json:"monetary"`
}
