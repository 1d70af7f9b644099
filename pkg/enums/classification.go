package enums

import "strings"

// Classification is the eligibility category shared by residents and batch targets.
// SC, PWD and BOTH are the well-known classes; batches may also target any custom label,
// which only matches residents carrying exactly the same label.
type Classification string

const (
	ClassificationSC   Classification = "SC"
	ClassificationPWD  Classification = "PWD"
	ClassificationBoth Classification = "BOTH"
)

var knownClassifications = []Classification{
	ClassificationSC,
	ClassificationPWD,
	ClassificationBoth,
}

// String implements fmt.Stringer.
func (c Classification) String() string {
	return string(c)
}

// IsKnown reports whether the value is one of SC, PWD or BOTH.
func (c Classification) IsKnown() bool {
	for _, candidate := range knownClassifications {
		if candidate == c {
			return true
		}
	}
	return false
}

// IsValid reports whether the value can be stored as a classification.
func (c Classification) IsValid() bool {
	return strings.TrimSpace(string(c)) != ""
}

// ParseClassification trims the input and upper-cases the well-known classes.
// Custom labels are kept verbatim.
func ParseClassification(value string) Classification {
	trimmed := strings.TrimSpace(value)
	upper := Classification(strings.ToUpper(trimmed))
	if upper.IsKnown() {
		return upper
	}
	return Classification(trimmed)
}
