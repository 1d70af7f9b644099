// Package eligibility decides which resident classifications a distribution batch is offered to.
package eligibility

import "github.com/civicgrid/resident-portal/pkg/enums"

var knownTargets = map[enums.Classification][]enums.Classification{
	enums.ClassificationBoth: {enums.ClassificationSC, enums.ClassificationPWD, enums.ClassificationBoth},
	enums.ClassificationSC:   {enums.ClassificationSC, enums.ClassificationBoth},
	enums.ClassificationPWD:  {enums.ClassificationPWD, enums.ClassificationBoth},
}

// IsEligible reports whether a resident with residentClass may claim from a
// batch targeted at targetClass. Custom targets only match the same label.
func IsEligible(residentClass, targetClass enums.Classification) bool {
	for _, class := range EligibleClasses(targetClass) {
		if class == residentClass {
			return true
		}
	}
	return false
}

// EligibleClasses returns every resident classification that satisfies targetClass.
// The result feeds IN filters so roster and counter queries share one rule table.
func EligibleClasses(targetClass enums.Classification) []enums.Classification {
	if classes, ok := knownTargets[targetClass]; ok {
		out := make([]enums.Classification, len(classes))
		copy(out, classes)
		return out
	}
	if !targetClass.IsValid() {
		return nil
	}
	return []enums.Classification{targetClass}
}

// SatisfiedTargets returns the well-known target classes a resident qualifies for.
// Custom targets are matched by label equality, so the resident's own label is included.
func SatisfiedTargets(residentClass enums.Classification) []enums.Classification {
	out := []enums.Classification{}
	for _, target := range []enums.Classification{enums.ClassificationSC, enums.ClassificationPWD, enums.ClassificationBoth} {
		if IsEligible(residentClass, target) {
			out = append(out, target)
		}
	}
	if !residentClass.IsKnown() && residentClass.IsValid() {
		out = append(out, residentClass)
	}
	return out
}
