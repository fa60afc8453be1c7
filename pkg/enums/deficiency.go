package enums

import "fmt"

// DeficiencyDependent names what a deficiency primarily hangs off.
type DeficiencyDependent string

const (
	DeficiencyDependentCadet   DeficiencyDependent = "cadet"
	DeficiencyDependentUniform DeficiencyDependent = "uniform"
)

// DeficiencyRelation names the optional secondary reference of a deficiency.
type DeficiencyRelation string

const (
	DeficiencyRelationUniform  DeficiencyRelation = "uniform"
	DeficiencyRelationMaterial DeficiencyRelation = "material"
)

var validDeficiencyDependents = []DeficiencyDependent{
	DeficiencyDependentCadet,
	DeficiencyDependentUniform,
}

var validDeficiencyRelations = []DeficiencyRelation{
	DeficiencyRelationUniform,
	DeficiencyRelationMaterial,
}

// String implements fmt.Stringer.
func (d DeficiencyDependent) String() string {
	return string(d)
}

// IsValid reports whether the value is a known DeficiencyDependent.
func (d DeficiencyDependent) IsValid() bool {
	for _, candidate := range validDeficiencyDependents {
		if candidate == d {
			return true
		}
	}
	return false
}

// String implements fmt.Stringer.
func (r DeficiencyRelation) String() string {
	return string(r)
}

// IsValid reports whether the value is a known DeficiencyRelation.
func (r DeficiencyRelation) IsValid() bool {
	for _, candidate := range validDeficiencyRelations {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseDeficiencyDependent converts raw input into a DeficiencyDependent.
func ParseDeficiencyDependent(value string) (DeficiencyDependent, error) {
	for _, candidate := range validDeficiencyDependents {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid deficiency dependent %q", value)
}

// ParseDeficiencyRelation converts raw input into a nullable DeficiencyRelation.
// An empty string maps to nil.
func ParseDeficiencyRelation(value string) (*DeficiencyRelation, error) {
	if value == "" {
		return nil, nil
	}
	for _, candidate := range validDeficiencyRelations {
		if string(candidate) == value {
			rel := candidate
			return &rel, nil
		}
	}
	return nil, fmt.Errorf("invalid deficiency relation %q", value)
}
