package models

// Category classifies a user idea into a fixed set of app domains.
type Category string

const (
	CategoryProductivity  Category = "productivity"
	CategoryFinance       Category = "finance"
	CategoryHealth        Category = "health"
	CategoryEducation     Category = "education"
	CategorySocial        Category = "social"
	CategoryEcommerce     Category = "ecommerce"
	CategoryEntertainment Category = "entertainment"
	CategoryOther         Category = "other"
)

// Complexity is the inferred build complexity of an idea.
type Complexity string

const (
	ComplexitySimple   Complexity = "simple"
	ComplexityModerate Complexity = "moderate"
	ComplexityComplex  Complexity = "complex"
)

// Intent is the structured representation of a user's free-text idea.
// It is created once per generation request and never mutated; the schema
// inference and code generation stages consume it.
type Intent struct {
	Category       Category   `json:"category"`
	PrimaryPurpose string     `json:"primary_purpose"`
	TargetUsers    []string   `json:"target_users"`
	KeyFeatures    []string   `json:"key_features"`
	Complexity     Complexity `json:"complexity"`
}

// ValidCategory reports whether c is one of the known categories.
func ValidCategory(c Category) bool {
	switch c {
	case CategoryProductivity, CategoryFinance, CategoryHealth, CategoryEducation,
		CategorySocial, CategoryEcommerce, CategoryEntertainment, CategoryOther:
		return true
	}
	return false
}

// NormalizeIntent coerces unknown enum values to safe defaults so an
// off-dictionary LLM response never produces an invalid Intent.
func NormalizeIntent(in *Intent) *Intent {
	if in == nil {
		return &Intent{Category: CategoryOther, Complexity: ComplexitySimple}
	}
	out := *in
	if !ValidCategory(out.Category) {
		out.Category = CategoryOther
	}
	switch out.Complexity {
	case ComplexitySimple, ComplexityModerate, ComplexityComplex:
	default:
		out.Complexity = ComplexitySimple
	}
	return &out
}
