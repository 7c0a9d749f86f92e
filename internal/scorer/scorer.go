// Package scorer computes the 0-100 legal relevance score from fixed
// Persian keyword tables. Scoring is fully deterministic: identical text
// always produces identical scores, and ties between categories resolve to
// the category declared first.
package scorer

import "strings"

// Category pairs a name with its keyword set. Declaration order in the
// table is significant: it is the tie-break order for the dominant category.
type Category struct {
	Name     string   `mapstructure:"name" json:"name"`
	Keywords []string `mapstructure:"keywords" json:"keywords"`
}

// DefaultCategories is the canonical category table. The keyword lists are
// versioned configuration data; deployments may override them via config.
func DefaultCategories() []Category {
	return []Category{
		{Name: "قانونی", Keywords: []string{"قانون", "ماده", "تبصره", "آیین‌نامه", "مصوبه", "لایحه"}},
		{Name: "اداری", Keywords: []string{"اداره", "سازمان", "وزارت", "بخشنامه", "دستورالعمل"}},
		{Name: "قضایی", Keywords: []string{"دادگاه", "قاضی", "رأی", "حکم", "دادخواست", "شعبه"}},
		{Name: "مالی", Keywords: []string{"مالیات", "بودجه", "عوارض", "جریمه"}},
		{Name: "خانواده", Keywords: []string{"ازدواج", "طلاق", "مهریه", "نفقه", "حضانت"}},
		{Name: "کیفری", Keywords: []string{"جرم", "مجازات", "حبس", "تعزیر"}},
	}
}

// Scorer counts keyword occurrences per category.
type Scorer struct {
	categories []Category
}

// New builds a Scorer; nil categories means DefaultCategories.
func New(categories []Category) *Scorer {
	if len(categories) == 0 {
		categories = DefaultCategories()
	}
	return &Scorer{categories: categories}
}

// Score returns per-category occurrence counts and the overall relevance:
// min(100, 10 x total occurrences). The formula is load-bearing; scores
// must stay comparable across runs.
func (s *Scorer) Score(text string) (map[string]int, int) {
	scores := make(map[string]int, len(s.categories))
	total := 0
	for _, cat := range s.categories {
		n := 0
		for _, kw := range cat.Keywords {
			n += strings.Count(text, kw)
		}
		scores[cat.Name] = n
		total += n
	}
	overall := total * 10
	if overall > 100 {
		overall = 100
	}
	return scores, overall
}

// Dominant returns the highest-scoring category, breaking ties in table
// declaration order (never map iteration order). Empty input or an all-zero
// distribution yields "".
func (s *Scorer) Dominant(scores map[string]int) string {
	best := ""
	bestScore := 0
	for _, cat := range s.categories {
		if n := scores[cat.Name]; n > bestScore {
			best = cat.Name
			bestScore = n
		}
	}
	return best
}
