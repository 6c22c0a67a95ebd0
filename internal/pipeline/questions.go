package pipeline

import (
	"github.com/signupassist/provider-pipeline/internal/forms"
)

// BuildQuestions collapses a raw discovered-field dump into the ordered
// question list a registration UI renders.
func (s *Service) BuildQuestions(fields []forms.DiscoveredField) []forms.Question {
	return forms.Normalize(fields)
}

// DefaultAnswers picks a safe prefill for every answerable choice field,
// preferring options that do not add cost.
func (s *Service) DefaultAnswers(fields []forms.DiscoveredField) map[string]string {
	answers := make(map[string]string)
	for _, field := range fields {
		if choice := forms.ChooseDefaultAnswer(field, ""); choice != "" {
			answers[field.ID] = choice
		}
	}
	return answers
}

// QuoteTotal prices a prospective registration: base price plus whatever
// the given answers add through price-bearing options. Unknown option costs
// and unanswered fields add nothing.
func (s *Service) QuoteTotal(basePriceCents *int64, fields []forms.DiscoveredField, answers map[string]any) int64 {
	return forms.ComputeTotalCents(basePriceCents, fields, answers)
}
