package program

import "strings"

// Status is the closed availability set for a provider program. Anything a
// provider site reports outside this set collapses to StatusUnknown.
type Status string

const (
	StatusOpen     Status = "open"
	StatusWaitlist Status = "waitlist"
	StatusFull     Status = "full"
	StatusClosed   Status = "closed"
	StatusUnknown  Status = "unknown"
)

// Program is the canonical extracted record for one provider program.
// ProgramRef is the dedup key across one extraction batch.
type Program struct {
	ID          string `json:"id,omitempty"`
	ProgramRef  string `json:"program_ref"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Schedule    string `json:"schedule,omitempty"`
	AgeRange    string `json:"age_range,omitempty"`
	SkillLevel  string `json:"skill_level,omitempty"`
	Price       string `json:"price,omitempty"`
	ActualID    string `json:"actual_id,omitempty"`
	OrgRef      string `json:"org_ref,omitempty"`
	Status      Status `json:"status"`
	CTAHref     string `json:"cta_href,omitempty"`
}

// NormalizeStatus maps an arbitrary status string into the closed set.
// Provider sites phrase availability inconsistently, so a handful of common
// synonyms are folded in before falling back to StatusUnknown.
func NormalizeStatus(raw string) Status {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "open", "available", "openings", "register", "registration open":
		return StatusOpen
	case "waitlist", "wait list", "waitlisted", "waitlist only":
		return StatusWaitlist
	case "full", "sold out", "no openings":
		return StatusFull
	case "closed", "registration closed", "ended":
		return StatusClosed
	default:
		return StatusUnknown
	}
}

// ValidateAndDedupe drops records without a usable title, normalizes each
// record's status into the closed set, and deduplicates by ProgramRef
// keeping the first occurrence in input order.
func ValidateAndDedupe(items []Program) []Program {
	seen := make(map[string]struct{}, len(items))
	out := make([]Program, 0, len(items))

	for _, item := range items {
		title := strings.TrimSpace(item.Title)
		if title == "" {
			continue
		}
		item.Title = title
		item.Status = NormalizeStatus(string(item.Status))

		ref := strings.TrimSpace(item.ProgramRef)
		if ref != "" {
			if _, dup := seen[ref]; dup {
				continue
			}
			seen[ref] = struct{}{}
		}
		item.ProgramRef = ref
		out = append(out, item)
	}
	return out
}
