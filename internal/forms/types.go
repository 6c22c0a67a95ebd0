package forms

// Field type names as inferred by Normalize. These match the input types a
// discovered form descriptor may carry.
const (
	TypeText     = "text"
	TypeNumber   = "number"
	TypeDate     = "date"
	TypeSelect   = "select"
	TypeRadio    = "radio"
	TypeCheckbox = "checkbox"
	TypeTextarea = "textarea"
)

// DiscoveredField is a raw form-field descriptor produced by page-scraping
// collaborators. Options is left untyped because scraped descriptors arrive
// in three shapes: a string array, an array of value/label objects, or a
// plain key-value mapping.
type DiscoveredField struct {
	ID           string        `json:"id"`
	Type         string        `json:"type,omitempty"`
	Label        string        `json:"label,omitempty"`
	Required     bool          `json:"required,omitempty"`
	Hidden       bool          `json:"hidden,omitempty"`
	Options      any           `json:"options,omitempty"`
	PriceBearing bool          `json:"is_price_bearing,omitempty"`
	PriceOptions []PriceOption `json:"price_options,omitempty"`
}

// PriceOption carries the monetary delta attached to one selectable value.
// A nil CostCents means the price is unknown, which is distinct from zero.
type PriceOption struct {
	Value     string `json:"value"`
	Label     string `json:"label,omitempty"`
	CostCents *int64 `json:"cost_cents"`
}

// Option is a cleaned selectable choice on a normalized question.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Question is the canonical user-facing form question. Questions are
// regenerated on every Normalize call and carry no persisted identity.
type Question struct {
	ID          string   `json:"id"`
	Label       string   `json:"label"`
	Type        string   `json:"type"`
	Required    bool     `json:"required"`
	Options     []Option `json:"options,omitempty"`
	Description string   `json:"description,omitempty"`
	DependsOn   string   `json:"depends_on,omitempty"`
	ShowWhen    string   `json:"show_when,omitempty"`
}
