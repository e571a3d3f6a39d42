package model

// EntityType identifies the kind of meaning a text fragment carries.
type EntityType string

const (
	EntityProduct  EntityType = "product"
	EntityColor    EntityType = "color"
	EntitySize     EntityType = "size"
	EntityQuantity EntityType = "quantity"
	EntityPrice    EntityType = "price"
	EntityMaterial EntityType = "material"
	EntityBrand    EntityType = "brand"
)

// EntitySource records which extractor produced an entity.
type EntitySource string

const (
	SourceModel   EntitySource = "model"
	SourcePattern EntitySource = "pattern"
)

// Entity is a typed fragment extracted from command text.
// ResolvedValue is populated only by the entity resolver.
type Entity struct {
	Type          EntityType   `json:"type"`
	RawValue      string       `json:"raw_value"`
	ResolvedValue *string      `json:"resolved_value,omitempty"`
	Confidence    float64      `json:"confidence"`
	Start         int          `json:"start"`
	End           int          `json:"end"`
	Source        EntitySource `json:"source"`
}

// Overlaps reports whether two entities cover intersecting spans.
func (e Entity) Overlaps(other Entity) bool {
	return e.Start < other.End && other.Start < e.End
}

// Value returns the resolved value when set, the raw value otherwise.
func (e Entity) Value() string {
	if e.ResolvedValue != nil {
		return *e.ResolvedValue
	}
	return e.RawValue
}

// IntentType is the classified shopping action of a turn.
type IntentType string

const (
	IntentAdd      IntentType = "add"
	IntentRemove   IntentType = "remove"
	IntentSearch   IntentType = "search"
	IntentCheckout IntentType = "checkout"
	IntentHelp     IntentType = "help"
	IntentCancel   IntentType = "cancel"
	IntentUnknown  IntentType = "unknown"
)

// Intent is the classified action plus the entities that parameterize it.
type Intent struct {
	Type       IntentType `json:"type"`
	Confidence float64    `json:"confidence"`
	Entities   []Entity   `json:"entities"`
}

// FirstEntity returns the first entity of the given type, or nil.
func (i Intent) FirstEntity(t EntityType) *Entity {
	for idx := range i.Entities {
		if i.Entities[idx].Type == t {
			return &i.Entities[idx]
		}
	}
	return nil
}
