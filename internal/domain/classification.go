package domain

// ClassificationKind names a registry collection referenced by incidents.
type ClassificationKind string

const (
	KindWorkLocation ClassificationKind = "work_location"
	KindType         ClassificationKind = "type"
	KindCategory     ClassificationKind = "category"
	KindSubcategory  ClassificationKind = "subcategory"
)

// ClassificationKinds lists every registry collection.
var ClassificationKinds = []ClassificationKind{
	KindWorkLocation,
	KindType,
	KindCategory,
	KindSubcategory,
}

// Valid reports whether the kind is known.
func (k ClassificationKind) Valid() bool {
	switch k {
	case KindWorkLocation, KindType, KindCategory, KindSubcategory:
		return true
	}
	return false
}

// ClassificationEntity is a read-only registry entry.
// ParentID links a subcategory to its category. OwnerUserID, OwnerEmail and
// LocationType only apply to work locations.
type ClassificationEntity struct {
	Kind         ClassificationKind
	ID           string
	Name         string
	ParentID     string
	OwnerUserID  string
	OwnerEmail   string
	LocationType string
}

// DefaultAssignee resolves the owner responsible for incidents at a work location.
func DefaultAssignee(location *ClassificationEntity) *string {
	if location == nil || location.Kind != KindWorkLocation || location.OwnerUserID == "" {
		return nil
	}
	owner := location.OwnerUserID
	return &owner
}
