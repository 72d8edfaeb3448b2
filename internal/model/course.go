package model

// Course is a static catalog entry. Courses are not persisted; the catalog is
// a fixed read-only list owned by the service.
type Course struct {
	ID   int32  `json:"id"`
	Name string `json:"name"`
}
