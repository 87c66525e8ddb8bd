package model

// DataLayer is a named, independently connectable source of evidence with a
// fixed contribution weight to overall confidence. Layers are defined once at
// process start and never mutated.
type DataLayer struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Weight      int    `json:"weight"`
	Description string `json:"description"`
	EnablePath  string `json:"enable_path"`
}

// ConnectionState holds per-restaurant connection flags, one per DataLayer ID.
// Flags are mutated only when an operator explicitly connects or disconnects a
// source; the presence of stored data never implies a connection.
type ConnectionState map[string]bool

// Connected reports whether the layer with the given ID is flagged connected.
func (c ConnectionState) Connected(layerID string) bool {
	return c[layerID]
}
