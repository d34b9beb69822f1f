package loam

// NodeMetadata represents the frontmatter of a node document.
// It uses "mapstructure" tags to match the plan keys of the graph builder.
type NodeMetadata struct {
	// ID defaults to the document path without extension, with "/" read as ":".
	ID   string `json:"id" mapstructure:"id"`
	Kind string `json:"kind" mapstructure:"kind"`
	// Parent is optional and must equal the id's prefix.
	Parent string `json:"parent" mapstructure:"parent"`

	// Root marks the graph root when the loader is not given one.
	Root bool `json:"root" mapstructure:"root"`

	EntryPoints map[string]any `json:"entry_points" mapstructure:"entry_points"`
	Arrows      map[string]any `json:"arrows" mapstructure:"arrows"`
	Nodes       []string       `json:"nodes" mapstructure:"nodes"`
}
