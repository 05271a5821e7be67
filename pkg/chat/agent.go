package chat

import "slices"

// Agent advertises a peer agent the user can address. Descriptors are
// immutable once fetched.
type Agent struct {
	Name         string   `json:"name"`
	DisplayName  string   `json:"display_name"`
	Description  string   `json:"description"`
	Capabilities []string `json:"capabilities"`
}

// Title is the human readable name, falling back to Name.
func (a Agent) Title() string {
	if a.DisplayName != "" {
		return a.DisplayName
	}
	return a.Name
}

// HasCapability reports whether the agent advertises tag.
func (a Agent) HasCapability(tag string) bool {
	return slices.Contains(a.Capabilities, tag)
}
