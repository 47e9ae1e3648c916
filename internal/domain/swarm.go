package domain

import "regexp"

// SwarmCodePattern matches swarm codes issued by the service.
var SwarmCodePattern = regexp.MustCompile(`^SWARM-[A-Z0-9]{12}$`)

// ValidSwarmCode reports whether s is a well-formed swarm code.
func ValidSwarmCode(s string) bool {
	return SwarmCodePattern.MatchString(s)
}

// Swarm is a membership record owned by the remote service. The core
// treats it as read-mostly reference data.
type Swarm struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Icon        string `json:"icon,omitempty"`
	Members     int    `json:"members"`
	IsCreator   bool   `json:"isCreator,omitempty"`
}

// FilterActive scopes a membership list to the active swarm if one is
// selected and present; otherwise returns the list unchanged.
func FilterActive(swarms []Swarm, activeCode string) []Swarm {
	if activeCode == "" {
		return swarms
	}
	for _, s := range swarms {
		if s.Code == activeCode {
			return []Swarm{s}
		}
	}
	return swarms
}
