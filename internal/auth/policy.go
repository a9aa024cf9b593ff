package auth

import "strings"

// AllowlistPolicy grants privileged access to identities from configuration.
// Matching is case-insensitive on the trimmed identity.
type AllowlistPolicy struct {
	identities map[string]struct{}
}

func NewAllowlistPolicy(identities []string) *AllowlistPolicy {
	m := make(map[string]struct{}, len(identities))
	for _, id := range identities {
		id = strings.ToLower(strings.TrimSpace(id))
		if id == "" {
			continue
		}
		m[id] = struct{}{}
	}
	return &AllowlistPolicy{identities: m}
}

func (p *AllowlistPolicy) IsPrivileged(identity string) bool {
	identity = strings.ToLower(strings.TrimSpace(identity))
	if identity == "" {
		return false
	}
	_, ok := p.identities[identity]
	return ok
}
