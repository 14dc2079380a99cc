package policy

import "strings"

// PolicyKey identifies a call site as namespace.name.
type PolicyKey struct {
	Namespace string `yaml:"namespace,omitempty" json:"namespace,omitempty"`
	Name      string `yaml:"name" json:"name"`
}

// ParseKey splits s on its first dot. Inputs without a usable namespace become a bare name.
func ParseKey(s string) PolicyKey {
	s = strings.TrimSpace(s)
	if s == "" {
		return PolicyKey{}
	}
	ns, name, ok := strings.Cut(s, ".")
	if !ok {
		return PolicyKey{Name: s}
	}
	ns, name = strings.TrimSpace(ns), strings.TrimSpace(name)
	switch {
	case name == "":
		return PolicyKey{Name: s}
	case ns == "":
		return PolicyKey{Name: name}
	}
	return PolicyKey{Namespace: ns, Name: name}
}

func (k PolicyKey) String() string {
	switch {
	case k.Namespace == "":
		return k.Name
	case k.Name == "":
		return k.Namespace
	}
	return k.Namespace + "." + k.Name
}

// IsZero reports whether k names nothing.
func (k PolicyKey) IsZero() bool {
	return k == PolicyKey{}
}
