package behavior

import "strings"

// Inputs maps input port names to their configured values. A value of the
// form "{key}" is a live blackboard reference resolved on every lookup;
// anything else is a literal.
type Inputs map[string]string

// IsPointer reports whether an input value is a blackboard reference.
func IsPointer(v string) bool {
	return len(v) >= 2 && strings.HasPrefix(v, "{") && strings.HasSuffix(v, "}")
}

// PointerKey strips the braces from a blackboard reference.
func PointerKey(v string) string {
	return strings.TrimSuffix(strings.TrimPrefix(v, "{"), "}")
}

// String resolves the named input. Literals resolve to themselves;
// references read the blackboard. The second return is false when the port
// was never configured.
func (in Inputs) String(bb *Blackboard, key string) (string, bool) {
	raw, ok := in[key]
	if !ok {
		return "", false
	}
	if IsPointer(raw) {
		if bb == nil {
			return "", true
		}
		return bb.GetString(PointerKey(raw)), true
	}
	return raw, true
}
