// Package featureflags evaluates rollout switches such as the tag diff policy.
package featureflags

import (
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"
)

// Known flags.
const (
	// TagContainmentDiff switches tag reconciliation on edit from exact
	// case-insensitive matching to substring containment.
	TagContainmentDiff = "tag_containment_diff"
	// RecordViewInteractions controls whether view bumps by signed-in users
	// feed the recommendation history. Enabled unless set to off.
	RecordViewInteractions = "record_view_interactions"
)

var defaults = map[string]int{
	RecordViewInteractions: 100,
}

// Manager evaluates feature flags defined in a simple key=value list, e.g.
// "tag_containment_diff=25%,record_view_interactions=off". Each value is
// stored as a rollout percentage.
type Manager struct {
	rollout map[string]int
}

// NewManager creates a feature-flag manager from a comma-separated config string.
func NewManager(raw string) *Manager {
	out := make(map[string]int, len(defaults))
	for k, v := range defaults {
		out[k] = v
	}

	for _, pair := range strings.Split(raw, ",") {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		key = normalize(key)
		pct, ok := parseValue(normalize(value))
		if key == "" || !ok {
			continue
		}
		out[key] = pct
	}

	return &Manager{rollout: out}
}

func parseValue(value string) (int, bool) {
	switch value {
	case "on", "true", "1":
		return 100, true
	case "off", "false", "0":
		return 0, true
	}
	pctRaw, ok := strings.CutSuffix(value, "%")
	if !ok {
		return 0, false
	}
	pct, err := strconv.Atoi(pctRaw)
	if err != nil {
		return 0, false
	}
	return min(max(pct, 0), 100), true
}

// Enabled returns whether a flag is enabled for a given user. Partial
// rollouts bucket users deterministically and never include anonymous callers.
func (m *Manager) Enabled(name string, userID uint) bool {
	if m == nil {
		return false
	}

	pct, ok := m.rollout[normalize(name)]
	switch {
	case !ok || pct <= 0:
		return false
	case pct >= 100:
		return true
	case userID == 0:
		return false
	}
	return rolloutBucket(name, userID) < pct
}

// Snapshot returns evaluated flag status for one user.
func (m *Manager) Snapshot(userID uint) map[string]bool {
	out := make(map[string]bool, len(m.rollout))
	for name := range m.rollout {
		out[name] = m.Enabled(name, userID)
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func rolloutBucket(name string, userID uint) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(fmt.Sprintf("%s:%d", normalize(name), userID)))
	return int(h.Sum32() % 100)
}
