package ingest

import (
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
)

// SuffixFunc yields the random part appended to a duplicated id.
type SuffixFunc func() (string, error)

// RandomSuffix returns the first 8 hex characters of a random (v4) UUID.
func RandomSuffix() (string, error) {
	u, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(u[:4]), nil
}

const maxSuffixAttempts = 16

// Dedup returns ids with every member of a duplicate group renamed to
// "<id>-<suffix>". Ids that occur once are kept as they are. Empty ids are
// never grouped and stay empty, so the caller rejects them. A generated id
// never equals any source id or any id generated earlier in the run.
func Dedup(ids []string, suffix SuffixFunc) ([]string, int, error) {
	counts := make(map[string]int, len(ids))
	for _, id := range ids {
		if id != "" {
			counts[id]++
		}
	}

	taken := make(map[string]struct{}, len(ids))
	for id := range counts {
		taken[id] = struct{}{}
	}

	out := make([]string, len(ids))
	renamed := 0
	for i, id := range ids {
		if id == "" || counts[id] == 1 {
			out[i] = id
			continue
		}

		fresh, err := freshID(id, suffix, taken)
		if err != nil {
			return nil, 0, err
		}
		taken[fresh] = struct{}{}
		out[i] = fresh
		renamed++
	}
	return out, renamed, nil
}

func freshID(id string, suffix SuffixFunc, taken map[string]struct{}) (string, error) {
	for attempt := 0; attempt < maxSuffixAttempts; attempt++ {
		s, err := suffix()
		if err != nil {
			return "", fmt.Errorf("generate suffix for %q: %w", id, err)
		}
		candidate := id + "-" + s
		if _, dup := taken[candidate]; !dup {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no unique id for %q after %d attempts", id, maxSuffixAttempts)
}
