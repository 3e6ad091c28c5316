package media

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoCandidate is returned when every resolver in a chain failed.
var ErrNoCandidate = errors.New("media: no candidate resolved")

// Resolver is one candidate source in an ordered fallback chain.
type Resolver struct {
	Name    string
	Resolve func() (Ref, error)
}

// Present builds a resolver that succeeds when ref is non-empty.
func Present(name string, ref Ref) Resolver {
	return Resolver{Name: name, Resolve: func() (Ref, error) {
		if ref == "" {
			return "", fmt.Errorf("%s: absent", name)
		}
		return ref, nil
	}}
}

// Resolve evaluates resolvers in order; the first success wins.
// It returns the winning ref and resolver name.
func Resolve(chain ...Resolver) (Ref, string, error) {
	var msgs []string
	for _, r := range chain {
		ref, err := r.Resolve()
		if err == nil && ref != "" {
			return ref, r.Name, nil
		}
		if err != nil {
			msgs = append(msgs, err.Error())
		}
	}
	if len(msgs) == 0 {
		return "", "", ErrNoCandidate
	}
	return "", "", fmt.Errorf("%w: %s", ErrNoCandidate, strings.Join(msgs, "; "))
}
