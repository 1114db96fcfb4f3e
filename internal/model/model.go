// Package model defines core data structures for refcheck.
package model

import (
	"regexp"
	"sort"
)

// Kind identifies which family of backend capability a report covers.
type Kind string

const (
	// RPC covers database procedures declared in SQL migrations.
	RPC Kind = "rpc"
	// Function covers deployable edge functions, one directory each.
	Function Kind = "function"
)

// Label returns the human label used in report lines.
func (k Kind) Label() string {
	switch k {
	case RPC:
		return "RPC"
	case Function:
		return "edge function"
	}
	return string(k)
}

var nameRe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidName reports whether s is a well-formed reference name.
func ValidName(s string) bool {
	return nameRe.MatchString(s)
}

// Reference is a single call site naming a backend capability.
type Reference struct {
	Name string
	File string
	Line int
}

// Set is an unordered set of reference names.
type Set map[string]struct{}

// NewSet returns a set holding names.
func NewSet(names ...string) Set {
	s := make(Set, len(names))
	for _, n := range names {
		s.Add(n)
	}
	return s
}

// Add inserts name.
func (s Set) Add(name string) {
	s[name] = struct{}{}
}

// Has reports whether name is in the set.
func (s Set) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Len returns the number of names.
func (s Set) Len() int {
	return len(s)
}

// Sorted returns the names in ascending byte order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for n := range s {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Minus returns the names in s that are not in other.
func (s Set) Minus(other Set) Set {
	out := make(Set)
	for n := range s {
		if !other.Has(n) {
			out.Add(n)
		}
	}
	return out
}

// Invoked collects call-site references, keeping the first location seen for
// each name.
type Invoked struct {
	names Set
	first map[string]Reference
}

// NewInvoked returns an empty Invoked collection.
func NewInvoked() *Invoked {
	return &Invoked{names: make(Set), first: make(map[string]Reference)}
}

// Add records ref unless its name was already seen.
func (iv *Invoked) Add(ref Reference) {
	if iv.names.Has(ref.Name) {
		return
	}
	iv.names.Add(ref.Name)
	iv.first[ref.Name] = ref
}

// Names returns the set of invoked names.
func (iv *Invoked) Names() Set {
	return iv.names
}

// First returns the first recorded reference for name.
func (iv *Invoked) First(name string) (Reference, bool) {
	ref, ok := iv.first[name]
	return ref, ok
}

// Report is the outcome of one coverage run.
type Report struct {
	Kind     Kind
	Invoked  []Reference // sorted by name, first occurrence of each
	Declared Set
	Allowed  Set
	Missing  []Reference // sorted by name
}

// OK reports whether every invoked name is declared or allowed.
func (r *Report) OK() bool {
	return len(r.Missing) == 0
}
