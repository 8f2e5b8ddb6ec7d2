package registry

import (
	"sort"
	"time"

	"github.com/yndnr/sabertooth-go/internal/core/mandate"
)

// Snapshot is an immutable routing table.
type Snapshot struct {
	Number      uint64
	Root        *mandate.Mandate
	Subdomains  map[string]*mandate.Mandate
	PublishedAt time.Time
}

// Lookup returns the mandate serving sub and the claim to acquire from
// it: sub itself, or "" when the root mandate answers.
func (s *Snapshot) Lookup(sub string) (*mandate.Mandate, string, bool) {
	if md, ok := s.Subdomains[sub]; ok && sub != "" {
		return md, sub, true
	}
	if s.Root != nil {
		return s.Root, "", true
	}
	return nil, "", false
}

// Routes lists subdomain to mandate name, sorted by subdomain.
func (s *Snapshot) Routes() [][2]string {
	out := make([][2]string, 0, len(s.Subdomains))
	for sub, md := range s.Subdomains {
		out = append(out, [2]string{sub, md.Name()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i][0] < out[j][0] })
	return out
}

// Conflict is a claim that lost the tie-break.
type Conflict struct {
	Subdomain string // empty for root
	Winner    string
	Loser     string
}

// compose builds a snapshot from mandates in registration order. The
// first claimant of a route keeps it.
func compose(number uint64, mandates []*mandate.Mandate) (*Snapshot, []Conflict) {
	snap := &Snapshot{
		Number:      number,
		Subdomains:  make(map[string]*mandate.Mandate),
		PublishedAt: time.Now(),
	}
	var conflicts []Conflict
	for _, md := range mandates {
		root, subs, ok := md.Claims()
		if !ok {
			continue
		}
		if root {
			if snap.Root == nil {
				snap.Root = md
			} else {
				conflicts = append(conflicts, Conflict{Winner: snap.Root.Name(), Loser: md.Name()})
			}
		}
		for _, sub := range subs {
			if prev, taken := snap.Subdomains[sub]; taken {
				conflicts = append(conflicts, Conflict{Subdomain: sub, Winner: prev.Name(), Loser: md.Name()})
				continue
			}
			snap.Subdomains[sub] = md
		}
	}
	return snap, conflicts
}
