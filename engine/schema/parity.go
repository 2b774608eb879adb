package schema

import (
	"fmt"
	"slices"

	"github.com/compozy/trainconf/engine/core"
	"github.com/compozy/trainconf/engine/store"
)

// ParityIssue describes a schema entry whose field set matches no selectable
// entry of its group.
type ParityIssue struct {
	SchemaKey string
	Group     string
	Compared  string
	Missing   []string // in the schema entry, absent from the compared entry
	Extra     []string // in the compared entry, absent from the schema entry
	Reason    string
}

func (p ParityIssue) String() string {
	if p.Compared == "" {
		return fmt.Sprintf("%s: %s", p.SchemaKey, p.Reason)
	}
	return fmt.Sprintf("%s vs %s: missing %v, extra %v", p.SchemaKey, p.Compared, p.Missing, p.Extra)
}

// EntryFields returns the top-level keys of an entry, typed or not.
func EntryFields(e *store.Entry) []string {
	if e.Typed() {
		return Fields(e.Type)
	}
	if node, ok := e.Node.(core.Node); ok {
		return NodeFields(node)
	}
	return nil
}

// CheckParity compares every schema/<group>/<name> entry with <group>/<name>
// when it exists, otherwise with the entries of <group>; one entry with the
// same field set is enough.
func CheckParity(s *store.Store) []ParityIssue {
	issues := make([]ParityIssue, 0)
	for _, entry := range s.Entries() {
		if !store.IsSchemaGroup(entry.Group) {
			continue
		}
		schemaFields := EntryFields(&entry)
		group := store.ConcreteGroup(entry.Group)
		if peer, err := s.Get(group, entry.Name); err == nil {
			if issue, ok := compareFields(&entry, peer, schemaFields); !ok {
				issues = append(issues, issue)
			}
			continue
		}
		names := s.Names(group)
		if len(names) == 0 {
			issues = append(issues, ParityIssue{
				SchemaKey: entry.Key(),
				Group:     group,
				Reason:    "group has no selectable entries",
			})
			continue
		}
		var closest *ParityIssue
		matched := false
		for _, name := range names {
			peer, err := s.Get(group, name)
			if err != nil {
				continue
			}
			issue, ok := compareFields(&entry, peer, schemaFields)
			if ok {
				matched = true
				break
			}
			if closest == nil || len(issue.Missing)+len(issue.Extra) < len(closest.Missing)+len(closest.Extra) {
				closest = &issue
			}
		}
		if !matched && closest != nil {
			issues = append(issues, *closest)
		}
	}
	return issues
}

func compareFields(schemaEntry, peer *store.Entry, schemaFields []string) (ParityIssue, bool) {
	peerFields := EntryFields(peer)
	issue := ParityIssue{
		SchemaKey: schemaEntry.Key(),
		Group:     peer.Group,
		Compared:  peer.Key(),
		Missing:   difference(schemaFields, peerFields),
		Extra:     difference(peerFields, schemaFields),
	}
	return issue, len(issue.Missing) == 0 && len(issue.Extra) == 0
}

func difference(a, b []string) []string {
	out := make([]string, 0)
	for _, v := range a {
		if !slices.Contains(b, v) {
			out = append(out, v)
		}
	}
	return out
}
