// Package classify tags activities with the roles they play for each
// operation kind.
//
// Classification is a pure function of an activity and the signature table:
// it reads the type discriminator, the captured init stack and, for
// structural roles, the resource payload. The result is an immutable
// Classification that resolvers filter but never mutate.
package classify

import (
	"github.com/roach88/oplens/internal/activity"
	"github.com/roach88/oplens/internal/signature"
)

// Tag records that an activity plays Role for Kind.
type Tag struct {
	Kind string `json:"kind"`
	Role string `json:"role"`
}

// MatchRole reports whether a satisfies the role's signature. Missing or
// short stacks never match a frame pattern.
func MatchRole(r *signature.Role, a *activity.Activity) bool {
	if r.Type != "" && a.Type != r.Type {
		return false
	}
	for _, fp := range r.Frames {
		frame := a.Frame(fp.Depth)
		if frame == "" || !fp.Pattern.MatchString(frame) {
			return false
		}
	}
	for _, path := range r.RequirePaths {
		if _, ok := activity.Lookup(a.Resource, path); !ok {
			return false
		}
	}
	for _, flag := range r.Flags {
		v, ok := activity.Lookup(a.Resource, flag.Path)
		if !ok {
			return false
		}
		b, isBool := v.(bool)
		if !isBool || b != flag.Value {
			return false
		}
	}
	return true
}

// Tags returns every kind/role the activity matches, in table order.
func Tags(t *signature.Table, a *activity.Activity) []Tag {
	var tags []Tag
	for ki := range t.Kinds {
		k := &t.Kinds[ki]
		for ri := range k.Roles {
			if MatchRole(&k.Roles[ri], a) {
				tags = append(tags, Tag{Kind: k.Name, Role: k.Roles[ri].Name})
			}
		}
	}
	return tags
}

// Classification is the kind- and role-scoped partition of one store.
type Classification struct {
	ids  map[string]map[string][]int64 // kind -> role -> ids in store order
	tags map[int64][]Tag
}

// Classify tags every activity in s against t.
func Classify(s *activity.Store, t *signature.Table) *Classification {
	c := &Classification{
		ids:  make(map[string]map[string][]int64),
		tags: make(map[int64][]Tag),
	}
	for _, a := range s.All() {
		for _, tag := range Tags(t, a) {
			c.add(a.ID, tag)
		}
	}
	return c
}

func (c *Classification) add(id int64, tag Tag) {
	roles := c.ids[tag.Kind]
	if roles == nil {
		roles = make(map[string][]int64)
		c.ids[tag.Kind] = roles
	}
	roles[tag.Role] = append(roles[tag.Role], id)
	c.tags[id] = append(c.tags[id], tag)
}

// IDs returns the ids tagged with role for kind, in store order.
func (c *Classification) IDs(kind, role string) []int64 {
	src := c.ids[kind][role]
	out := make([]int64, len(src))
	copy(out, src)
	return out
}

// Has reports whether id is tagged with role for kind.
func (c *Classification) Has(id int64, kind, role string) bool {
	for _, tag := range c.tags[id] {
		if tag.Kind == kind && tag.Role == role {
			return true
		}
	}
	return false
}

// RoleOf returns the first role id plays for kind.
func (c *Classification) RoleOf(id int64, kind string) (string, bool) {
	for _, tag := range c.tags[id] {
		if tag.Kind == kind {
			return tag.Role, true
		}
	}
	return "", false
}

// TagsOf returns every tag of id.
func (c *Classification) TagsOf(id int64) []Tag {
	src := c.tags[id]
	out := make([]Tag, len(src))
	copy(out, src)
	return out
}

// Count returns the number of ids tagged for kind, counting an id once per
// role it plays.
func (c *Classification) Count(kind string) int {
	n := 0
	for _, ids := range c.ids[kind] {
		n += len(ids)
	}
	return n
}

// Without returns a copy of c with the hidden ids untagged. Tags for which
// keep returns true survive even on hidden ids.
func (c *Classification) Without(hidden map[int64]bool, keep func(Tag) bool) *Classification {
	drop := func(id int64, tag Tag) bool {
		return hidden[id] && (keep == nil || !keep(tag))
	}

	out := &Classification{
		ids:  make(map[string]map[string][]int64, len(c.ids)),
		tags: make(map[int64][]Tag, len(c.tags)),
	}
	for kind, roles := range c.ids {
		kept := make(map[string][]int64, len(roles))
		for role, ids := range roles {
			for _, id := range ids {
				if !drop(id, Tag{Kind: kind, Role: role}) {
					kept[role] = append(kept[role], id)
				}
			}
		}
		out.ids[kind] = kept
	}
	for id, tags := range c.tags {
		for _, tag := range tags {
			if !drop(id, tag) {
				out.tags[id] = append(out.tags[id], tag)
			}
		}
	}
	return out
}
