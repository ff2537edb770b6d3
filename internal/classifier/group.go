package classifier

// DefaultGroupExpirationSeconds is used whenever a classification or
// threshold config does not supply its own group_expiration_seconds.
const DefaultGroupExpirationSeconds = 24 * 60 * 60

// Group is a named, time-expiring set of IP addresses — the sole output
// artifact of classification (§4.A). Multiple Classifications and
// Thresholds may share one Group by name; the GroupRegistry below is the
// content-addressed store of them.
type Group struct {
	name    string
	members map[IpAddr]Timestamp
	emit    Emitter
}

func newGroup(name string, emit Emitter) *Group {
	return &Group{name: name, members: make(map[IpAddr]Timestamp), emit: emit}
}

// add inserts ip with the given expiry, or raises an existing member's
// expiry if expiry is later. It never lowers an existing expiry and is
// silent if the new expiry would not change anything.
func (g *Group) add(ip IpAddr, expiry Timestamp) {
	current, exists := g.members[ip]
	if !exists {
		g.members[ip] = expiry
		g.emit.OnAdd(ip, g.name, expiry)
		return
	}
	if expiry > current {
		g.members[ip] = expiry
		g.emit.OnUpdate(ip, g.name, expiry)
	}
}

// periodic removes every member whose expiry has passed.
func (g *Group) periodic(now Timestamp) {
	for ip, expiry := range g.members {
		if expiry < now {
			delete(g.members, ip)
			g.emit.OnRemove(ip, g.name)
		}
	}
}

// Snapshot returns a copy of the current membership. It reads the live
// map, so it is called from the owner goroutine (State.refreshSnapshot);
// the returned copy is then safe to hand to other goroutines.
func (g *Group) Snapshot() map[IpAddr]Timestamp {
	out := make(map[IpAddr]Timestamp, len(g.members))
	for ip, exp := range g.members {
		out[ip] = exp
	}
	return out
}

// GroupRegistry is the content-addressed store of Groups, keyed by name.
// It is the sole source of truth for "who is currently classified".
type GroupRegistry struct {
	groups map[string]*Group
	emit   Emitter
}

// NewGroupRegistry builds an empty registry that notifies emit of every
// membership change it makes or reaps.
func NewGroupRegistry(emit Emitter) *GroupRegistry {
	return &GroupRegistry{groups: make(map[string]*Group), emit: emit}
}

// add raises or inserts ip's expiry in the named group, creating the group
// on first use.
func (r *GroupRegistry) add(name string, ip IpAddr, expiry Timestamp) {
	g, ok := r.groups[name]
	if !ok {
		g = newGroup(name, r.emit)
		r.groups[name] = g
	}
	g.add(ip, expiry)
}

// periodic reaps expired memberships from every known group.
func (r *GroupRegistry) periodic(now Timestamp) {
	for _, g := range r.groups {
		g.periodic(now)
	}
}

// Snapshot returns, for every known group name, a copy of its membership.
func (r *GroupRegistry) Snapshot() map[string]map[IpAddr]Timestamp {
	out := make(map[string]map[IpAddr]Timestamp, len(r.groups))
	for name, g := range r.groups {
		out[name] = g.Snapshot()
	}
	return out
}
