package classifier

import "testing"

// S5: group expiry. A member added with expiry 10000 survives until just
// past that point; a re-add with a later expiry before removal raises it
// via Update and the member survives past the original expiry.
func TestGroup_S5_ExpiryAndReAdd(t *testing.T) {
	emit := &recordingEmitter{}
	r := NewGroupRegistry(emit)
	ip := mustIp("11.0.0.1")

	r.add("g", ip, 10000)
	r.periodic(9999)
	if len(emit.removes) != 0 {
		t.Fatalf("member should still be present at 9999, got removes %v", emit.removes)
	}

	r.add("g", ip, 20000) // re-add before expiry, at "now"=5000 per scenario
	if len(emit.updates) != 1 || emit.updates[0].expiry != 20000 {
		t.Fatalf("expected an Update raising expiry to 20000, got %v", emit.updates)
	}

	r.periodic(10001)
	if len(emit.removes) != 0 {
		t.Fatalf("member must survive past the original 10000 expiry once raised, got removes %v", emit.removes)
	}

	r.periodic(20001)
	if len(emit.removes) != 1 {
		t.Fatalf("expected exactly one Remove once the raised expiry passes, got %v", emit.removes)
	}
}

// Property 4: add never lowers an existing expiry, and is silent (no
// Update) when the proposed expiry would not raise it.
func TestGroup_AddNeverLowers(t *testing.T) {
	emit := &recordingEmitter{}
	r := NewGroupRegistry(emit)
	ip := mustIp("11.0.0.2")

	r.add("g", ip, 50000)
	r.add("g", ip, 10000) // lower, must be ignored

	if len(emit.updates) != 0 {
		t.Fatalf("expected no Update for a lower expiry, got %v", emit.updates)
	}
	if g := r.groups["g"]; g.members[ip] != 50000 {
		t.Errorf("expiry must remain 50000, got %d", g.members[ip])
	}
}

// A first insert emits Add, not Update.
func TestGroup_FirstInsertEmitsAdd(t *testing.T) {
	emit := &recordingEmitter{}
	r := NewGroupRegistry(emit)
	ip := mustIp("11.0.0.3")
	r.add("g", ip, 1000)
	if len(emit.adds) != 1 || len(emit.updates) != 0 {
		t.Fatalf("expected exactly one Add and no Updates, got adds=%v updates=%v", emit.adds, emit.updates)
	}
}
