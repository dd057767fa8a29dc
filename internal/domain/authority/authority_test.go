package authority

import (
	"strings"
	"testing"
)

func TestDerivationIsDeterministic(t *testing.T) {
	t.Parallel()

	a := Plan("owner-1", "gold")
	b := Plan("owner-1", "gold")
	if a != b {
		t.Fatalf("same inputs produced different authorities: %s vs %s", a, b)
	}

	s1 := Subscription("sub-1", "plan:abc")
	s2 := Subscription("sub-1", "plan:abc")
	if s1 != s2 {
		t.Fatalf("same inputs produced different authorities: %s vs %s", s1, s2)
	}
}

func TestNamespacesNeverCollide(t *testing.T) {
	t.Parallel()

	// Overlapping keys across namespaces must stay distinguishable.
	p := Plan("alice", "bob")
	s := Subscription("alice", "bob")
	if p == s {
		t.Fatalf("plan and subscription authorities collided: %s", p)
	}
}

func TestFramingPreventsBoundaryCollisions(t *testing.T) {
	t.Parallel()

	// ("ab","c") and ("a","bc") concatenate identically; the length-prefix
	// framing must keep them apart.
	if Plan("ab", "c") == Plan("a", "bc") {
		t.Fatal("component boundary shift collided")
	}
	if PlanAddress("ab", "c") == PlanAddress("a", "bc") {
		t.Fatal("address component boundary shift collided")
	}
}

func TestEscrowAuthorityIsNotASignerIdentity(t *testing.T) {
	t.Parallel()

	a := Subscription("5f9a0c8e-1111-2222-3333-444455556666", "plan:deadbeef")
	if !strings.HasPrefix(a.ID(), "escrow:") {
		t.Fatalf("derived authority %q missing escrow marker", a.ID())
	}
	// A signer wrapping the same string is a different capability only the
	// engine could confuse; they must at least compare unequal to any signer
	// identity that does not carry the marker.
	if a == Signer(a.ID()[len("escrow:"):]) {
		t.Fatal("escrow authority equals a plain signer identity")
	}
}

func TestAddressesAreReproducibleAndScoped(t *testing.T) {
	t.Parallel()

	p1 := PlanAddress("creator-1", "gold")
	if p1 != PlanAddress("creator-1", "gold") {
		t.Fatal("plan address not deterministic")
	}
	if p1 == PlanAddress("creator-2", "gold") {
		t.Fatal("plan address ignores creator")
	}
	if p1 == PlanAddress("creator-1", "silver") {
		t.Fatal("plan address ignores code")
	}

	s1 := SubscriptionAddress("subscriber-1", p1)
	if s1 == SubscriptionAddress("subscriber-2", p1) {
		t.Fatal("subscription address ignores subscriber")
	}
	if s1 == p1 {
		t.Fatal("subscription address collided with plan address")
	}
}
