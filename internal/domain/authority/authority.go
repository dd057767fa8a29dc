// Package authority implements the engine's capability model: deterministic,
// signer-less escrow identities and the derived storage addresses for plans
// and subscriptions.
//
// An escrow authority has no private key. The ledger accepts it as a transfer
// authority only because the engine, operating on the matching entity inside
// an authorized operation, reproduces the same derivation. Off-host this is an
// access-control property: the Authority type is opaque and the package lives
// under internal/, so no code outside this module can mint one.
package authority

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
)

// Authority identifies who is allowed to move funds in a ledger call: either
// a verified signer identity or a derived escrow identity.
type Authority struct {
	id string
}

func (a Authority) ID() string    { return a.id }
func (a Authority) IsZero() bool  { return a.id == "" }
func (a Authority) String() string { return a.id }

// Signer wraps a caller identity the engine has already verified against the
// stored owner of the entity being operated on.
func Signer(identity string) Authority { return Authority{id: identity} }

// Plan derives the escrow authority controlling a plan's settlement account.
func Plan(owner, code string) Authority {
	return Authority{id: derive("plan", owner, code)}
}

// Subscription derives the escrow authority that spends against a
// subscriber's standing delegation.
func Subscription(subscriber, planAddress string) Authority {
	return Authority{id: derive("subscription", subscriber, planAddress)}
}

// PlanAddress is the storage address of a plan record. Any client knowing the
// creator identity and plan code can reproduce it without reading the record.
func PlanAddress(creator, code string) string {
	return "plan:" + digest("plan-account", creator, code)
}

// SubscriptionAddress is the storage address of a subscription record, keyed
// by subscriber identity and plan address.
func SubscriptionAddress(subscriber, planAddress string) string {
	return "sub:" + digest("subscription-account", subscriber, planAddress)
}

// derive produces an escrow identity. The "escrow:" prefix cannot appear in a
// signer identity (those are plain account IDs minted by the API layer), so a
// derived authority is never mistakable for a party that can sign.
func derive(namespace string, parts ...string) string {
	return "escrow:" + namespace + ":" + digest(namespace, parts...)
}

// digest hashes namespace and components with length-prefix framing, so two
// different tuples can never produce the same byte stream regardless of how
// the component strings are shaped.
func digest(namespace string, parts ...string) string {
	h := sha256.New()
	writeComponent(h, namespace)
	for _, p := range parts {
		writeComponent(h, p)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func writeComponent(h interface{ Write([]byte) (int, error) }, s string) {
	var buf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(buf[:], uint64(len(s)))
	h.Write(buf[:n])
	h.Write([]byte(s))
}
