// Package classifier implements the transaction-ingest peer classification
// engine: per-peer windowed value series, threshold evaluation, expiring
// group membership, and tx/fee ledger accounting.
package classifier

import (
	"net/netip"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// IpAddr identifies a peer. netip.Addr is comparable and hashable, so it
// can be used directly as a map key for both v4 and v6 addresses.
type IpAddr = netip.Addr

// Pubkey is a validator identity. Reused from chainhash for its shape (a
// comparable 32-byte array), not its Bitcoin semantics.
type Pubkey = chainhash.Hash

// Signature identifies a submitted transaction.
type Signature [64]byte

// Timestamp is monotonic milliseconds since epoch, as produced by Clock.
type Timestamp = uint64

// Fee describes the lamport cost and compute-unit budget of a landed or
// attempted transaction.
type Fee struct {
	Total   uint64
	CuLimit uint64
	CuUsed  uint64
}

// ZeroFee is substituted for non-landed or non-first submissions so that
// division by CuLimit/CuUsed stays defined.
var ZeroFee = Fee{Total: 0, CuLimit: 1, CuUsed: 1}

// TimestampedValue is one measurement for one metric for one IP.
type TimestampedValue struct {
	Timestamp Timestamp
	Value     uint64
}
