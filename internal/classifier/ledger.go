package classifier

// TxRetentionMs is how long a Tx is tracked after its first submission
// before being drained from the ledger (§3 Tx lifecycle, §4.D aging).
const TxRetentionMs = 2 * 60 * 1000

// submission is one (timestamp, submitter) pair recorded in first-submission
// order for a signature.
type submission struct {
	timestamp Timestamp
	submitter IpAddr
}

// Tx tracks every distinct submitter of one signature, in first-submission
// order, plus the fee it eventually landed with (if any).
type Tx struct {
	submitters  map[IpAddr]struct{}
	submissions []submission
	fee         *Fee
}

// FeeAttribution is one submitter's derived fee metrics, emitted when a Tx
// ages out of the ledger.
type FeeAttribution struct {
	Submitter             IpAddr
	Timestamp             Timestamp
	Lamports              uint64
	MicrolamportsPerCuLim uint64
	MicrolamportsPerCuUse uint64
}

// Ledger is the signature -> Tx store (§4.D).
type Ledger struct {
	txs map[Signature]*Tx
}

func NewLedger() *Ledger {
	return &Ledger{txs: make(map[Signature]*Tx)}
}

// Submit records a UserTx submission. The first submission by a given
// submitter for a signature creates or extends the submissions list;
// repeat submissions from an already-known submitter are idempotent
// no-ops, so a spamming peer cannot dilute its own observed fee rate by
// resubmitting the same signature.
func (l *Ledger) Submit(ts Timestamp, ip IpAddr, sig Signature) {
	tx, ok := l.txs[sig]
	if !ok {
		tx = &Tx{submitters: map[IpAddr]struct{}{ip: {}}}
		tx.submissions = append(tx.submissions, submission{timestamp: ts, submitter: ip})
		l.txs[sig] = tx
		return
	}
	if _, seen := tx.submitters[ip]; seen {
		return
	}
	tx.submitters[ip] = struct{}{}
	tx.submissions = append(tx.submissions, submission{timestamp: ts, submitter: ip})
}

// SetFee attaches a landed fee to a tracked signature. Last writer wins,
// though only one Fee event is expected per signature in practice. Unknown
// signatures are silently dropped (§7 event-level error handling).
func (l *Ledger) SetFee(sig Signature, fee Fee) {
	if tx, ok := l.txs[sig]; ok {
		tx.fee = &fee
	}
}

// Drain evicts every Tx whose first submission is older than TxRetentionMs
// and returns the fee attributions to emit for each, in submission order.
// The first submitter gets the landed fee (or ZeroFee if the tx never
// landed); every other submitter always gets ZeroFee (§4.D, §8 property 3).
func (l *Ledger) Drain(now Timestamp) []FeeAttribution {
	if now < TxRetentionMs {
		return nil
	}
	retainTimestamp := now - TxRetentionMs

	var out []FeeAttribution
	for sig, tx := range l.txs {
		if tx.submissions[0].timestamp >= retainTimestamp {
			continue
		}
		for i, sub := range tx.submissions {
			var fee Fee
			if i == 0 {
				if tx.fee != nil {
					fee = *tx.fee
				} else {
					fee = ZeroFee
				}
			} else {
				fee = ZeroFee
			}
			out = append(out, FeeAttribution{
				Submitter:             sub.submitter,
				Timestamp:             sub.timestamp,
				Lamports:              fee.Total,
				MicrolamportsPerCuLim: (fee.Total * 1000) / fee.CuLimit,
				MicrolamportsPerCuUse: (fee.Total * 1000) / fee.CuUsed,
			})
		}
		delete(l.txs, sig)
	}
	return out
}
