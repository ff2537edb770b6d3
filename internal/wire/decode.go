// Package wire decodes the fixed binary TxIngestMsg framing the ingest
// listener receives over TCP (§4.H). The upstream validator's exact byte
// layout is not reproducible from the specification alone, so this package
// defines a self-consistent tagged-union encoding: one byte tag followed by
// a big-endian-fixed-width field layout per tag, documented here rather
// than guessed at silently.
package wire

import (
	"encoding/binary"
	"fmt"
	"io"
	"net/netip"

	"github.com/bji/txingest-classifier/internal/classifier"
)

// Tag identifies the TxIngestMsg variant of one frame.
type Tag byte

const (
	TagFailed Tag = iota
	TagExceeded
	TagStarted
	TagFinished
	TagVoteTx
	TagUserTx
	TagForwarded
	TagBadFee
	TagFee
	TagWillBeLeader
	TagBeginLeader
	TagEndLeader
	TagDeprecated
)

var eventKindByTag = map[Tag]classifier.EventKind{
	TagFailed:       classifier.EventFailed,
	TagExceeded:     classifier.EventExceeded,
	TagStarted:      classifier.EventStarted,
	TagFinished:     classifier.EventFinished,
	TagVoteTx:       classifier.EventVoteTx,
	TagUserTx:       classifier.EventUserTx,
	TagForwarded:    classifier.EventForwarded,
	TagBadFee:       classifier.EventBadFee,
	TagFee:          classifier.EventFee,
	TagWillBeLeader: classifier.EventWillBeLeader,
	TagBeginLeader:  classifier.EventBeginLeader,
	TagEndLeader:    classifier.EventEndLeader,
	TagDeprecated:   classifier.EventDeprecated,
}

// Decoder reads one framed message at a time from an underlying stream.
type Decoder struct {
	r io.Reader
}

func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: r}
}

// Decode reads and parses the next frame. io.EOF is returned verbatim when
// the stream ends cleanly between frames; any other error means the
// connection is no longer trustworthy and must be closed (§7).
func (d *Decoder) Decode() (classifier.Event, error) {
	var tagByte [1]byte
	if _, err := io.ReadFull(d.r, tagByte[:]); err != nil {
		return classifier.Event{}, err
	}
	tag := Tag(tagByte[0])

	kind, known := eventKindByTag[tag]
	if !known {
		return classifier.Event{}, fmt.Errorf("wire: unknown tag %d", tag)
	}

	ts, err := d.readU64()
	if err != nil {
		return classifier.Event{}, fmt.Errorf("wire: reading timestamp: %w", err)
	}

	ev := classifier.Event{Kind: kind, Timestamp: ts}

	switch tag {
	case TagFailed, TagFinished, TagVoteTx, TagForwarded, TagBadFee:
		ev.Ip, err = d.readIp()

	case TagExceeded, TagStarted:
		if ev.Ip, err = d.readIp(); err != nil {
			break
		}
		if ev.Pubkey, err = d.readOptionalPubkey(); err != nil {
			break
		}
		ev.Stake, err = d.readU64()

	case TagUserTx:
		if ev.Ip, err = d.readIp(); err != nil {
			break
		}
		ev.Signature, err = d.readSignature()

	case TagFee:
		if ev.Signature, err = d.readSignature(); err != nil {
			break
		}
		if ev.Fee.Total, err = d.readU64(); err != nil {
			break
		}
		if ev.Fee.CuLimit, err = d.readU64(); err != nil {
			break
		}
		ev.Fee.CuUsed, err = d.readU64()

	case TagWillBeLeader:
		ev.Slots, err = d.readU8()

	case TagBeginLeader, TagEndLeader, TagDeprecated:
		// No payload.
	}

	if err != nil {
		return classifier.Event{}, fmt.Errorf("wire: decoding tag %d: %w", tag, err)
	}
	return ev, nil
}

func (d *Decoder) readU64() (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(d.r, buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(buf[:]), nil
}

func (d *Decoder) readU8() (uint8, error) {
	var buf [1]byte
	if _, err := io.ReadFull(d.r, buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}

func (d *Decoder) readIp() (netip.Addr, error) {
	var family [1]byte
	if _, err := io.ReadFull(d.r, family[:]); err != nil {
		return netip.Addr{}, err
	}
	switch family[0] {
	case 4:
		var b [4]byte
		if _, err := io.ReadFull(d.r, b[:]); err != nil {
			return netip.Addr{}, err
		}
		return netip.AddrFrom4(b), nil
	case 6:
		var b [16]byte
		if _, err := io.ReadFull(d.r, b[:]); err != nil {
			return netip.Addr{}, err
		}
		return netip.AddrFrom16(b), nil
	default:
		return netip.Addr{}, fmt.Errorf("unknown address family %d", family[0])
	}
}

func (d *Decoder) readOptionalPubkey() (classifier.Pubkey, error) {
	var present [1]byte
	if _, err := io.ReadFull(d.r, present[:]); err != nil {
		return classifier.Pubkey{}, err
	}
	if present[0] == 0 {
		return classifier.Pubkey{}, nil
	}
	var b [32]byte
	if _, err := io.ReadFull(d.r, b[:]); err != nil {
		return classifier.Pubkey{}, err
	}
	return classifier.Pubkey(b), nil
}

func (d *Decoder) readSignature() (classifier.Signature, error) {
	var sig classifier.Signature
	if _, err := io.ReadFull(d.r, sig[:]); err != nil {
		return classifier.Signature{}, err
	}
	return sig, nil
}
