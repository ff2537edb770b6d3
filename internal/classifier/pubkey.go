package classifier

// PubkeyRule is one entry of the static pubkey -> group mapping configured
// at startup (§4.G, §6 known_pubkeys).
type PubkeyRule struct {
	GroupName               string
	GroupExpirationSeconds  uint64
}

// PubkeyClassifier adds a peer's IP to a configured group whenever a
// Started or Exceeded event reports a recognized validator identity. It
// shares the raise-only semantics of every other Group writer: a
// recognized pubkey can only ever extend its group's expiry, never shorten
// it.
type PubkeyClassifier struct {
	rules map[Pubkey]PubkeyRule
}

func NewPubkeyClassifier(rules map[Pubkey]PubkeyRule) *PubkeyClassifier {
	if rules == nil {
		rules = make(map[Pubkey]PubkeyRule)
	}
	return &PubkeyClassifier{rules: rules}
}

// Observe adds ip to the rule's group if pubkey is recognized. No-op for
// unrecognized pubkeys (§7 event-level silent discard).
func (c *PubkeyClassifier) Observe(now Timestamp, ip IpAddr, pubkey Pubkey, groups *GroupRegistry) {
	rule, ok := c.rules[pubkey]
	if !ok {
		return
	}
	groups.add(rule.GroupName, ip, now+rule.GroupExpirationSeconds*1000)
}
