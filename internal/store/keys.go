package store

import "github.com/ethereum-tag-service/ets-server/internal/domain"

// Key layout. Hashes and addresses are stored in their 0x hex form so keys
// stay readable in dumps and sort consistently.
const (
	accountPrefix = "account:" // account:{address} → Account JSON
	relayerPrefix = "relayer:" // relayer:{address} → Relayer JSON
	targetPrefix  = "target:"  // target:{id} → Target JSON
	tagPrefix     = "tag:"     // tag:{id} → Tag JSON
	recordPrefix  = "record:"  // record:{id} → TaggingRecord JSON
	accrualPrefix = "accrual:" // accrual:{address} → Accrual JSON
	payoutPrefix  = "payout:"  // payout:{address}:{uuidv7} → Payout JSON

	recordsByTargetPrefix  = "idx:records:target:"  // idx:records:target:{targetID}:{recordID} → empty
	recordsByTaggerPrefix  = "idx:records:tagger:"  // idx:records:tagger:{tagger}:{recordID} → empty
	recordsByRelayerPrefix = "idx:records:relayer:" // idx:records:relayer:{relayer}:{recordID} → empty
)

// hexLen is the length of a 0x-prefixed hash in keys.
const hexLen = 2 + 64

func key(prefix string, id interface{ String() string }) []byte {
	return []byte(prefix + id.String())
}

func indexKey(prefix string, owner interface{ String() string }, recordID domain.Hash) []byte {
	return []byte(prefix + owner.String() + ":" + recordID.String())
}

func indexPrefix(prefix string, owner interface{ String() string }) string {
	return prefix + owner.String() + ":"
}

func payoutKey(beneficiary domain.Address, id string) []byte {
	return []byte(payoutPrefix + beneficiary.String() + ":" + id)
}

// recordIDFromIndexKey extracts the trailing record id of an index key.
func recordIDFromIndexKey(k []byte) (domain.Hash, error) {
	if len(k) < hexLen {
		return domain.Hash{}, ErrInvalidInput.WithMessage("malformed index key")
	}
	return domain.ParseHash(string(k[len(k)-hexLen:]))
}
