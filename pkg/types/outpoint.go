package types

import "fmt"

// Outpoint names the transaction output a UTXO was created by. Peers may
// omit it; the wallet treats it as opaque and passes it back unchanged.
type Outpoint struct {
	TxID  Hash   `json:"txid"`
	Index uint32 `json:"index"`
}

// String returns "<txid>:<index>".
func (o Outpoint) String() string {
	return fmt.Sprintf("%s:%d", o.TxID, o.Index)
}
