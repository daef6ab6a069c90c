package model

// AnchorRecord ties a content fingerprint to the transaction that anchored it.
// It is never stored; the pipeline and the resolver produce it on demand.
type AnchorRecord struct {
	Fingerprint string `json:"fingerprint"`
	TxHash      string `json:"tx_hash"`
	BlockNumber uint64 `json:"block_number"`
	Submitter   string `json:"from"`
}

// TxRecord what can be recovered from a transaction hash alone
type TxRecord struct {
	TxHash      string `json:"tx_hash"`
	BlockNumber uint64 `json:"block_number"`
	From        string `json:"from"`
	Success     bool   `json:"success"`
}
