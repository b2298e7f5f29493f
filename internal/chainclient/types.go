package chainclient

// ContractTransfer is the contract type of a native TRX transfer.
const ContractTransfer = "TransferContract"

// RetSuccess is the success sentinel of a contract execution result.
const RetSuccess = "SUCCESS"

// Block is a ledger block as returned by the full node.
type Block struct {
	BlockID      string        `json:"blockID"`
	BlockHeader  BlockHeader   `json:"block_header"`
	Transactions []Transaction `json:"transactions"`
}

// Number returns the block height.
func (b *Block) Number() int64 {
	return b.BlockHeader.RawData.Number
}

// BlockHeader carries the block's raw header data.
type BlockHeader struct {
	RawData struct {
		Number    int64 `json:"number"`
		Timestamp int64 `json:"timestamp"`
	} `json:"raw_data"`
}

// Transaction is a raw chain transaction.
type Transaction struct {
	TxID       string   `json:"txID"`
	Ret        []Ret    `json:"ret,omitempty"`
	Signature  []string `json:"signature,omitempty"`
	RawDataHex string   `json:"raw_data_hex"`
	RawData    RawData  `json:"raw_data"`
}

// ContractResult returns the first contract return code, or empty when the
// node reported none (unconfirmed or pre-execution transactions).
func (t *Transaction) ContractResult() string {
	if len(t.Ret) == 0 {
		return ""
	}
	return t.Ret[0].ContractRet
}

// Ret is one contract execution result.
type Ret struct {
	ContractRet string `json:"contractRet"`
}

// RawData is the signed portion of a transaction.
type RawData struct {
	Contract      []Contract `json:"contract"`
	RefBlockBytes string     `json:"ref_block_bytes"`
	RefBlockHash  string     `json:"ref_block_hash"`
	Expiration    int64      `json:"expiration"`
	Timestamp     int64      `json:"timestamp"`
	FeeLimit      int64      `json:"fee_limit,omitempty"`
}

// Contract is one operation within a transaction.
type Contract struct {
	Type      string    `json:"type"`
	Parameter Parameter `json:"parameter"`
}

// Parameter wraps the contract payload.
type Parameter struct {
	Value   ContractValue `json:"value"`
	TypeURL string        `json:"type_url"`
}

// ContractValue is the decoded payload of a TransferContract. Participant
// addresses are in the chain's internal hex form.
type ContractValue struct {
	Amount       int64  `json:"amount"`
	OwnerAddress string `json:"owner_address"`
	ToAddress    string `json:"to_address"`
}

// TransactionInfo is the post-execution record of a transaction.
type TransactionInfo struct {
	ID             string `json:"id"`
	Fee            int64  `json:"fee"`
	BlockNumber    int64  `json:"blockNumber"`
	BlockTimestamp int64  `json:"blockTimeStamp"`
	Receipt        struct {
		NetFee    int64 `json:"net_fee"`
		NetUsage  int64 `json:"net_usage"`
		EnergyFee int64 `json:"energy_fee"`
	} `json:"receipt"`
}

// Account is the on-chain state of an address.
type Account struct {
	Address      string `json:"address"`
	Balance      int64  `json:"balance"`
	CreateTime   int64  `json:"create_time"`
	FreeNetUsage int64  `json:"free_net_usage"`
}

// Exists reports whether the account is activated on chain. The node returns
// an empty object for addresses that have never received funds.
func (a *Account) Exists() bool {
	return a.Address != ""
}

// AccountResource is the bandwidth/energy state of an address.
type AccountResource struct {
	FreeNetUsed  int64 `json:"freeNetUsed"`
	FreeNetLimit int64 `json:"freeNetLimit"`
	NetUsed      int64 `json:"NetUsed"`
	NetLimit     int64 `json:"NetLimit"`
}

// FreeBandwidth returns the remaining free bandwidth in bytes.
func (r *AccountResource) FreeBandwidth() int64 {
	remaining := r.FreeNetLimit - r.FreeNetUsed
	if remaining < 0 {
		return 0
	}
	return remaining
}

// BroadcastResult is the node's receipt for a broadcast attempt.
type BroadcastResult struct {
	Result  bool   `json:"result"`
	TxID    string `json:"txid"`
	Code    string `json:"code"`
	Message string `json:"message"` // hex-encoded detail on rejection
}

// ChainParameter is one entry of the committee-governed parameter list.
type ChainParameter struct {
	Key   string `json:"key"`
	Value int64  `json:"value"`
}

// chainParameters is the response envelope of getchainparameters.
type chainParameters struct {
	ChainParameter []ChainParameter `json:"chainParameter"`
}
