package esplora

import (
	"encoding/json"
	"fmt"

	"github.com/dashsync/walletsyncd/pkg/explorer"
)

type txStatus struct {
	Confirmed   bool   `json:"confirmed"`
	BlockHeight uint32 `json:"block_height"`
	BlockHash   string `json:"block_hash"`
	BlockTime   int64  `json:"block_time"`
}

func (s txStatus) toExplorer() explorer.TxStatus {
	return explorer.TxStatus{
		Confirmed:   s.Confirmed,
		BlockHeight: s.BlockHeight,
		BlockHash:   s.BlockHash,
		BlockTime:   s.BlockTime,
	}
}

type prevout struct {
	Address string `json:"scriptpubkey_address"`
	Value   uint64 `json:"value"`
}

type txIn struct {
	TxID    string   `json:"txid"`
	Vout    uint32   `json:"vout"`
	Prevout *prevout `json:"prevout"`
}

type txOut struct {
	Address string `json:"scriptpubkey_address"`
	Value   uint64 `json:"value"`
}

type tx struct {
	TxID     string   `json:"txid"`
	Version  uint32   `json:"version"`
	Locktime uint32   `json:"locktime"`
	Size     uint32   `json:"size"`
	Fee      uint64   `json:"fee"`
	Status   txStatus `json:"status"`
	Vin      []txIn   `json:"vin"`
	Vout     []txOut  `json:"vout"`
}

func (t tx) toExplorer() explorer.Transaction {
	ins := make([]explorer.Input, 0, len(t.Vin))
	for _, in := range t.Vin {
		input := explorer.Input{TxID: in.TxID, Vout: in.Vout}
		if in.Prevout != nil {
			input.Address = in.Prevout.Address
			input.Value = in.Prevout.Value
		}
		ins = append(ins, input)
	}
	outs := make([]explorer.Output, 0, len(t.Vout))
	for _, out := range t.Vout {
		outs = append(outs, explorer.Output{Address: out.Address, Value: out.Value})
	}

	return explorer.Transaction{
		TxID:     t.TxID,
		Version:  t.Version,
		Locktime: t.Locktime,
		Size:     t.Size,
		Fee:      t.Fee,
		Status:   t.Status.toExplorer(),
		Inputs:   ins,
		Outputs:  outs,
	}
}

type stats struct {
	FundedTxoSum uint64 `json:"funded_txo_sum"`
	SpentTxoSum  uint64 `json:"spent_txo_sum"`
	TxCount      int    `json:"tx_count"`
}

type addressInfo struct {
	Address      string `json:"address"`
	ChainStats   stats  `json:"chain_stats"`
	MempoolStats stats  `json:"mempool_stats"`
}

func (a addressInfo) toExplorer() *explorer.AddressBalance {
	confirmed := uint64(0)
	if a.ChainStats.FundedTxoSum > a.ChainStats.SpentTxoSum {
		confirmed = a.ChainStats.FundedTxoSum - a.ChainStats.SpentTxoSum
	}
	return &explorer.AddressBalance{
		Confirmed: confirmed,
		MempoolDelta: int64(a.MempoolStats.FundedTxoSum) -
			int64(a.MempoolStats.SpentTxoSum),
		TxCount:        a.ChainStats.TxCount,
		MempoolTxCount: a.MempoolStats.TxCount,
	}
}

func parseTransactions(txsJSON string) ([]explorer.Transaction, error) {
	var txs []tx
	if err := json.Unmarshal([]byte(txsJSON), &txs); err != nil {
		return nil, fmt.Errorf("invalid txs JSON: %w", err)
	}
	list := make([]explorer.Transaction, 0, len(txs))
	for _, t := range txs {
		list = append(list, t.toExplorer())
	}
	return list, nil
}
