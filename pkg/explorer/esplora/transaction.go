package esplora

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dashsync/walletsyncd/pkg/explorer"
)

func (e *esplora) GetAddressBalance(
	ctx context.Context, address string,
) (*explorer.AddressBalance, error) {
	url := fmt.Sprintf("%s/address/%s", e.apiURL, address)
	resp, err := e.get(ctx, url)
	if err != nil {
		return nil, err
	}

	info := addressInfo{}
	if err := json.Unmarshal([]byte(resp), &info); err != nil {
		return nil, fmt.Errorf("invalid address JSON: %w", err)
	}
	return info.toExplorer(), nil
}

func (e *esplora) GetTransactionsForAddress(
	ctx context.Context, address string,
) ([]explorer.Transaction, error) {
	url := fmt.Sprintf("%s/address/%s/txs", e.apiURL, address)
	resp, err := e.get(ctx, url)
	if err != nil {
		return nil, err
	}
	return parseTransactions(resp)
}

func (e *esplora) GetTransaction(
	ctx context.Context, txid string,
) (*explorer.Transaction, error) {
	url := fmt.Sprintf("%s/tx/%s", e.apiURL, txid)
	resp, err := e.get(ctx, url)
	if err != nil {
		return nil, err
	}

	t := tx{}
	if err := json.Unmarshal([]byte(resp), &t); err != nil {
		return nil, fmt.Errorf("invalid tx JSON: %w", err)
	}
	res := t.toExplorer()
	return &res, nil
}

func (e *esplora) GetTransactionHex(ctx context.Context, txid string) (string, error) {
	url := fmt.Sprintf("%s/tx/%s/hex", e.apiURL, txid)
	resp, err := e.get(ctx, url)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp), nil
}

func (e *esplora) GetTransactionStatus(
	ctx context.Context, txid string,
) (*explorer.TxStatus, error) {
	url := fmt.Sprintf("%s/tx/%s/status", e.apiURL, txid)
	resp, err := e.get(ctx, url)
	if err != nil {
		return nil, err
	}

	status := txStatus{}
	if err := json.Unmarshal([]byte(resp), &status); err != nil {
		return nil, fmt.Errorf("invalid tx status JSON: %w", err)
	}
	res := status.toExplorer()
	return &res, nil
}
