package main

import (
	"context"
	"time"

	"github.com/dashsync/walletsyncd/internal/core/domain"
	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"
)

// duffsPrecision is the number of decimals of 1 DASH.
const duffsPrecision = 8

var balance = cli.Command{
	Name:  "balance",
	Usage: "show the balance of the account",
	Flags: []cli.Flag{
		walletFlag, accountFlag,
		&cli.BoolFlag{
			Name:  "refresh",
			Usage: "fetch the balance of every address from the network",
		},
	},
	Action: func(c *cli.Context) error {
		refresh := c.Bool("refresh")
		return withDaemon(c, refresh, func(ctx context.Context, d *daemon) error {
			var (
				b   domain.Balance
				err error
			)
			if refresh {
				b, err = d.svc.RefreshBalance(ctx)
			} else {
				b, err = d.svc.Balance(ctx)
			}
			if err != nil {
				return err
			}
			return printJSON(balanceInfo(b))
		})
	},
}

var transactions = cli.Command{
	Name:  "transactions",
	Usage: "list the txs of the account, newest first",
	Flags: []cli.Flag{walletFlag, accountFlag},
	Action: func(c *cli.Context) error {
		return withDaemon(c, false, func(ctx context.Context, d *daemon) error {
			txs, err := d.svc.Transactions(ctx)
			if err != nil {
				return err
			}
			list := make([]map[string]interface{}, 0, len(txs))
			for _, tx := range txs {
				list = append(list, txInfo(tx))
			}
			return printJSON(list)
		})
	},
}

var addresses = cli.Command{
	Name:  "addresses",
	Usage: "list the watched addresses of the account",
	Flags: []cli.Flag{walletFlag, accountFlag},
	Action: func(c *cli.Context) error {
		return withDaemon(c, false, func(ctx context.Context, d *daemon) error {
			list, err := d.svc.Addresses(ctx)
			if err != nil {
				return err
			}
			resp := make([]map[string]interface{}, 0, len(list))
			for _, a := range list {
				resp = append(resp, addressInfo(a))
			}
			return printJSON(resp)
		})
	},
}

var receive = cli.Command{
	Name:  "receive",
	Usage: "get the first unused receiving address of the account",
	Flags: []cli.Flag{walletFlag, accountFlag},
	Action: func(c *cli.Context) error {
		return withDaemon(c, false, func(ctx context.Context, d *daemon) error {
			addr, err := d.svc.NextReceiveAddress(ctx)
			if err != nil {
				return err
			}
			return printJSON(addressInfo(*addr))
		})
	},
}

var change = cli.Command{
	Name:  "change",
	Usage: "get the first unused change address of the account",
	Flags: []cli.Flag{walletFlag, accountFlag},
	Action: func(c *cli.Context) error {
		return withDaemon(c, false, func(ctx context.Context, d *daemon) error {
			addr, err := d.svc.NextChangeAddress(ctx)
			if err != nil {
				return err
			}
			return printJSON(addressInfo(*addr))
		})
	},
}

func balanceInfo(b domain.Balance) map[string]string {
	return map[string]string{
		"confirmed":       formatDuffs(int64(b.Confirmed)),
		"pending":         formatDuffs(int64(b.Pending)),
		"instant_locked":  formatDuffs(int64(b.InstantLocked)),
		"mempool":         formatDuffs(int64(b.Mempool)),
		"mempool_instant": formatDuffs(int64(b.MempoolInstant)),
		"total":           formatDuffs(int64(b.Total)),
	}
}

func txInfo(tx domain.Transaction) map[string]interface{} {
	info := map[string]interface{}{
		"txid":           tx.TxID,
		"amount":         formatDuffs(tx.Amount),
		"fee":            formatDuffs(int64(tx.Fee)),
		"confirmations":  tx.Confirmations,
		"instant_locked": tx.InstantLocked,
		"time":           time.Unix(tx.Timestamp, 0).UTC().Format(time.RFC3339),
	}
	if tx.Height != nil {
		info["height"] = *tx.Height
	}
	return info
}

func addressInfo(a domain.WatchedAddress) map[string]interface{} {
	return map[string]interface{}{
		"address":         a.Address,
		"chain":           a.Chain.String(),
		"index":           a.Index,
		"derivation_path": a.DerivationPath,
		"used":            a.Used,
		"balance":         formatDuffs(int64(a.Balance.Total)),
		"tx_count":        len(a.TxIDs),
	}
}

// formatDuffs returns the amount in DASH with all its decimals.
func formatDuffs(duffs int64) string {
	return decimal.New(duffs, -duffsPrecision).StringFixed(duffsPrecision)
}
