package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dashsync/walletsyncd/internal/core/domain"
	"github.com/urfave/cli/v2"
)

var genseed = cli.Command{
	Name:  "genseed",
	Usage: "generate a new 12 words mnemonic",
	Action: func(c *cli.Context) error {
		d, err := newDaemon()
		if err != nil {
			return err
		}
		defer d.close()

		mnemonic, err := d.svc.GenerateMnemonic()
		if err != nil {
			return err
		}
		fmt.Println(strings.Join(mnemonic, " "))
		return nil
	},
}

var create = cli.Command{
	Name:  "create",
	Usage: "create a new wallet from a mnemonic, generating one if missing",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "mnemonic",
			Usage: "space separated list of words",
		},
		passphraseFlag,
	},
	Action: func(c *cli.Context) error {
		d, err := newDaemon()
		if err != nil {
			return err
		}
		defer d.close()

		mnemonic := strings.Fields(c.String("mnemonic"))
		generated := len(mnemonic) == 0
		if generated {
			if mnemonic, err = d.svc.GenerateMnemonic(); err != nil {
				return err
			}
		}

		w, err := d.svc.CreateWallet(c.Context, mnemonic, c.String(passphraseFlag.Name))
		if err != nil {
			return err
		}

		resp := map[string]interface{}{"wallet": walletInfo(*w)}
		if generated {
			resp["mnemonic"] = strings.Join(mnemonic, " ")
		}
		return printJSON(resp)
	},
}

var importxpub = cli.Command{
	Name:  "import",
	Usage: "import a watch-only wallet from an account extended public key",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "xpub",
			Usage:    "account extended public key",
			Required: true,
		},
	},
	Action: func(c *cli.Context) error {
		d, err := newDaemon()
		if err != nil {
			return err
		}
		defer d.close()

		w, err := d.svc.ImportWatchOnlyWallet(c.Context, c.String("xpub"))
		if err != nil {
			return err
		}
		return printJSON(map[string]interface{}{"wallet": walletInfo(*w)})
	},
}

var addaccount = cli.Command{
	Name:  "addaccount",
	Usage: "derive the next account of a wallet",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     walletFlag.Name,
			Usage:    walletFlag.Usage,
			Required: true,
		},
		passphraseFlag,
	},
	Action: func(c *cli.Context) error {
		d, err := newDaemon()
		if err != nil {
			return err
		}
		defer d.close()

		account, err := d.svc.AddAccount(
			c.Context, c.String(walletFlag.Name), c.String(passphraseFlag.Name),
		)
		if err != nil {
			return err
		}
		return printJSON(accountInfo(*account))
	},
}

var listwallets = cli.Command{
	Name:  "wallets",
	Usage: "list the stored wallets with their accounts",
	Action: func(c *cli.Context) error {
		d, err := newDaemon()
		if err != nil {
			return err
		}
		defer d.close()

		return listWallets(c.Context, d)
	},
}

var deletewallet = cli.Command{
	Name:  "delete",
	Usage: "delete a wallet with all its accounts, addresses and txs",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     walletFlag.Name,
			Usage:    walletFlag.Usage,
			Required: true,
		},
	},
	Action: func(c *cli.Context) error {
		d, err := newDaemon()
		if err != nil {
			return err
		}
		defer d.close()

		walletID := c.String(walletFlag.Name)
		if err := d.svc.DeleteWallet(c.Context, walletID); err != nil {
			return err
		}
		fmt.Printf("wallet %s deleted\n", walletID)
		return nil
	},
}

func listWallets(ctx context.Context, d *daemon) error {
	wallets, err := d.svc.ListWallets(ctx)
	if err != nil {
		return err
	}

	list := make([]map[string]interface{}, 0, len(wallets))
	for _, w := range wallets {
		accounts, err := d.svc.ListAccounts(ctx, w.ID)
		if err != nil {
			return err
		}
		info := walletInfo(w)
		accountList := make([]map[string]interface{}, 0, len(accounts))
		for _, a := range accounts {
			accountList = append(accountList, accountInfo(a))
		}
		info["accounts"] = accountList
		list = append(list, info)
	}
	return printJSON(list)
}

func walletInfo(w domain.Wallet) map[string]interface{} {
	info := map[string]interface{}{
		"id":         w.ID,
		"network":    w.Network.String(),
		"watch_only": w.WatchOnly,
		"created_at": time.Unix(w.CreatedAt, 0).UTC().Format(time.RFC3339),
	}
	if w.LastSyncedAt > 0 {
		info["last_synced_at"] = time.Unix(w.LastSyncedAt, 0).UTC().Format(time.RFC3339)
	}
	return info
}

func accountInfo(a domain.Account) map[string]interface{} {
	return map[string]interface{}{
		"id":                       a.ID,
		"index":                    a.Index,
		"derivation_path":          a.DerivationPath,
		"xpub":                     a.Xpub,
		"last_used_external_index": a.LastUsedExternalIndex,
		"last_used_internal_index": a.LastUsedInternalIndex,
		"balance":                  balanceInfo(a.Balance),
		"tx_count":                 len(a.TxIDs),
	}
}

func printJSON(resp interface{}) error {
	buf, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(buf))
	return nil
}
