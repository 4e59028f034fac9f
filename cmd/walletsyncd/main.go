package main

import (
	"fmt"
	"os"

	"github.com/dashsync/walletsyncd/internal/config"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var (
	walletFlag = &cli.StringFlag{
		Name:  "wallet",
		Usage: "id of the wallet to use, defaults to the first one created",
	}
	accountFlag = &cli.UintFlag{
		Name:  "account",
		Usage: "index of the wallet account to use",
	}
	passphraseFlag = &cli.StringFlag{
		Name:     "passphrase",
		Usage:    "passphrase used to encrypt the wallet seed",
		Required: true,
	}
)

func main() {
	app := cli.NewApp()

	app.Version = "0.1.0"
	app.Name = "walletsyncd"
	app.Usage = "Dash HD wallet address discovery and sync daemon"
	app.Before = func(c *cli.Context) error {
		if err := config.InitConfig(); err != nil {
			return err
		}
		return initLogger()
	}
	app.After = func(c *cli.Context) error {
		closeLogger()
		return nil
	}
	app.Commands = append(
		app.Commands,
		&start,
		&genseed,
		&create,
		&importxpub,
		&addaccount,
		&listwallets,
		&deletewallet,
		&discover,
		&syncwallet,
		&balance,
		&transactions,
		&addresses,
		&receive,
		&change,
		&webhook,
	)

	if err := app.Run(os.Args); err != nil {
		fatal(err)
	}
}

func fatal(err error) {
	log.WithError(err).Debug("exiting with error")
	fmt.Fprintf(os.Stderr, "[walletsyncd] %v\n", err)
	os.Exit(1)
}
