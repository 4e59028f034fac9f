package main

import (
	"fmt"
	"sort"

	"github.com/dashsync/walletsyncd/internal/config"
	"github.com/dashsync/walletsyncd/internal/core/ports"
	"github.com/dashsync/walletsyncd/internal/infrastructure/pubsub"
	"github.com/urfave/cli/v2"
)

var webhook = cli.Command{
	Name:  "webhook",
	Usage: "manage the endpoints notified of wallet events",
	Subcommands: []*cli.Command{
		&addWebhook, &removeWebhook, &listWebhooks,
	},
}

var addWebhook = cli.Command{
	Name:  "add",
	Usage: "register an endpoint for a topic",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name: "topic",
			Usage: fmt.Sprintf(
				"one of %s, %s, %s or %s for every topic",
				pubsub.SyncCompleted, pubsub.BalanceChanged,
				pubsub.ConnectionChanged, pubsub.AllTopics,
			),
			Value: pubsub.AllTopics.String(),
		},
		&cli.StringFlag{
			Name:     "endpoint",
			Usage:    "the URL receiving the POST requests",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "secret",
			Usage: "optional secret used to sign the Authorization token",
		},
	},
	Action: func(c *cli.Context) error {
		return withPubSub(func(ps ports.PubSub) error {
			id, err := ps.Subscribe(
				c.String("topic"), c.String("endpoint"), c.String("secret"),
			)
			if err != nil {
				return err
			}
			return printJSON(map[string]string{"id": id})
		})
	},
}

var removeWebhook = cli.Command{
	Name:  "remove",
	Usage: "remove a registered endpoint",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "id",
			Usage:    "the id of the subscription",
			Required: true,
		},
	},
	Action: func(c *cli.Context) error {
		return withPubSub(func(ps ports.PubSub) error {
			if err := ps.Unsubscribe(c.String("id")); err != nil {
				return err
			}
			fmt.Println("webhook removed")
			return nil
		})
	},
}

var listWebhooks = cli.Command{
	Name:  "list",
	Usage: "list the registered endpoints",
	Action: func(c *cli.Context) error {
		return withPubSub(func(ps ports.PubSub) error {
			list, err := listSubscriptions(ps)
			if err != nil {
				return err
			}
			return printJSON(list)
		})
	},
}

func newPubSub() (ports.PubSub, error) {
	return pubsub.NewService(pubsub.Opts{
		DBPath:         config.GetWebhooksDBPath(),
		RequestTimeout: config.GetDuration(config.WebhookRequestTimeoutKey),
	})
}

func withPubSub(fn func(ps ports.PubSub) error) error {
	ps, err := newPubSub()
	if err != nil {
		return err
	}
	defer ps.Close()
	return fn(ps)
}

// listSubscriptions returns every subscription once, whatever its topic.
func listSubscriptions(ps ports.PubSub) ([]map[string]interface{}, error) {
	seen := make(map[string]bool)
	list := make([]map[string]interface{}, 0)
	for _, topic := range ps.TopicsByCode() {
		subs, err := ps.ListSubscriptionsForTopic(topic.Label())
		if err != nil {
			return nil, err
		}
		for _, s := range subs {
			if seen[s.Id()] {
				continue
			}
			seen[s.Id()] = true
			list = append(list, map[string]interface{}{
				"id":       s.Id(),
				"topic":    s.Topic().Label(),
				"endpoint": s.NotifyAt(),
				"secured":  s.IsSecured(),
			})
		}
	}
	sort.SliceStable(list, func(i, j int) bool {
		return list[i]["id"].(string) < list[j]["id"].(string)
	})
	return list, nil
}
