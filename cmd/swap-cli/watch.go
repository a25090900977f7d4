package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/urfave/cli/v2"
)

var watch = cli.Command{
	Name:  "watch",
	Usage: "stream the events of an order until a terminal status",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "order-id",
			Usage:    "id of the order to watch",
			Required: true,
		},
	},
	Action: watchAction,
}

func watchAction(ctx *cli.Context) error {
	return streamOrderEvents(ctx.String("url"), ctx.String("order-id"))
}

func streamOrderEvents(baseUrl, orderId string) error {
	wsUrl, err := toWebSocketUrl(baseUrl, orderId)
	if err != nil {
		return err
	}

	conn, _, err := websocket.DefaultDialer.Dial(wsUrl, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var event map[string]interface{}
		if err := json.Unmarshal(msg, &event); err != nil {
			continue
		}
		pretty, _ := json.MarshalIndent(event, "", "  ")
		fmt.Println(string(pretty))

		status, _ := event["status"].(string)
		if status == "confirmed" || status == "failed" {
			return nil
		}
	}
}

func toWebSocketUrl(baseUrl, orderId string) (string, error) {
	u, err := url.Parse(baseUrl)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/api/orders/execute"
	u.RawQuery = url.Values{"orderId": []string{orderId}}.Encode()
	return u.String(), nil
}
