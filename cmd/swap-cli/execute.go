package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/urfave/cli/v2"
)

var execute = cli.Command{
	Name:  "execute",
	Usage: "submit a market order and optionally follow its event stream",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "token-in",
			Usage:    "token to swap from",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "token-out",
			Usage:    "token to swap to",
			Required: true,
		},
		&cli.Float64Flag{
			Name:     "amount",
			Usage:    "amount of token-in to swap",
			Required: true,
		},
		&cli.Int64Flag{
			Name:  "slippage-bps",
			Usage: "slippage tolerance in basis points",
		},
		&cli.StringFlag{
			Name:  "idempotency-key",
			Usage: "client idempotency key for safe resubmission",
		},
		&cli.BoolFlag{
			Name:  "follow",
			Usage: "stream the order events until a terminal status",
		},
	},
	Action: executeAction,
}

func executeAction(ctx *cli.Context) error {
	body := map[string]interface{}{
		"orderType": "market",
		"tokenIn":   ctx.String("token-in"),
		"tokenOut":  ctx.String("token-out"),
		"amount":    ctx.Float64("amount"),
	}
	if slippageBps := ctx.Int64("slippage-bps"); slippageBps > 0 {
		body["slippageBps"] = slippageBps
	}
	buf, _ := json.Marshal(body)

	url := fmt.Sprintf("%s/api/orders/execute", ctx.String("url"))
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewBuffer(buf))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if key := ctx.String("idempotency-key"); key != "" {
		req.Header.Set("Idempotency-Key", key)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var reply map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("daemon replied with status %d: %v", resp.StatusCode, reply)
	}

	orderId, _ := reply["orderId"].(string)
	fmt.Println(orderId)

	if !ctx.Bool("follow") {
		return nil
	}
	return streamOrderEvents(ctx.String("url"), orderId)
}
