package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	app := cli.NewApp()

	app.Version = "0.0.1"
	app.Name = "swap CLI"
	app.Usage = "Command line interface for the swapd daemon"
	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:  "url",
			Usage: "base url of the swapd daemon",
			Value: "http://localhost:8080",
		},
	}
	app.Commands = append(
		app.Commands,
		&execute,
		&watch,
	)

	err := app.Run(os.Args)
	if err != nil {
		fatal(err)
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "[swap-cli] %v\n", err)
	os.Exit(1)
}
