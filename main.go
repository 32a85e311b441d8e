package main

import (
	"context"
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/customeros/mailbridge/config"
	"github.com/customeros/mailbridge/server"
)

func newServer() (*server.Server, error) {
	cfg, err := config.InitConfig()
	if err != nil {
		return nil, err
	}
	return server.NewServer(cfg)
}

func runCommand(c *cli.Context) error {
	srv, err := newServer()
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	if err := srv.Run(c.Context); err != nil {
		return cli.Exit(err.Error(), 1)
	}
	return nil
}

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	app := &cli.App{
		Name:  "mailbridge",
		Usage: "forward new mail from an IMAP folder to Slack",
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "watch the mailbox until interrupted",
				Action: runCommand,
			},
			{
				Name:  "check",
				Usage: "verify IMAP, Slack and storage settings, then exit",
				Action: func(c *cli.Context) error {
					srv, err := newServer()
					if err != nil {
						return cli.Exit(err.Error(), 1)
					}
					if err := srv.Check(c.Context); err != nil {
						return cli.Exit(err.Error(), 1)
					}
					return nil
				},
			},
		},
		Action: runCommand,
	}

	if err := app.RunContext(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
