package command

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/sabertooth-go/internal/cli/connection"
	"github.com/yndnr/sabertooth-go/internal/cli/repl"
)

// ShutdownCommand asks the server to drain and exit.
func ShutdownCommand() *cli.Command {
	return &cli.Command{
		Name:  "shutdown",
		Usage: "gracefully stop the server",
		Action: func(c *cli.Context) error {
			return runConsole(c, "shutdown")
		},
	}
}

// ShellCommand opens an interactive console session.
func ShellCommand() *cli.Command {
	return &cli.Command{
		Name:  "shell",
		Usage: "interactive console session over the socket",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "history",
				Usage: "history file, empty to disable",
				Value: repl.DefaultHistoryPath(),
			},
		},
		Action: func(c *cli.Context) error {
			client := socketClient(c)
			if err := client.Connect(); err != nil {
				return err
			}
			defer client.Close()

			history := repl.NewHistory(c.String("history"))
			if err := history.Load(); err != nil {
				fmt.Fprintf(c.App.ErrWriter, "warning: history not loaded: %v\n", err)
			}
			defer history.Save()

			in := c.App.Reader
			if in == nil {
				in = os.Stdin
			}
			err := repl.New(in, stdout(c), shellExecutor(client), history).Run()
			if errors.Is(err, repl.ErrServerGone) {
				return nil
			}
			return err
		},
	}
}

// shellExecutor forwards lines to the console. Transport failures and a
// completed shutdown end the shell.
func shellExecutor(client *connection.SocketClient) repl.Executor {
	return func(line string) (string, error) {
		body, err := client.Execute(line)
		var cmdErr *connection.CommandError
		switch {
		case errors.As(err, &cmdErr):
			return body, err
		case err != nil:
			return body, fmt.Errorf("%w: %v", repl.ErrServerGone, err)
		case line == "shutdown":
			return body, repl.ErrServerGone
		}
		return body, nil
	}
}
