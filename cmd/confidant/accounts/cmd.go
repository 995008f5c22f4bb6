package accounts

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/avelar/confidant/credstore"
	"github.com/avelar/confidant/internal/cmdflags"
	"github.com/avelar/confidant/resolver"
	"github.com/urfave/cli/v2"
)

func Cmd() *cli.Command {
	var store *credstore.Store
	storeDir := "confidant-store"
	return &cli.Command{
		Name:  "accounts",
		Usage: "Manage accounts directly on the store, without going through the web application.",
		Flags: []cli.Flag{
			cmdflags.Store(&storeDir),
		},
		Before: func(ctx *cli.Context) error {
			var err error
			store, err = credstore.Open(ctx.Context, storeDir, true)
			return err
		},
		After: func(ctx *cli.Context) error {
			if store == nil {
				return nil
			}
			return store.Close()
		},
		Subcommands: []*cli.Command{
			registerCmd(&store),
			listCmd(&store),
		},
	}
}

func registerCmd(store **credstore.Store) *cli.Command {
	var email string
	return &cli.Command{
		Name:  "register",
		Usage: "Register a new account (password is read from stdin)",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "email",
				Aliases:     []string{"e"},
				Usage:       "Email of the account to register",
				Destination: &email,
				Required:    true,
			},
		},
		Action: func(ctx *cli.Context) error {
			sc := bufio.NewScanner(os.Stdin)
			if !sc.Scan() {
				return sc.Err()
			}
			password := strings.TrimSpace(sc.Text())
			if len(password) == 0 {
				return errors.New("missing password from stdin")
			}
			res := resolver.New(*store, resolver.NewVerifier())
			_, err := res.ResolveLocal(ctx.Context, email, password, resolver.IntentRegister)
			return err
		},
	}
}

func listCmd(store **credstore.Store) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List every registered email",
		Action: func(ctx *cli.Context) error {
			emails, err := (*store).ListEmails(ctx.Context)
			if err != nil {
				return err
			}
			for _, e := range emails {
				fmt.Println(e)
			}
			return nil
		},
	}
}
