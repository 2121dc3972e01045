package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/term"

	"nearaccount/account"
	"nearaccount/config"
	accerrors "nearaccount/core/errors"
	"nearaccount/crypto"
	"nearaccount/observability/logging"
	"nearaccount/rpc"
)

const (
	exitOK       = 0
	exitError    = 1
	exitUsage    = 2
	exitNotFound = 3
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

type cli struct {
	stdout  io.Writer
	stderr  io.Writer
	json    bool
	client  *rpc.Client
	timeout time.Duration
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("nearacct", flag.ContinueOnError)
	fs.SetOutput(stderr)
	cfgPath := fs.String("config", "", "path to a .toml or .yaml configuration file")
	rpcURL := fs.String("rpc", "", "override the RPC endpoint")
	network := fs.String("network", "", "network name (mainnet, testnet, localnet)")
	jsonOut := fs.Bool("json", false, "always print JSON")
	timeout := fs.Duration("timeout", 0, "overall deadline for the command")
	fs.Usage = func() { printUsage(stderr) }
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}
	rest := fs.Args()
	if len(rest) == 0 {
		printUsage(stderr)
		return exitUsage
	}

	if *network != "" {
		_ = os.Setenv(config.EnvNetwork, *network)
	}
	if *rpcURL != "" {
		_ = os.Setenv(config.EnvRPCURL, *rpcURL)
	}
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}

	logger := logging.SetupWithOptions("nearacct", cfg.Network.Name, logging.Options{
		Level:  firstNonEmpty(cfg.Logging.Level, "warn"),
		File:   cfg.Logging.File,
		Writer: stderr,
	})
	client, err := rpc.NewClient(cfg.Network.RPCURL,
		rpc.WithTimeout(cfg.Network.Timeout.Duration),
		rpc.WithAPIKey(cfg.Network.APIKey),
		rpc.WithRateLimit(cfg.Network.RequestsPerSecond, cfg.Network.Burst),
		rpc.WithLogger(logger),
	)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}

	c := &cli{
		stdout:  stdout,
		stderr:  stderr,
		json:    *jsonOut || !isTerminal(stdout),
		client:  client,
		timeout: *timeout,
	}
	return c.dispatch(rest[0], rest[1:])
}

func (c *cli) dispatch(command string, args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	switch command {
	case "status":
		status, err := c.client.Status(ctx)
		if err != nil {
			return c.fail(err)
		}
		return c.print(status, func(w io.Writer) {
			fmt.Fprintf(w, "Chain:   %s\n", status.ChainID)
			fmt.Fprintf(w, "Height:  %d\n", status.SyncInfo.LatestBlockHeight)
			fmt.Fprintf(w, "Hash:    %s\n", status.SyncInfo.LatestBlockHash)
			fmt.Fprintf(w, "Syncing: %t\n", status.SyncInfo.Syncing)
		})
	case "state", "balance", "keys":
		if len(args) != 1 {
			fmt.Fprintf(c.stderr, "Error: %s requires an account id.\n", command)
			printUsage(c.stderr)
			return exitUsage
		}
		acct, code := c.account(args[0])
		if acct == nil {
			return code
		}
		switch command {
		case "state":
			return c.state(ctx, acct)
		case "balance":
			return c.balance(ctx, acct)
		default:
			return c.keys(ctx, acct)
		}
	case "key":
		if len(args) != 2 {
			fmt.Fprintln(c.stderr, "Error: key requires an account id and a public key.")
			printUsage(c.stderr)
			return exitUsage
		}
		acct, code := c.account(args[0])
		if acct == nil {
			return code
		}
		publicKey, err := crypto.ParsePublicKey(args[1])
		if err != nil {
			fmt.Fprintf(c.stderr, "Error: %v\n", err)
			return exitUsage
		}
		return c.key(ctx, acct, publicKey)
	case "help":
		printUsage(c.stdout)
		return exitOK
	default:
		fmt.Fprintf(c.stderr, "Error: unknown command %q.\n", command)
		printUsage(c.stderr)
		return exitUsage
	}
}

func (c *cli) account(id string) (*account.Account, int) {
	id = strings.TrimSpace(id)
	if err := account.ValidateID(id); err != nil {
		fmt.Fprintf(c.stderr, "Error: %v\n", err)
		return nil, exitUsage
	}
	return account.New(c.client, id), exitOK
}

func (c *cli) state(ctx context.Context, acct *account.Account) int {
	state, err := acct.ViewState(ctx)
	if err != nil {
		return c.fail(err)
	}
	return c.print(state, func(w io.Writer) {
		fmt.Fprintf(w, "State for: %s\n", acct.AccountID())
		fmt.Fprintf(w, "  Amount:        %s\n", formatNEAR(state.Amount))
		fmt.Fprintf(w, "  Locked:        %s\n", formatNEAR(state.Locked))
		fmt.Fprintf(w, "  Storage usage: %d bytes\n", state.StorageUsage)
		fmt.Fprintf(w, "  Code hash:     %s\n", state.CodeHash)
		fmt.Fprintf(w, "  Block:         %d (%s)\n", state.BlockHeight, state.BlockHash)
	})
}

func (c *cli) balance(ctx context.Context, acct *account.Account) int {
	balance, err := acct.Balance(ctx)
	if err != nil {
		return c.fail(err)
	}
	return c.print(balance, func(w io.Writer) {
		fmt.Fprintf(w, "Balance for: %s\n", acct.AccountID())
		fmt.Fprintf(w, "  Total:        %s\n", formatNEAR(balance.Total))
		fmt.Fprintf(w, "  Staked:       %s\n", formatNEAR(balance.Staked))
		fmt.Fprintf(w, "  State staked: %s\n", formatNEAR(balance.StateStaked))
		fmt.Fprintf(w, "  Available:    %s\n", formatNEAR(balance.Available))
	})
}

func (c *cli) keys(ctx context.Context, acct *account.Account) int {
	list, err := acct.ViewAccessKeyList(ctx)
	if err != nil {
		return c.fail(err)
	}
	return c.print(list, func(w io.Writer) {
		fmt.Fprintf(w, "Access keys for: %s (%d)\n", acct.AccountID(), len(list.Keys))
		for _, entry := range list.Keys {
			fmt.Fprintf(w, "  - %s nonce=%d %s\n", entry.PublicKey, entry.AccessKey.Nonce, describePermission(entry.AccessKey.Permission))
		}
	})
}

func (c *cli) key(ctx context.Context, acct *account.Account, publicKey crypto.PublicKey) int {
	key, err := acct.ViewAccessKey(ctx, publicKey)
	if err != nil {
		return c.fail(err)
	}
	return c.print(key, func(w io.Writer) {
		fmt.Fprintf(w, "Access key %s on %s\n", publicKey, acct.AccountID())
		fmt.Fprintf(w, "  Nonce:      %d\n", key.Nonce)
		fmt.Fprintf(w, "  Permission: %s\n", describePermission(key.Permission))
	})
}

func (c *cli) print(payload any, human func(io.Writer)) int {
	if !c.json {
		human(c.stdout)
		return exitOK
	}
	encoder := json.NewEncoder(c.stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(payload); err != nil {
		fmt.Fprintf(c.stderr, "Error: encode output: %v\n", err)
		return exitError
	}
	return exitOK
}

func (c *cli) fail(err error) int {
	fmt.Fprintf(c.stderr, "Error: %v\n", err)
	if errors.Is(err, accerrors.ErrNotFound) {
		return exitNotFound
	}
	return exitError
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: nearacct [--config file] [--network name] [--rpc url] [--json] [--timeout d] <command> [args]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  status                      - Show the node's chain id and head block")
	fmt.Fprintln(w, "  state <account>             - Show the raw account state")
	fmt.Fprintln(w, "  balance <account>           - Show total, staked, storage-staked and available balance")
	fmt.Fprintln(w, "  keys <account>              - List access keys registered to the account")
	fmt.Fprintln(w, "  key <account> <public-key>  - Show one access key")
}
