// Command lockauthctl manages accounts in lockauth passwd files.
//
// Usage:
//
//	lockauthctl [--passwd <path>] add    <user> [policy]   add user (prompts for password)
//	lockauthctl [--passwd <path>] del    <user>            remove user
//	lockauthctl [--passwd <path>] list                     list users and policies
//	lockauthctl [--passwd <path>] set    <user> <policy>   replace policy ("-" clears it)
//	lockauthctl [--passwd <path>] verify <user>            verify password and standing
//
// A policy is a comma-separated list of: locked, must_change, expires=YYYY-MM-DD.
// The passwd path can also be set via the LOCKAUTH_PASSWD environment variable.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"golang.org/x/term"

	"github.com/infodancer/lockauth/conversation"
	"github.com/infodancer/lockauth/outcome"
	"github.com/infodancer/lockauth/passwd"
	"github.com/infodancer/lockauth/secret"
	"github.com/infodancer/lockauth/verify"
)

func main() {
	fs := flag.NewFlagSet("lockauthctl", flag.ExitOnError)
	passwdPath := fs.String("passwd", os.Getenv("LOCKAUTH_PASSWD"), "path to passwd file")
	fs.Usage = usage

	if err := fs.Parse(os.Args[1:]); err != nil {
		os.Exit(1)
	}

	args := fs.Args()
	if len(args) < 1 {
		usage()
		os.Exit(1)
	}

	if *passwdPath == "" {
		fmt.Fprintln(os.Stderr, "error: --passwd path required (or set LOCKAUTH_PASSWD)")
		os.Exit(1)
	}

	subcmd, rest := args[0], args[1:]
	var err error

	switch {
	case subcmd == "add" && (len(rest) == 1 || len(rest) == 2):
		policy := ""
		if len(rest) == 2 {
			policy = rest[1]
		}
		err = cmdAdd(*passwdPath, rest[0], policy)

	case subcmd == "del" && len(rest) == 1:
		err = cmdDel(*passwdPath, rest[0])

	case subcmd == "list" && len(rest) == 0:
		err = cmdList(*passwdPath)

	case subcmd == "set" && len(rest) == 2:
		err = cmdSet(*passwdPath, rest[0], rest[1])

	case subcmd == "verify" && len(rest) == 1:
		os.Exit(cmdVerify(*passwdPath, rest[0]))

	default:
		fmt.Fprintf(os.Stderr, "unknown or malformed subcommand: %s\n", subcmd)
		usage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func cmdAdd(passwdPath, username, policyField string) error {
	policy, err := passwd.ParsePolicy(policyField)
	if err != nil {
		return err
	}

	password, err := promptPassword("Password: ")
	if err != nil {
		return err
	}
	defer clear(password)

	confirm, err := promptPassword("Confirm password: ")
	if err != nil {
		return err
	}
	defer clear(confirm)

	if string(password) != string(confirm) {
		return fmt.Errorf("passwords do not match")
	}

	if err := passwd.AddUser(passwdPath, username, password, policy); err != nil {
		return err
	}

	fmt.Printf("Added user %q\n", username)
	return nil
}

func cmdDel(passwdPath, username string) error {
	if err := passwd.DeleteUser(passwdPath, username); err != nil {
		return err
	}
	fmt.Printf("Deleted user %q\n", username)
	return nil
}

func cmdSet(passwdPath, username, policyField string) error {
	policy, err := passwd.ParsePolicy(policyField)
	if err != nil {
		return err
	}
	if err := passwd.SetPolicy(passwdPath, username, policy); err != nil {
		return err
	}
	fmt.Printf("Updated policy for %q\n", username)
	return nil
}

func cmdList(passwdPath string) error {
	users, err := passwd.ListUsers(passwdPath)
	if err != nil {
		return err
	}

	if len(users) == 0 {
		fmt.Println("no users")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(w, "USERNAME\tPOLICY"); err != nil {
		return err
	}
	for _, u := range users {
		policy := u.Policy.String()
		if policy == "" {
			policy = "-"
		}
		if _, err := fmt.Fprintf(w, "%s\t%s\n", u.Username, policy); err != nil {
			return err
		}
	}
	return w.Flush()
}

// cmdVerify runs the same verification as the lockauth helper against the
// passwd file and returns its exit status.
func cmdVerify(passwdPath, username string) int {
	buf := secret.NewBuffer(secret.DefaultCapacity)
	defer buf.Destroy()

	fmt.Fprint(os.Stderr, "Password: ")
	err := secret.Acquire(os.Stdin, buf, secret.DefaultTimeout)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return outcome.FromInputError(err).ExitStatus()
	}

	diag := conversation.NewDiagnostics(conversation.DefaultDiagnosticsCapacity)
	agent := passwd.NewAgent(passwdPath, slog.Default())
	defer func() { _ = agent.Close() }()

	code := verify.New(agent, nil).Run(context.Background(), username, buf, diag)
	fmt.Printf("%s: %s (exit status %d)\n", username, code, code.ExitStatus())
	return code.ExitStatus()
}

func promptPassword(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr) // newline after hidden input
	if err != nil {
		return nil, fmt.Errorf("read password: %w", err)
	}
	return raw, nil
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage:
  lockauthctl [--passwd <path>] add    <user> [policy]   add user (prompts for password)
  lockauthctl [--passwd <path>] del    <user>            remove user
  lockauthctl [--passwd <path>] list                     list users and policies
  lockauthctl [--passwd <path>] set    <user> <policy>   replace policy ("-" clears it)
  lockauthctl [--passwd <path>] verify <user>            verify password and standing

A policy is a comma-separated list of: locked, must_change, expires=YYYY-MM-DD.
The passwd path can also be set via LOCKAUTH_PASSWD.
`)
}
