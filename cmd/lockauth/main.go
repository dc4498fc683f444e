// Command lockauth checks a password for a screen locker.
//
// Usage:
//
//	lockauth <account>
//
// The password is read as one line from standard input within the
// configured timeout. The result is reported only through the exit status:
//
//	0    authenticated and account in good standing
//	10   account does not exist
//	11   password did not match
//	12   other authentication failure
//	20   account expired
//	21   password change required
//	22   account locked or denied by policy
//	23   other account standing failure
//	100  invalid invocation
//	101  failed to read the password
//	102  backend initialization failed
//	103  timed out waiting for the password
//	104  error while waiting for input
//
// The configuration file is read from LOCKAUTH_CONFIG, or
// /etc/lockauth/config.toml if that is not set.
package main

import (
	"context"
	"os"

	"github.com/infodancer/lockauth/helper"
	_ "github.com/infodancer/lockauth/pamauth"
	_ "github.com/infodancer/lockauth/passwd"
)

func main() {
	os.Exit(helper.Main(context.Background(), os.Args[1:], os.Stdin, os.Stderr))
}
