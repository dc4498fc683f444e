package passwd

import (
	"fmt"
	"strings"
	"time"
)

// expiresLayout is the date format of the expires= policy flag.
const expiresLayout = "2006-01-02"

// Policy is the account standing stored in the third passwd field as a
// comma-separated flag list, e.g. "locked,expires=2027-01-31,must_change".
type Policy struct {
	// Locked denies unlocking regardless of the password.
	Locked bool

	// MustChange requires a credential change before the account may unlock.
	MustChange bool

	// Expires is the first day on which the account is expired.
	// The zero value means it never expires.
	Expires time.Time
}

// ParsePolicy parses a policy field. An empty field or "-" is the empty policy.
func ParsePolicy(field string) (Policy, error) {
	var p Policy
	field = strings.TrimSpace(field)
	if field == "" || field == "-" {
		return p, nil
	}

	for _, flag := range strings.Split(field, ",") {
		flag = strings.TrimSpace(flag)
		switch {
		case flag == "":
		case flag == "locked":
			p.Locked = true
		case flag == "must_change":
			p.MustChange = true
		case strings.HasPrefix(flag, "expires="):
			d, err := time.Parse(expiresLayout, strings.TrimPrefix(flag, "expires="))
			if err != nil {
				return Policy{}, fmt.Errorf("invalid expires flag %q: %w", flag, err)
			}
			p.Expires = d
		default:
			return Policy{}, fmt.Errorf("unknown policy flag %q", flag)
		}
	}
	return p, nil
}

// String formats p as a policy field. The empty policy formats as "".
func (p Policy) String() string {
	var flags []string
	if p.Locked {
		flags = append(flags, "locked")
	}
	if p.MustChange {
		flags = append(flags, "must_change")
	}
	if !p.Expires.IsZero() {
		flags = append(flags, "expires="+p.Expires.Format(expiresLayout))
	}
	return strings.Join(flags, ",")
}

// Expired reports whether the account is expired at now.
func (p Policy) Expired(now time.Time) bool {
	return !p.Expires.IsZero() && !now.Before(p.Expires)
}

// entry is one parsed passwd line: username:hash[:policy].
type entry struct {
	username string
	hash     string
	policy   Policy
}

// parseEntry parses a non-comment passwd line.
func parseEntry(line string) (entry, error) {
	parts := strings.SplitN(line, ":", 3)
	if len(parts) < 2 || parts[0] == "" {
		return entry{}, fmt.Errorf("malformed passwd line")
	}
	e := entry{username: parts[0], hash: parts[1]}
	if len(parts) == 3 {
		p, err := ParsePolicy(parts[2])
		if err != nil {
			return entry{}, fmt.Errorf("user %q: %w", parts[0], err)
		}
		e.policy = p
	}
	return e, nil
}

func (e entry) String() string {
	if s := e.policy.String(); s != "" {
		return e.username + ":" + e.hash + ":" + s
	}
	return e.username + ":" + e.hash
}
