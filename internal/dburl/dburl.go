// Package dburl fixes the percent-encoding of credentials in database
// connection URLs.
package dburl

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// EnvVars are checked in order; the first non-empty one wins.
var EnvVars = []string{"SUPABASE_DB_URL", "DATABASE_URL"}

// ErrNoURL is returned when none of EnvVars is set.
var ErrNoURL = errors.New("no database URL in environment")

// Lookup returns the first non-empty variable from EnvVars and its name.
func Lookup(getenv func(string) string) (name, value string, err error) {
	for _, v := range EnvVars {
		if s := strings.TrimSpace(getenv(v)); s != "" {
			return v, s, nil
		}
	}
	return "", "", fmt.Errorf("%w: set %s", ErrNoURL, strings.Join(EnvVars, " or "))
}

// Encode percent-encodes the user and password of raw. Parts that are
// already valid percent-encoding are decoded first, so Encode is idempotent.
// The host is taken to start after the last "@" outside the query, which
// lets passwords contain a raw "@". URLs without userinfo are returned as is.
func Encode(raw string) (string, error) {
	scheme, rest, ok := strings.Cut(raw, "://")
	if !ok || scheme == "" {
		return "", fmt.Errorf("not a URL: missing scheme")
	}

	at := userinfoEnd(rest)
	if at < 0 {
		return raw, nil
	}

	userinfo, hostAndRest := rest[:at], rest[at+1:]
	user, pass, hasPass := strings.Cut(userinfo, ":")

	var ui *url.Userinfo
	if hasPass {
		ui = url.UserPassword(decode(user), decode(pass))
	} else {
		ui = url.User(decode(user))
	}
	return scheme + "://" + ui.String() + "@" + hostAndRest, nil
}

// userinfoEnd returns the index of the "@" ending the userinfo, or -1.
// Hosts never contain "@", so the last one before the query is taken. The
// query or fragment starts at the first "?" or "#" after the first "/";
// earlier ones belong to the password.
func userinfoEnd(rest string) int {
	end := len(rest)
	if slash := strings.IndexByte(rest, '/'); slash >= 0 {
		if q := strings.IndexAny(rest[slash:], "?#"); q >= 0 {
			end = slash + q
		}
	}
	return strings.LastIndex(rest[:end], "@")
}

func decode(s string) string {
	if d, err := url.PathUnescape(s); err == nil {
		return d
	}
	return s
}
