package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"github.com/iliyamo/jam-session-queue/internal/config"
	"github.com/iliyamo/jam-session-queue/internal/middleware"
	"github.com/iliyamo/jam-session-queue/internal/utils"
)

func runToken(args []string, out io.Writer) error {
	fs := pflag.NewFlagSet("token", pflag.ContinueOnError)
	secret := fs.String("secret", os.Getenv("JWT_SECRET"), "signing secret (default $JWT_SECRET)")
	user := fs.Uint64("user", 0, "user id placed in the sub claim")
	role := fs.String("role", middleware.RoleGuest, "role claim: GUEST or STAFF")
	ttl := fs.Duration("ttl", config.AccessTokenTTL(), "token lifetime, from $ACCESS_TOKEN_TTL_MIN minutes when unset")
	asJSON := fs.Bool("json", false, "print token and expiry as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *secret == "" {
		return fmt.Errorf("--secret or JWT_SECRET is required")
	}
	if *user == 0 {
		return fmt.Errorf("--user is required")
	}
	r := strings.ToUpper(*role)
	if r != middleware.RoleGuest && r != middleware.RoleStaff {
		return fmt.Errorf("unknown role %q", *role)
	}

	tok, err := utils.NewAccessToken(*secret, *user, r, *ttl)
	if err != nil {
		return err
	}
	if *asJSON {
		return json.NewEncoder(out).Encode(tok)
	}
	_, err = fmt.Fprintln(out, tok.Token)
	return err
}
