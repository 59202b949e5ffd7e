// Package cli implements the administrative login command.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/pflag"

	"nvrgate/internal/models"
	"nvrgate/internal/service"
)

const defaultSessionFlags = "http-only,secure,same-site,same-site-strict"

var ErrCookieJarNeedsDomain = errors.New("--curl-cookie-jar requires --domain")

type LoginArgs struct {
	ConfigPath  string
	Permissions *models.Permissions
	Domain      *string
	CookieJar   string
	Flags       models.SessionFlags
	Bearer      bool
	Username    string
}

// ParseLoginArgs parses and validates the command line. Nothing is opened or written.
func ParseLoginArgs(args []string, stderr io.Writer) (LoginArgs, error) {
	fs := pflag.NewFlagSet("login", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: login [flags] USERNAME")
		fmt.Fprintln(stderr, "Creates a session for USERNAME without requiring a password.")
		fs.PrintDefaults()
	}

	var (
		out         LoginArgs
		permissions string
		domain      string
		flagList    string
	)
	fs.StringVar(&out.ConfigPath, "config", "", "config file; default searches ./config.yaml, ./config, ../config")
	fs.StringVar(&permissions, "permissions", "", `session permissions as a JSON object, e.g. {"viewVideo": true}; default is the user's own`)
	fs.StringVar(&domain, "domain", "", "restricts the cookie to the given domain")
	fs.StringVar(&out.CookieJar, "curl-cookie-jar", "", "writes the cookie to a new curl-compatible cookie-jar file; requires --domain")
	fs.StringVar(&flagList, "session-flags", defaultSessionFlags, "comma-separated session flags")
	fs.BoolVar(&out.Bearer, "bearer", false, "also prints a bearer token wrapping the session")

	if err := fs.Parse(args); err != nil {
		return LoginArgs{}, err
	}

	if fs.NArg() != 1 {
		return LoginArgs{}, errors.New("exactly one USERNAME is required")
	}
	out.Username = fs.Arg(0)

	if fs.Changed("permissions") {
		var p models.Permissions
		if err := json.Unmarshal([]byte(permissions), &p); err != nil {
			return LoginArgs{}, fmt.Errorf("--permissions: %w", err)
		}
		out.Permissions = &p
	}
	if fs.Changed("domain") {
		out.Domain = &domain
	}

	flags, err := models.ParseSessionFlags(flagList)
	if err != nil {
		return LoginArgs{}, fmt.Errorf("--session-flags: %w", err)
	}
	out.Flags = flags

	if out.CookieJar != "" && (out.Domain == nil || *out.Domain == "") {
		return LoginArgs{}, ErrCookieJarNeedsDomain
	}
	return out, nil
}

type BearerConfig struct {
	Secret string
	TTL    time.Duration
}

// RunLogin issues the session and reports it on out.
func RunLogin(ctx context.Context, args LoginArgs, issuer *service.SessionIssuer, bearer BearerConfig, out io.Writer) error {
	if args.Bearer && bearer.Secret == "" {
		return errors.New("--bearer requires security.bearersecret to be configured")
	}

	issued, err := issuer.Issue(ctx, service.IssueRequest{
		Username:    args.Username,
		Permissions: args.Permissions,
		Domain:      args.Domain,
		Flags:       args.Flags,
	})
	if err != nil {
		return err
	}

	if args.CookieJar != "" {
		if err := issued.WriteCookieJar(args.CookieJar, *args.Domain); err != nil {
			return err
		}
		fmt.Fprintf(out, "Wrote cookie to %s\n", args.CookieJar)
	} else {
		fmt.Fprintln(out, issued.CookieValue())
	}

	if args.Bearer {
		token, err := service.IssueBearerToken(issued, bearer.Secret, bearer.TTL)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Authorization: Bearer %s\n", token)
	}
	return nil
}
