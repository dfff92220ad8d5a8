package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"ssomgr/internal/console"
	"ssomgr/internal/domain"
)

const providersUsage = `Usage: ssoctl providers <subcommand>

Subcommands:
  list                         list all providers
  get <id>                     show one provider
  create [flags]               create a provider
  edit <id> [flags]            update fields of a provider
  delete <id> [--yes]          delete a provider (asks for confirmation)

Create/edit flags:
  --name, --type, --logo, --description, --enabled
  --set key=value              config entry, repeatable
`

func (a *app) cmdProviders(ctx context.Context, args []string) error {
	if err := a.requireLogin(); err != nil {
		return err
	}
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, providersUsage)
		return fmt.Errorf("providers requires a subcommand")
	}

	switch args[0] {
	case "list":
		return a.providersList(ctx)
	case "get":
		if len(args) < 2 {
			return fmt.Errorf("usage: ssoctl providers get <id>")
		}
		return a.providersGet(ctx, args[1])
	case "create":
		return a.providersCreate(ctx, args[1:])
	case "edit":
		if len(args) < 2 {
			return fmt.Errorf("usage: ssoctl providers edit <id> [flags]")
		}
		return a.providersEdit(ctx, args[1], args[2:])
	case "delete":
		if len(args) < 2 {
			return fmt.Errorf("usage: ssoctl providers delete <id> [--yes]")
		}
		return a.providersDelete(ctx, args[1], args[2:])
	default:
		fmt.Fprint(os.Stderr, providersUsage)
		return fmt.Errorf("unknown providers subcommand %q", args[0])
	}
}

func (a *app) providersList(ctx context.Context) error {
	providers := a.flows.List(ctx)
	if len(providers) == 0 {
		a.notifier.Info("no providers configured")
		return nil
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tTYPE\tENABLED\tCREATED")
	for _, p := range providers {
		created := time.UnixMilli(p.CreatedAt).UTC().Format("2006-01-02")
		fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%s\n", p.ID, p.Name, p.Type, p.IsEnabled, created)
	}
	return tw.Flush()
}

func (a *app) providersGet(ctx context.Context, id string) error {
	p := a.flows.Get(ctx, id)
	if p == nil {
		return fmt.Errorf("provider %q not found", id)
	}
	return printJSON(p)
}

func (a *app) providersCreate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("providers create", flag.ExitOnError)
	name := fs.String("name", "", "display name")
	typ := fs.String("type", "", "protocol type (OIDC, OAUTH2, SAML2, CAS)")
	logo := fs.String("logo", "", "logo URL")
	description := fs.String("description", "", "description")
	enabled := fs.Bool("enabled", false, "enable the provider")
	cfg := configFlag{}
	fs.Var(&cfg, "set", "config entry as key=value (repeatable)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	created, err := a.flows.Create(ctx, domain.CreateProvider{
		Name:        *name,
		Type:        domain.ProtocolType(*typ),
		Logo:        *logo,
		IsEnabled:   *enabled,
		Description: *description,
		Config:      cfg.values,
	})
	if err != nil {
		return err
	}
	return printJSON(created)
}

func (a *app) providersEdit(ctx context.Context, id string, args []string) error {
	fs := flag.NewFlagSet("providers edit", flag.ExitOnError)
	name := fs.String("name", "", "display name")
	typ := fs.String("type", "", "protocol type (OIDC, OAUTH2, SAML2, CAS)")
	logo := fs.String("logo", "", "logo URL")
	description := fs.String("description", "", "description")
	enabled := fs.Bool("enabled", false, "enable or disable the provider")
	cfg := configFlag{}
	fs.Var(&cfg, "set", "config entry as key=value (replaces the whole config, repeatable)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	// Only flags the user actually passed become update fields; everything
	// else is left untouched.
	var in domain.UpdateProvider
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "name":
			in.Name = name
		case "type":
			t := domain.ProtocolType(*typ)
			in.Type = &t
		case "logo":
			in.Logo = logo
		case "description":
			in.Description = description
		case "enabled":
			in.IsEnabled = enabled
		case "set":
			in.Config = &cfg.values
		}
	})

	updated, err := a.flows.Edit(ctx, id, in)
	if err != nil {
		return err
	}
	return printJSON(updated)
}

func (a *app) providersDelete(ctx context.Context, id string, args []string) error {
	fs := flag.NewFlagSet("providers delete", flag.ExitOnError)
	yes := fs.Bool("yes", false, "skip the confirmation prompt")
	if err := fs.Parse(args); err != nil {
		return err
	}

	confirmed := *yes
	if !confirmed {
		fmt.Fprintf(os.Stderr, "delete provider %q? [y/N]: ", id)
		var answer string
		fmt.Fscanln(os.Stdin, &answer)
		confirmed = strings.EqualFold(answer, "y") || strings.EqualFold(answer, "yes")
	}

	list := a.flows.List(ctx)
	_, err := a.flows.Delete(ctx, list, id, confirmed)
	if errors.Is(err, console.ErrNotConfirmed) {
		return nil
	}
	return err
}

// configFlag collects repeated key=value pairs into a map.
type configFlag struct {
	values map[string]string
}

func (f *configFlag) String() string {
	pairs := make([]string, 0, len(f.values))
	for k, v := range f.values {
		pairs = append(pairs, k+"="+v)
	}
	return strings.Join(pairs, ",")
}

func (f *configFlag) Set(s string) error {
	k, v, ok := strings.Cut(s, "=")
	if !ok || k == "" {
		return fmt.Errorf("expected key=value, got %q", s)
	}
	if f.values == nil {
		f.values = make(map[string]string)
	}
	f.values[k] = v
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
