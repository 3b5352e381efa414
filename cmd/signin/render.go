package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shindakun/signin/internal/models"
	"github.com/shindakun/signin/internal/view"
)

var renderRoutes = map[string]string{
	models.RouteLogin:           "/login",
	models.RouteRegister:        "/register",
	models.RoutePasswordRequest: "/password/reset",
	models.RouteSocialRedirect:  "/auth/{provider}/redirect",
}

type renderOptions struct {
	email       string
	remember    bool
	status      string
	errors      []string
	providers   []string
	routes      map[string]string
	csrfToken   string
	assetPrefix string
}

func newRenderCmd() *cobra.Command {
	opts := renderOptions{}

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render the login page to stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := opts.pageData()
			if err != nil {
				return err
			}
			return view.Render(cmd.OutOrStdout(), data)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.email, "email", "", "previously submitted email")
	f.BoolVar(&opts.remember, "remember", false, "render the remember checkbox checked")
	f.StringVar(&opts.status, "status", "", "status banner text")
	f.StringArrayVar(&opts.errors, "error", nil, "field error as field=message (repeatable)")
	f.StringSliceVar(&opts.providers, "provider", nil, "enabled social providers (google, github, facebook)")
	f.StringToStringVar(&opts.routes, "route", nil, "route override as name=path (repeatable)")
	f.StringVar(&opts.csrfToken, "csrf-token", "", "CSRF token for the hidden field")
	f.StringVar(&opts.assetPrefix, "asset-prefix", view.DefaultAssetPrefix, "URL prefix for the stylesheet and script")

	return cmd
}

func (o renderOptions) pageData() (models.LoginPageData, error) {
	errs := models.ValidationErrors{}
	for _, e := range o.errors {
		field, msg, ok := strings.Cut(e, "=")
		if !ok || field == "" {
			return models.LoginPageData{}, fmt.Errorf("invalid --error %q, want field=message", e)
		}
		errs.Add(field, msg)
	}

	var ids []string
	for _, p := range o.providers {
		if _, ok := models.ParseProvider(p); !ok {
			return models.LoginPageData{}, fmt.Errorf("unknown provider %q", p)
		}
		ids = append(ids, p)
	}

	routes := models.RouteTable{}
	for name, path := range renderRoutes {
		routes[name] = path
	}
	for name, path := range o.routes {
		if path == "" {
			delete(routes, name)
			continue
		}
		routes[name] = path
	}

	old := models.OldInput{"email": o.email}
	if o.remember {
		old["remember"] = "on"
	}

	return models.LoginPageData{
		Errors:      errs,
		Old:         old,
		Status:      o.status,
		Providers:   models.NewProviderSet(ids...),
		Routes:      routes,
		CSRFToken:   o.csrfToken,
		AssetPrefix: o.assetPrefix,
	}, nil
}
