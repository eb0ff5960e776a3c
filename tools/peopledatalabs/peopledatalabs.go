// Package peopledatalabs enriches people and companies through the People
// Data Labs API.
package peopledatalabs

import (
	"context"
	"encoding/json"
	"net/url"

	"github.com/interfaces-to/interfaces-to/internal/restapi"
	"github.com/interfaces-to/interfaces-to/tools"
)

const (
	TokenEnv = "PDL_API_KEY"

	defaultBaseURL = "https://api.peopledatalabs.com/v5"
)

type options struct {
	token   string
	baseURL string
}

type Option func(*options)

func WithToken(token string) Option {
	return func(o *options) { o.token = token }
}

func WithBaseURL(u string) Option {
	return func(o *options) { o.baseURL = u }
}

type pdl struct {
	api *restapi.Client
}

// New builds the PeopleDataLabs tool set. It fails when no API key is configured.
func New(only []string, opts ...Option) (*tools.Set, error) {
	o := options{baseURL: defaultBaseURL}
	for _, opt := range opts {
		opt(&o)
	}
	token, err := tools.Credential(o.token, TokenEnv)
	if err != nil {
		return nil, err
	}
	p := &pdl{api: restapi.New(o.baseURL, restapi.WithHeader("X-Api-Key", token))}

	return tools.NewSet("PeopleDataLabs", []tools.Spec{
		{
			Name: "find_person",
			Description: "Get details about a person using their LinkedIn/Facebook/Twitter/GitHub/Instagram/Indeed url, " +
				"email address, LinkedIn ID or phone number",
			Parameters: tools.Object(map[string]*tools.Schema{
				"profile_url": tools.String("The LinkedIn/Facebook/Twitter/GitHub/Instagram/Indeed url of the person e.g. https://linkedin.com/in/seanthorne"),
				"email":       tools.String("The email address of the person e.g. renee.c.paulsen1959@yahoo.com"),
				"linkedin_id": tools.String("The LinkedIn ID of the person e.g. 145991517"),
				"phone":       tools.String("The phone number of the person. For best results, use +[country code]. e.g. +1 555-234-1234"),
			}),
			Handler: p.findPerson,
		},
		{
			Name:        "find_company",
			Description: "Get details about a company using their domain, company name, ticker symbol or social media profile",
			Parameters: tools.Object(map[string]*tools.Schema{
				"domain":       tools.String("The domain of the company e.g. google.com"),
				"company_name": tools.String("The name of the company e.g. Google, Inc."),
				"ticker":       tools.String("The stock ticker of the company e.g. GOOGL"),
				"profile_url":  tools.String("The social profile url of the company e.g. linkedin.com/company/google"),
			}),
			Handler: p.findCompany,
		},
	}, tools.Only(only...))
}

func (p *pdl) findPerson(ctx context.Context, args tools.Args) (*tools.Result, error) {
	query := pick(args, map[string]string{
		"profile_url": "profile",
		"email":       "email",
		"linkedin_id": "lid",
		"phone":       "phone",
	})
	if len(query) == 0 {
		return tools.Text("At least one of the parameters must be provided"), nil
	}
	return p.enrich(ctx, "/person/enrich", query), nil
}

func (p *pdl) findCompany(ctx context.Context, args tools.Args) (*tools.Result, error) {
	if args.String("domain") == "" && args.String("company_name") == "" {
		return tools.Text("At least one of the parameters must be provided"), nil
	}
	query := pick(args, map[string]string{
		"domain":       "website",
		"company_name": "name",
		"ticker":       "ticker",
		"profile_url":  "profile",
	})
	return p.enrich(ctx, "/company/enrich", query), nil
}

func (p *pdl) enrich(ctx context.Context, path string, query url.Values) *tools.Result {
	var out json.RawMessage
	if err := p.api.Get(ctx, path, query, &out); err != nil {
		return tools.Text("Error: %v", err)
	}
	return tools.Text("Response: %s", out)
}

// pick maps the non-empty arguments to their API parameter names.
func pick(args tools.Args, names map[string]string) url.Values {
	query := url.Values{}
	for arg, param := range names {
		if v := args.String(arg); v != "" {
			query.Set(param, v)
		}
	}
	return query
}
