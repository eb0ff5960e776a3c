// Package airtable lets the model browse and add to Airtable bases.
package airtable

import (
	"context"
	"encoding/json"
	"net/url"

	"github.com/interfaces-to/interfaces-to/internal/restapi"
	"github.com/interfaces-to/interfaces-to/tools"
)

const (
	// TokenEnv holds the personal access token used when none is configured.
	TokenEnv = "AIRTABLE_TOKEN"

	defaultBaseURL = "https://api.airtable.com/v0"
)

type options struct {
	token   string
	baseURL string
}

type Option func(*options)

func WithToken(token string) Option {
	return func(o *options) { o.token = token }
}

// WithBaseURL points the set at another API root.
func WithBaseURL(u string) Option {
	return func(o *options) { o.baseURL = u }
}

type airtable struct {
	api *restapi.Client
}

// New builds the Airtable tool set. It fails when no token is configured.
func New(only []string, opts ...Option) (*tools.Set, error) {
	o := options{baseURL: defaultBaseURL}
	for _, opt := range opts {
		opt(&o)
	}
	token, err := tools.Credential(o.token, TokenEnv)
	if err != nil {
		return nil, err
	}
	// Airtable allows five requests per second per base.
	a := &airtable{api: restapi.New(o.baseURL, restapi.WithBearer(token), restapi.WithRateLimit(5, 5))}

	return tools.NewSet("Airtable", []tools.Spec{
		{
			Name:        "list_all_bases",
			Description: "List all bases in your Airtable account",
			Handler:     a.listAllBases,
		},
		{
			Name:        "get_base",
			Description: "Get schema of the specified base in your Airtable account, including tables and views, and their fields",
			Parameters: tools.Object(map[string]*tools.Schema{
				"base_id": tools.String("The ID of the base to retrieve the schema for."),
			}, "base_id"),
			Handler: a.getBase,
		},
		{
			Name:        "list_base_records",
			Description: "List records in a table in your Airtable account",
			Parameters: tools.Object(map[string]*tools.Schema{
				"base_id":          tools.String("The ID of the base."),
				"table_id_or_name": tools.String("The ID or name of the table."),
			}, "base_id", "table_id_or_name"),
			Handler: a.listBaseRecords,
		},
		{
			Name:        "create_base_records",
			Description: "Create records in a table in your Airtable account",
			Parameters: tools.Object(map[string]*tools.Schema{
				"base_id":          tools.String("The ID of the base."),
				"table_id_or_name": tools.String("The table ID or name of the table."),
				"records": tools.Array("A list of record objects to create, each with a fields object.",
					&tools.Schema{Type: "object"}),
			}, "base_id", "table_id_or_name", "records"),
			Handler: a.createBaseRecords,
		},
	}, tools.Only(only...))
}

type page struct {
	Bases   []json.RawMessage `json:"bases"`
	Records []json.RawMessage `json:"records"`
	Offset  string            `json:"offset"`
}

// collect follows offset pagination until the last page.
func (a *airtable) collect(ctx context.Context, path string, query url.Values, pick func(page) []json.RawMessage) ([]json.RawMessage, error) {
	var all []json.RawMessage
	for {
		var p page
		if err := a.api.Get(ctx, path, query, &p); err != nil {
			return nil, err
		}
		all = append(all, pick(p)...)
		if p.Offset == "" {
			return all, nil
		}
		query.Set("offset", p.Offset)
	}
}

func (a *airtable) listAllBases(ctx context.Context, _ tools.Args) (*tools.Result, error) {
	bases, err := a.collect(ctx, "/meta/bases", url.Values{}, func(p page) []json.RawMessage { return p.Bases })
	if err != nil {
		return errorText(err), nil
	}
	return jsonText(bases), nil
}

func (a *airtable) getBase(ctx context.Context, args tools.Args) (*tools.Result, error) {
	var schema json.RawMessage
	path := "/meta/bases/" + url.PathEscape(args.String("base_id")) + "/tables"
	if err := a.api.Get(ctx, path, nil, &schema); err != nil {
		return errorText(err), nil
	}
	return tools.Text("%s", string(schema)), nil
}

func (a *airtable) listBaseRecords(ctx context.Context, args tools.Args) (*tools.Result, error) {
	path := tablePath(args)
	records, err := a.collect(ctx, path, url.Values{"pageSize": {"100"}}, func(p page) []json.RawMessage { return p.Records })
	if err != nil {
		return errorText(err), nil
	}
	return jsonText(records), nil
}

func (a *airtable) createBaseRecords(ctx context.Context, args tools.Args) (*tools.Result, error) {
	var created json.RawMessage
	body := map[string]interface{}{"records": args["records"]}
	if err := a.api.Post(ctx, tablePath(args), body, &created); err != nil {
		return errorText(err), nil
	}
	return tools.Text("Response: %s", created), nil
}

func tablePath(args tools.Args) string {
	return "/" + url.PathEscape(args.String("base_id")) + "/" + url.PathEscape(args.String("table_id_or_name"))
}

func jsonText(items []json.RawMessage) *tools.Result {
	if items == nil {
		items = []json.RawMessage{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return errorText(err)
	}
	return tools.Text("%s", string(data))
}

func errorText(err error) *tools.Result {
	return tools.Text("Error: %v", err)
}
