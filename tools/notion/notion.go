// Package notion lets the model search, read and write Notion pages and
// databases.
package notion

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/jomei/notionapi"

	"github.com/interfaces-to/interfaces-to/tools"
)

const TokenEnv = "NOTION_TOKEN"

type options struct {
	token      string
	httpClient *http.Client
}

type Option func(*options)

func WithToken(token string) Option {
	return func(o *options) { o.token = token }
}

func WithHTTPClient(h *http.Client) Option {
	return func(o *options) { o.httpClient = h }
}

type workspace struct {
	client *notionapi.Client
}

// New builds the Notion tool set. It fails when no integration token is
// configured.
func New(only []string, opts ...Option) (*tools.Set, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	token, err := tools.Credential(o.token, TokenEnv)
	if err != nil {
		return nil, err
	}
	var clientOpts []notionapi.ClientOption
	if o.httpClient != nil {
		clientOpts = append(clientOpts, notionapi.WithHTTPClient(o.httpClient))
	}
	w := &workspace{client: notionapi.NewClient(notionapi.Token(token), clientOpts...)}

	return tools.NewSet("Notion", []tools.Spec{
		{
			Name:        "search_notion",
			Description: "List all pages and databases in Notion and optionally filter by title",
			Parameters: tools.Object(map[string]*tools.Schema{
				"title": tools.String("A string to filter the results by title"),
			}),
			Handler: w.search,
		},
		{
			Name:        "query_notion_database",
			Description: "Query a database in Notion",
			Parameters: tools.Object(map[string]*tools.Schema{
				"database_id": tools.String("The ID of the database to query. To get a database ID, use the search_notion function."),
			}, "database_id"),
			Handler: w.queryDatabase,
		},
		{
			Name:        "create_notion_page",
			Description: "Create a page in Notion under a page or a database",
			Parameters: tools.Object(map[string]*tools.Schema{
				"parent_id": tools.String("The ID of the parent page or database to create the new page under."),
				"parent_type": {
					Type:        "string",
					Description: "Whether parent_id is a \"page\" or a \"database\".",
					Enum:        []interface{}{"page", "database"},
				},
				"title":          tools.String("The title of the new page"),
				"content":        tools.String("The text of the new page, one paragraph per line"),
				"title_property": tools.String("For database parents, the name of the database's title property. Defaults to Name."),
			}, "parent_id", "parent_type", "title"),
			Handler: w.createPage,
		},
		{
			Name:        "read_notion_page",
			Description: "Read the contents of a page in Notion",
			Parameters: tools.Object(map[string]*tools.Schema{
				"page_id": tools.String("The ID of the page to read."),
			}, "page_id"),
			Handler: w.readPage,
		},
	}, tools.Only(only...))
}

func (w *workspace) search(ctx context.Context, args tools.Args) (*tools.Result, error) {
	title := args.String("title")
	resp, err := w.client.Search.Do(ctx, &notionapi.SearchRequest{Query: title})
	if err != nil {
		return errorText(err), nil
	}
	filter := ""
	if title != "" {
		filter = ", filtered by: " + title
	}
	return response(resp, "Listing everything in Notion%s.", filter), nil
}

func (w *workspace) queryDatabase(ctx context.Context, args tools.Args) (*tools.Result, error) {
	id := args.String("database_id")
	resp, err := w.client.Database.Query(ctx, notionapi.DatabaseID(id), &notionapi.DatabaseQueryRequest{})
	if err != nil {
		return errorText(err), nil
	}
	return response(resp, "Querying database %s in Notion.", id), nil
}

func (w *workspace) createPage(ctx context.Context, args tools.Args) (*tools.Result, error) {
	parentID := args.String("parent_id")
	req := &notionapi.PageCreateRequest{
		Children: paragraphs(args.String("content")),
	}
	title := notionapi.TitleProperty{Title: richText(args.String("title"))}
	if args.String("parent_type") == "database" {
		prop := args.String("title_property")
		if prop == "" {
			prop = "Name"
		}
		req.Parent = notionapi.Parent{Type: notionapi.ParentTypeDatabaseID, DatabaseID: notionapi.DatabaseID(parentID)}
		req.Properties = notionapi.Properties{prop: title}
	} else {
		req.Parent = notionapi.Parent{Type: notionapi.ParentTypePageID, PageID: notionapi.PageID(parentID)}
		req.Properties = notionapi.Properties{"title": title}
	}

	page, err := w.client.Page.Create(ctx, req)
	if err != nil {
		return errorText(err), nil
	}
	return response(page, "Creating page in Notion under %s.", parentID), nil
}

func (w *workspace) readPage(ctx context.Context, args tools.Args) (*tools.Result, error) {
	id := args.String("page_id")
	page, err := w.client.Page.Get(ctx, notionapi.PageID(id))
	if err != nil {
		return errorText(err), nil
	}
	return response(page, "Reading page %s in Notion.", id), nil
}

func richText(s string) []notionapi.RichText {
	return []notionapi.RichText{{Type: notionapi.ObjectTypeText, Text: &notionapi.Text{Content: s}}}
}

func paragraphs(content string) []notionapi.Block {
	var blocks []notionapi.Block
	for _, line := range splitLines(content) {
		blocks = append(blocks, notionapi.ParagraphBlock{
			BasicBlock: notionapi.BasicBlock{Object: notionapi.ObjectTypeBlock, Type: notionapi.BlockTypeParagraph},
			Paragraph:  notionapi.Paragraph{RichText: richText(line)},
		})
	}
	return blocks
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == '\n' {
			if line := s[start:i]; line != "" {
				lines = append(lines, line)
			}
			start = i + 1
		}
	}
	return lines
}

func response(v interface{}, format string, a ...interface{}) *tools.Result {
	data, err := json.Marshal(v)
	if err != nil {
		return errorText(err)
	}
	head := tools.Text(format, a...).Content
	return tools.Text("%s Response: %s", head, data)
}

func errorText(err error) *tools.Result {
	return tools.Text("Error: %v", err)
}
