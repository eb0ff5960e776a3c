// Package slack lets the model post to Slack channels.
package slack

import (
	"context"
	"log/slog"
	"strings"

	"github.com/slack-go/slack"

	"github.com/interfaces-to/interfaces-to/tools"
)

// TokenEnv holds the bot token used when none is configured.
const TokenEnv = "SLACK_BOT_TOKEN"

type options struct {
	token  string
	apiURL string
}

type Option func(*options)

func WithToken(token string) Option {
	return func(o *options) { o.token = token }
}

// WithAPIURL points the client at another Web API root. It must end in "/".
func WithAPIURL(u string) Option {
	return func(o *options) { o.apiURL = u }
}

type sender struct {
	api *slack.Client
}

// New builds the Slack tool set. It fails when no bot token is configured.
func New(only []string, opts ...Option) (*tools.Set, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	token, err := tools.Credential(o.token, TokenEnv)
	if err != nil {
		return nil, err
	}
	var clientOpts []slack.Option
	if o.apiURL != "" {
		clientOpts = append(clientOpts, slack.OptionAPIURL(o.apiURL))
	}
	s := &sender{api: slack.New(token, clientOpts...)}

	return tools.NewSet("Slack", []tools.Spec{
		{
			Name:        "send_slack_message",
			Description: "Send a message to a Slack channel",
			Parameters: tools.Object(map[string]*tools.Schema{
				"channel": tools.String("The Slack channel, e.g. general. Always omit the # symbol"),
				"message": tools.String("The message to send to the Slack channel"),
			}, "channel", "message"),
			Handler: s.send,
		},
	}, tools.Only(only...))
}

func (s *sender) send(ctx context.Context, args tools.Args) (*tools.Result, error) {
	name := strings.TrimPrefix(args.String("channel"), "#")
	message := args.String("message")

	channel, err := s.find(ctx, name)
	if err != nil {
		return tools.Text("Error retrieving channels: %v", err), nil
	}
	if channel == nil {
		return tools.Text("Channel %s not found", name), nil
	}

	if !channel.IsMember {
		if _, _, _, err := s.api.JoinConversationContext(ctx, channel.ID); err != nil {
			slog.WarnContext(ctx, "failed to join slack channel", "channel", name, "error", err)
		} else {
			slog.DebugContext(ctx, "joined slack channel", "channel", name)
		}
	}

	_, ts, err := s.api.PostMessageContext(ctx, channel.ID, slack.MsgOptionText(message, false))
	if err != nil {
		return tools.Text("Error sending message: %v", err), nil
	}
	return tools.Text("Message sent to %s with timestamp %s: %s", name, ts, message), nil
}

// find pages through the workspace's public channels looking for name.
func (s *sender) find(ctx context.Context, name string) (*slack.Channel, error) {
	params := &slack.GetConversationsParameters{ExcludeArchived: true, Limit: 200}
	for {
		channels, cursor, err := s.api.GetConversationsContext(ctx, params)
		if err != nil {
			return nil, err
		}
		for i := range channels {
			if channels[i].Name == name {
				return &channels[i], nil
			}
		}
		if cursor == "" {
			return nil, nil
		}
		params.Cursor = cursor
	}
}
