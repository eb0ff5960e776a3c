package listeners

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"

	"github.com/interfaces-to/interfaces-to/session"
	"github.com/interfaces-to/interfaces-to/tools"
)

const (
	SlackAppTokenEnv = "SLACK_APP_TOKEN"
	SlackBotTokenEnv = "SLACK_BOT_TOKEN"
)

// Slack receives channel messages and mentions over Socket Mode.
type Slack struct {
	readiness
	appToken string
	botToken string
	logger   *slog.Logger
}

// NewSlack needs both an app-level token and a bot token.
func NewSlack(appToken, botToken string, logger *slog.Logger) (*Slack, error) {
	appToken, err := tools.Credential(appToken, SlackAppTokenEnv)
	if err != nil {
		return nil, err
	}
	botToken, err = tools.Credential(botToken, SlackBotTokenEnv)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Slack{readiness: newReadiness(), appToken: appToken, botToken: botToken, logger: logger}, nil
}

func (s *Slack) Name() string { return "Slack" }

func (s *Slack) Listen(ctx context.Context, inbox *session.Inbox) error {
	api := slack.New(s.botToken, slack.OptionAppLevelToken(s.appToken))
	auth, err := api.AuthTestContext(ctx)
	if err != nil {
		return err
	}
	client := socketmode.New(api)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-client.Events:
				if !ok {
					return
				}
				if evt.Type != socketmode.EventTypeEventsAPI {
					continue
				}
				if evt.Request != nil {
					client.Ack(*evt.Request)
				}
				event, ok := evt.Data.(slackevents.EventsAPIEvent)
				if !ok {
					continue
				}
				if m, ok := slackMessage(event, auth.UserID); ok {
					inbox.Push(m)
				}
			}
		}
	}()

	s.logger.InfoContext(ctx, "connected to slack", "team", auth.Team, "bot", auth.User)
	return client.RunContext(ctx)
}

// slackMessage converts a callback event into a user message. The bot's own
// messages are skipped, and so are channel messages mentioning the bot, which
// Slack also delivers as an app_mention event.
func slackMessage(event slackevents.EventsAPIEvent, botUserID string) (session.Message, bool) {
	if event.Type != slackevents.CallbackEvent {
		return session.Message{}, false
	}
	var user, channel, text string
	switch ev := event.InnerEvent.Data.(type) {
	case *slackevents.MessageEvent:
		if botUserID != "" && strings.Contains(ev.Text, "<@"+botUserID+">") {
			return session.Message{}, false
		}
		user, channel, text = ev.User, ev.Channel, ev.Text
	case *slackevents.AppMentionEvent:
		user, channel, text = ev.User, ev.Channel, ev.Text
	default:
		return session.Message{}, false
	}
	if user == "" || user == botUserID {
		return session.Message{}, false
	}
	return session.UserMessage(fmt.Sprintf(
		"Respond to the message you received from %s in channel ID %s. The message says: %s", user, channel, text)), true
}
