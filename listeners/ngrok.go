package listeners

import (
	"context"
	"log/slog"

	"golang.ngrok.com/ngrok"
	"golang.ngrok.com/ngrok/config"

	"github.com/interfaces-to/interfaces-to/session"
	"github.com/interfaces-to/interfaces-to/tools"
)

const NgrokTokenEnv = "NGROK_AUTHTOKEN"

// Ngrok serves the webhook handler on a public ngrok endpoint.
type Ngrok struct {
	*Webhook
	token string
}

// NewNgrok fails when no ngrok authtoken is configured.
func NewNgrok(token, path string, logger *slog.Logger) (*Ngrok, error) {
	token, err := tools.Credential(token, NgrokTokenEnv)
	if err != nil {
		return nil, err
	}
	return &Ngrok{Webhook: NewWebhook("", path, logger), token: token}, nil
}

func (n *Ngrok) Name() string { return "Ngrok" }

func (n *Ngrok) Listen(ctx context.Context, inbox *session.Inbox) error {
	tun, err := ngrok.Listen(ctx, config.HTTPEndpoint(), ngrok.WithAuthtoken(n.token))
	if err != nil {
		return err
	}
	n.logger.InfoContext(ctx, "listening for POST "+n.path, "url", tun.URL()+n.path)
	return serve(ctx, tun, n.Handler(inbox))
}
