package bot

import (
	"bytes"
	"io"
	"net/http"
	"runtime/debug"

	"github.com/slack-go/slack"
)

// recoverMiddleware handles panics in request handlers
func (b *Bot) recoverMiddleware(handler func()) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error().
				Interface("panic", r).
				Str("stack", string(debug.Stack())).
				Msg("Panic recovered in handler")
		}
	}()

	handler()
}

// verifySignature rejects requests that do not carry a valid Slack
// signature for the configured signing secret
func (b *Bot) verifySignature(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		verifier, err := slack.NewSecretsVerifier(r.Header, b.config.SlackSigningSecret)
		if err != nil {
			b.logger.Warn().Err(err).Msg("Missing or malformed Slack signature headers")
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if _, err := verifier.Write(body); err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		if err := verifier.Ensure(); err != nil {
			b.logger.Warn().Err(err).Msg("Slack signature verification failed")
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		// Handlers re-read the body for form parsing
		r.Body = io.NopCloser(bytes.NewReader(body))
		next(w, r)
	}
}
