package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/178inaba/attendance-sheet-bot/attendance"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
)

const (
	acknowledgement = "Recording attendance..."
	usage           = "Use `/att [seat] [time_in] [time_out]` to record your attendance. Pass `-` to skip an argument."
)

type Recorder interface {
	Record(ctx context.Context, cmd attendance.Command) (attendance.Receipt, error)
}

// Responder delivers the final reply of a slash command.
type Responder interface {
	Respond(ctx context.Context, responseURL string, msg *slack.WebhookMessage) error
}

type MessagePoster interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

// WebhookResponder posts replies to the command's response URL.
type WebhookResponder struct{}

func (WebhookResponder) Respond(ctx context.Context, responseURL string, msg *slack.WebhookMessage) error {
	return slack.PostWebhookContext(ctx, responseURL, msg)
}

type Handler struct {
	recorder           Recorder
	responder          Responder
	slackClient        MessagePoster
	slackSigningSecret string
	commandTimeout     time.Duration

	wg sync.WaitGroup
}

func NewHandler(
	recorder Recorder,
	responder Responder,
	slackClient MessagePoster,
	slackSigningSecret string,
	commandTimeout time.Duration,
) *Handler {
	return &Handler{
		recorder:           recorder,
		responder:          responder,
		slackClient:        slackClient,
		slackSigningSecret: slackSigningSecret,
		commandTimeout:     commandTimeout,
	}
}

// ReceiveCommand acknowledges a slash command at once and records the
// attendance in the background, replying through the response URL.
func (h *Handler) ReceiveCommand(w http.ResponseWriter, r *http.Request) {
	// Read body.
	bodyBytes, err := io.ReadAll(r.Body)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		log.Printf("Read body: %v.", err)
		return
	}

	// Validating a request.
	if err := validateRequest(h.slackSigningSecret, r.Header, bodyBytes); err != nil {
		w.WriteHeader(http.StatusUnauthorized)
		log.Printf("Validate request: %v.", err)
		return
	}

	r.Body = io.NopCloser(bytes.NewReader(bodyBytes))
	s, err := slack.SlashCommandParse(r)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		log.Printf("Parse slash command: %v.", err)
		return
	}

	cmd := attendance.Command{
		UserKey:   s.UserName,
		Overrides: parseArgs(s.Text),
	}

	// The command outlives the request.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), h.commandTimeout)
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		defer cancel()
		h.runCommand(ctx, s.ResponseURL, cmd)
	}()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(&slack.Msg{
		ResponseType: slack.ResponseTypeEphemeral,
		Text:         acknowledgement,
	}); err != nil {
		log.Printf("Encode acknowledgement: %v.", err)
	}
}

func (h *Handler) runCommand(ctx context.Context, responseURL string, cmd attendance.Command) {
	msg := &slack.WebhookMessage{}

	receipt, err := h.recorder.Record(ctx, cmd)
	if err != nil {
		msg.ResponseType = slack.ResponseTypeEphemeral
		msg.Text = attendance.Message(err, cmd.UserKey)
	} else {
		msg.ResponseType = slack.ResponseTypeInChannel
		msg.Text = attendance.Confirmation(receipt)
	}

	if err := h.responder.Respond(ctx, responseURL, msg); err != nil {
		log.Printf("Respond to %q: %v.", cmd.UserKey, err)
	}
}

// Wait blocks until every background command has replied.
func (h *Handler) Wait() {
	h.wg.Wait()
}

func (h *Handler) ReceiveEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// Read body.
	bodyBytes, err := io.ReadAll(r.Body)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		log.Printf("Read body: %v.", err)
		return
	}

	// Validating a request.
	if err := validateRequest(h.slackSigningSecret, r.Header, bodyBytes); err != nil {
		w.WriteHeader(http.StatusUnauthorized)
		log.Printf("Validate request: %v.", err)
		return
	}

	eventsAPIEvent, err := slackevents.ParseEvent(bodyBytes, slackevents.OptionNoVerifyToken())
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		log.Printf("Parse event: %v.", err)
		return
	}

	switch eventsAPIEvent.Type {
	case slackevents.URLVerification:
		var r slackevents.ChallengeResponse
		if err := json.Unmarshal(bodyBytes, &r); err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			log.Printf("Unmarshal challenge response: %v.", err)
			return
		}

		w.Header().Set("Content-type", "text/plain")
		w.Write([]byte(r.Challenge))
	case slackevents.CallbackEvent:
		switch e := eventsAPIEvent.InnerEvent.Data.(type) {
		case *slackevents.AppMentionEvent:
			if _, _, err := h.slackClient.PostMessageContext(ctx, e.Channel, slack.MsgOptionText(usage, false)); err != nil {
				log.Printf("Post usage: %v.", err)
			}
		}
	}
}

// parseArgs reads "seat time_in time_out". A "-" leaves an argument unset.
func parseArgs(text string) attendance.Overrides {
	var args [3]string
	for i, f := range strings.Fields(text) {
		if i >= len(args) {
			break
		}
		if f != "-" {
			args[i] = f
		}
	}

	return attendance.Overrides{
		Seat:    args[0],
		TimeIn:  args[1],
		TimeOut: args[2],
	}
}

func validateRequest(signingSecret string, header http.Header, body []byte) error {
	sv, err := slack.NewSecretsVerifier(header, signingSecret)
	if err != nil {
		return fmt.Errorf("new secret verifier: %w", err)
	}
	if _, err := sv.Write(body); err != nil {
		return fmt.Errorf("write body: %w", err)
	}
	if err := sv.Ensure(); err != nil {
		return fmt.Errorf("ensure secret: %w", err)
	}

	return nil
}
