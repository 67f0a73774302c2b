package providers

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"strings"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"medical-alert-service/internal/channels"
)

type VoiceConfig struct {
	AccountSID string
	AuthToken  string
	FromNumber string
}

type callCreator interface {
	CreateCall(params *twilioApi.CreateCallParams) (*twilioApi.ApiV2010Call, error)
}

// Voice places a Twilio call that reads the alert aloud.
type Voice struct {
	from  string
	calls callCreator
}

func NewVoice(cfg VoiceConfig) (*Voice, error) {
	if cfg.AccountSID == "" || cfg.AuthToken == "" || cfg.FromNumber == "" {
		return nil, errors.New("missing Voice configuration: AccountSID, AuthToken, or FromNumber is empty")
	}
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return &Voice{from: cfg.FromNumber, calls: client.Api}, nil
}

func (v *Voice) Handle(ctx context.Context, d channels.Delivery) error {
	to := d.Contact.Target
	if !strings.HasPrefix(to, "+") {
		return fmt.Errorf("invalid phone number: %s", to)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	twiml, err := sayTwiML(Spoken(d.Alert))
	if err != nil {
		return err
	}
	params := &twilioApi.CreateCallParams{}
	params.SetTo(to)
	params.SetFrom(v.from)
	params.SetTwiml(twiml)
	if _, err := v.calls.CreateCall(params); err != nil {
		return fmt.Errorf("failed to call %s: %w", to, err)
	}
	return nil
}

func sayTwiML(text string) (string, error) {
	var buf bytes.Buffer
	buf.WriteString(`<Response><Say loop="2">`)
	if err := xml.EscapeText(&buf, []byte(text)); err != nil {
		return "", fmt.Errorf("escape twiml: %w", err)
	}
	buf.WriteString(`</Say></Response>`)
	return buf.String(), nil
}
