package email

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSES struct {
	input *ses.SendEmailInput
	err   error
}

func (f *fakeSES) SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &ses.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
}

func TestSESMailer_Send(t *testing.T) {
	client := &fakeSES{}
	m := &sesMailer{client: client, source: sourceAddress("ORIYET", "no-reply@oriyet.com"), logger: testLogger}

	require.NoError(t, m.Send("a@example.com", "Payment confirmed", "<p>ok</p>", ""))

	in := client.input
	require.NotNil(t, in)
	assert.Equal(t, `"ORIYET" <no-reply@oriyet.com>`, aws.ToString(in.Source))
	assert.Equal(t, []string{"a@example.com"}, in.Destination.ToAddresses)
	assert.Equal(t, "Payment confirmed", aws.ToString(in.Message.Subject.Data))
	assert.Equal(t, "<p>ok</p>", aws.ToString(in.Message.Body.Html.Data))
	assert.Nil(t, in.Message.Body.Text)
}

func TestSESMailer_SendError(t *testing.T) {
	m := &sesMailer{client: &fakeSES{err: errors.New("throttled")}, source: "no-reply@oriyet.com", logger: testLogger}

	err := m.Send("a@example.com", "s", "", "plain")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "throttled")
}

func TestSourceAddress(t *testing.T) {
	assert.Equal(t, "no-reply@oriyet.com", sourceAddress("", "no-reply@oriyet.com"))
	assert.Equal(t, `"ORIYET Events" <no-reply@oriyet.com>`, sourceAddress("ORIYET Events", "no-reply@oriyet.com"))
}

func TestNewMailer_FallsBackToNoop(t *testing.T) {
	for _, provider := range []string{"noop", "carrier-pigeon"} {
		m, err := NewMailer(MailerConfig{Provider: provider}, testLogger)
		require.NoError(t, err)
		assert.IsType(t, &noopMailer{}, m)
		assert.NoError(t, m.Send("a@example.com", "s", "h", "t"))
	}
}
