package mail

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	sestypes "github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

// SES sends plain-text mail through Amazon SES.
type SES struct {
	client  *sesv2.Client
	from    string
	to      []string
	subject string
}

func NewSES(awsCfg aws.Config, cfg Config) (*SES, error) {
	if cfg.From == "" {
		return nil, errors.New("mail.from is required")
	}
	to := Recipients(cfg.To)
	if len(to) == 0 {
		return nil, errors.New("mail.to is required")
	}
	subject := cfg.Subject
	if subject == "" {
		subject = DefaultSubject
	}
	return &SES{
		client:  sesv2.NewFromConfig(awsCfg),
		from:    cfg.From,
		to:      to,
		subject: subject,
	}, nil
}

func (s *SES) Send(ctx context.Context, subject, body string) (string, error) {
	if subject == "" {
		subject = s.subject
	}
	out, err := s.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(s.from),
		Destination:      &sestypes.Destination{ToAddresses: s.to},
		Content: &sestypes.EmailContent{
			Simple: &sestypes.Message{
				Subject: &sestypes.Content{Data: aws.String(subject)},
				Body: &sestypes.Body{
					Text: &sestypes.Content{Data: aws.String(body)},
				},
			},
		},
	})
	if err != nil {
		return "", err
	}
	return aws.ToString(out.MessageId), nil
}
