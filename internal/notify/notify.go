// Package notify publishes composed reports.
package notify

import (
	"context"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

// MaxSubjectLength is the longest subject the topic accepts.
const MaxSubjectLength = 100

// Publisher delivers one report.
type Publisher interface {
	Publish(ctx context.Context, subject, message string) error
}

// PublishError represents a failed publish.
type PublishError struct {
	Target string
	Cause  error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish to %s failed: %v", e.Target, e.Cause)
}

func (e *PublishError) Unwrap() error {
	return e.Cause
}

// Subject builds the message subject for a report.
func Subject(pipeline, state string) string {
	s := strings.TrimSpace(pipeline + " " + state)
	return truncate(s, MaxSubjectLength)
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	s = s[:n]
	for !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s
}

// SNSAPI is the subset of the SNS client used by SNSPublisher.
type SNSAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSPublisher publishes reports to an SNS topic.
type SNSPublisher struct {
	client   SNSAPI
	topicARN string
}

// NewSNSPublisher returns a publisher for topicARN.
func NewSNSPublisher(client SNSAPI, topicARN string) *SNSPublisher {
	return &SNSPublisher{client: client, topicARN: topicARN}
}

// Publish implements Publisher. An empty subject is omitted.
func (p *SNSPublisher) Publish(ctx context.Context, subject, message string) error {
	in := &sns.PublishInput{
		TopicArn: aws.String(p.topicARN),
		Message:  aws.String(message),
	}
	if subject != "" {
		in.Subject = aws.String(truncate(subject, MaxSubjectLength))
	}
	if _, err := p.client.Publish(ctx, in); err != nil {
		return &PublishError{Target: p.topicARN, Cause: err}
	}
	return nil
}

// WriterPublisher writes reports to w. Used for dry runs and replays.
type WriterPublisher struct {
	w io.Writer
}

// NewWriterPublisher returns a publisher writing to w.
func NewWriterPublisher(w io.Writer) *WriterPublisher {
	return &WriterPublisher{w: w}
}

// Publish implements Publisher.
func (p *WriterPublisher) Publish(_ context.Context, subject, message string) error {
	if _, err := fmt.Fprintf(p.w, "Subject: %s\n\n%s\n", subject, message); err != nil {
		return &PublishError{Target: "writer", Cause: err}
	}
	return nil
}

var (
	_ Publisher = (*SNSPublisher)(nil)
	_ Publisher = (*WriterPublisher)(nil)
)
