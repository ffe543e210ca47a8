package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func sampleEntry() OutboxEntry {
	return OutboxEntry{
		ID:          uuid.New(),
		AggregateID: uuid.New(),
		Type:        TypeAppointmentStatusChanged,
		Payload:     json.RawMessage(`{"to":"no_show"}`),
		CreatedAt:   time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
	}
}

func TestRedisPublisherPublishesEnvelope(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	sub := client.Subscribe(ctx, "salon:test")
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	entry := sampleEntry()
	if err := NewRedisPublisher(client, "salon:test").Handle(ctx, entry); err != nil {
		t.Fatalf("publish: %v", err)
	}

	msg, err := sub.ReceiveMessage(ctx)
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	var env Envelope
	if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if env.EventID != entry.ID.String() || env.Type != TypeAppointmentStatusChanged {
		t.Fatalf("unexpected envelope: %+v", env)
	}
	if string(env.Payload) != `{"to":"no_show"}` {
		t.Fatalf("payload not passed through: %s", env.Payload)
	}
}

type fakeSQS struct {
	input *sqs.SendMessageInput
	err   error
}

func (f *fakeSQS) SendMessage(_ context.Context, params *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &sqs.SendMessageOutput{MessageId: aws.String("m-1")}, nil
}

func TestSQSPublisherSendsTypedMessage(t *testing.T) {
	fake := &fakeSQS{}
	pub := newSQSPublisher(fake, "https://sqs.local/queue")
	entry := sampleEntry()

	if err := pub.Handle(context.Background(), entry); err != nil {
		t.Fatalf("send: %v", err)
	}
	if aws.ToString(fake.input.QueueUrl) != "https://sqs.local/queue" {
		t.Fatalf("unexpected queue url %q", aws.ToString(fake.input.QueueUrl))
	}
	attr, ok := fake.input.MessageAttributes["event_type"]
	if !ok || aws.ToString(attr.StringValue) != TypeAppointmentStatusChanged {
		t.Fatalf("missing event_type attribute: %+v", fake.input.MessageAttributes)
	}

	fake.err = errors.New("throttled")
	if err := pub.Handle(context.Background(), entry); err == nil {
		t.Fatal("expected send error")
	}
}

func TestMultiHandlerJoinsErrors(t *testing.T) {
	ok := &recordingHandler{}
	failing := &recordingHandler{fail: map[uuid.UUID]bool{}}
	entry := sampleEntry()
	failing.fail[entry.ID] = true

	err := MultiHandler{ok, nil, failing}.Handle(context.Background(), entry)
	if err == nil {
		t.Fatal("expected joined error")
	}
	if len(ok.handled) != 1 || len(failing.handled) != 1 {
		t.Fatal("every handler should see the entry")
	}
	if err := (MultiHandler{ok}).Handle(context.Background(), entry); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
