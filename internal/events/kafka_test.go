package events

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"

	"github.com/ppiankov/truthlens/internal/logging"
	"github.com/ppiankov/truthlens/internal/model"
)

var sub = model.Submission{Content: "Breaking: dam collapse reported", ContentType: model.ContentTypeText}

func sampleResult() model.AnalysisResult {
	return model.AnalysisResult{
		CredibilityScore: 40,
		CredibilityLevel: model.LevelMedium,
		SharingAdvice:    model.AdviceVerify,
		WebSources:       &model.WebSources{Citations: []string{"https://a.example/news"}},
	}
}

func TestPublish(t *testing.T) {
	producer := mocks.NewSyncProducer(t, NewProducerConfig())
	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var ev AnalysisEvent
		if err := json.Unmarshal(val, &ev); err != nil {
			return err
		}
		if ev.Content != sub.Content || ev.Result.CredibilityScore != 40 {
			return errors.New("unexpected event payload")
		}
		if ev.PublishedAt != "2026-02-03T04:05:06Z" {
			return errors.New("unexpected publishedAt " + ev.PublishedAt)
		}
		return nil
	})

	p := NewKafkaPublisherWithProducer(producer, "truthlens.analyses", nil)
	p.now = func() time.Time { return time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC) }

	if err := p.Publish(sub, sampleResult()); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}

func TestObserveResult_LogsFailures(t *testing.T) {
	producer := mocks.NewSyncProducer(t, NewProducerConfig())
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	var logs bytes.Buffer
	logger, _ := logging.New(&logs, "warn")
	p := NewKafkaPublisherWithProducer(producer, "truthlens.analyses", logger)

	p.ObserveResult(context.Background(), sub, sampleResult())

	if !strings.Contains(logs.String(), "failed to publish analysis event") {
		t.Errorf("Expected publish failure to be logged, got %q", logs.String())
	}
	_ = p.Close()
}

func TestNewKafkaPublisher_RequiresBrokers(t *testing.T) {
	if _, err := NewKafkaPublisher(nil, "t", nil); err == nil {
		t.Error("Expected error without brokers")
	}
}
