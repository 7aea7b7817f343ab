package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"news_ingestor/internal/domain"
)

const EventArticleIngested = "article.ingested"

// RabbitMQ announces newly stored articles. Sources publish from their own
// goroutines, so the channel is guarded.
type RabbitMQ struct {
	mu         sync.Mutex
	conn       *amqp.Connection
	channel    *amqp.Channel
	exchange   string
	routingKey string
	logger     *slog.Logger
}

type Config struct {
	URL        string
	Exchange   string
	RoutingKey string
	QueueName  string
}

func NewRabbitMQ(cfg Config, logger *slog.Logger) (*RabbitMQ, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		cfg.Exchange,
		"direct",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	q, err := ch.QueueDeclare(
		cfg.QueueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}

	if err := ch.QueueBind(q.Name, cfg.RoutingKey, cfg.Exchange, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("bind queue: %w", err)
	}

	logger.Info("connected to rabbitmq",
		"exchange", cfg.Exchange,
		"queue", cfg.QueueName,
		"routing_key", cfg.RoutingKey,
	)

	return &RabbitMQ{
		conn:       conn,
		channel:    ch,
		exchange:   cfg.Exchange,
		routingKey: cfg.RoutingKey,
		logger:     logger,
	}, nil
}

// IngestedMessage is the body of an article.ingested event.
type IngestedMessage struct {
	Event          string    `json:"event"`
	ArticleID      string    `json:"article_id"`
	Link           string    `json:"link"`
	Title          string    `json:"title"`
	SourceID       string    `json:"source_id"`
	Categories     []string  `json:"categories"`
	EnrichmentTag  string    `json:"enrichment_tag"`
	ContentPending bool      `json:"content_pending"`
	PublishedAt    time.Time `json:"published_at"`
	Timestamp      time.Time `json:"timestamp"`
}

func NewIngestedMessage(article *domain.Article, now time.Time) IngestedMessage {
	return IngestedMessage{
		Event:          EventArticleIngested,
		ArticleID:      article.ID,
		Link:           article.Link,
		Title:          article.Title,
		SourceID:       article.SourceID,
		Categories:     article.Categories,
		EnrichmentTag:  article.EnrichmentTag,
		ContentPending: article.Content == domain.ContentPending,
		PublishedAt:    article.PublishedAt,
		Timestamp:      now.UTC(),
	}
}

func (r *RabbitMQ) Publish(ctx context.Context, article *domain.Article) error {
	body, err := json.Marshal(NewIngestedMessage(article, time.Now()))
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	err = r.channel.PublishWithContext(
		ctx,
		r.exchange,
		r.routingKey,
		false,
		false,
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Type:         EventArticleIngested,
			MessageId:    article.ID,
			Body:         body,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}

	r.logger.Debug("published article",
		"article_id", article.ID,
		"source", article.SourceID,
	)

	return nil
}

func (r *RabbitMQ) Close() error {
	if r.channel != nil {
		r.channel.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}
