// Package membership connects the ticketing core to the membership system:
// point awards go out over RabbitMQ, member discount multipliers come from a
// fixed tier table.
package membership

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"

	"github.com/parkgate/ticketing-service/internal/domain/ports"
)

const (
	ExchangeName = "membership"
	ExchangeKind = "topic"

	pointsRoutingKey = "membership.points.award"
)

// tier multipliers applied to the cart total after promotions
var tierMultipliers = map[string]decimal.Decimal{
	"silver":   decimal.NewFromFloat(0.97),
	"gold":     decimal.NewFromFloat(0.95),
	"platinum": decimal.NewFromFloat(0.90),
}

// pointAwardMessage is the payload consumed by the membership service
type pointAwardMessage struct {
	VisitorID string `json:"visitor_id"`
	Points    int32  `json:"points"`
	AwardedAt string `json:"awarded_at"`
}

// Gateway implements ports.MembershipGateway over RabbitMQ
type Gateway struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	logger  ports.Logger
}

// NewGateway dials RabbitMQ and declares the membership exchange
func NewGateway(url string, logger ports.Logger) (*Gateway, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}

	if err := ch.ExchangeDeclare(ExchangeName, ExchangeKind, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("rabbitmq exchange declare: %w", err)
	}

	return &Gateway{conn: conn, channel: ch, logger: logger}, nil
}

// AwardPoints publishes a point award for asynchronous crediting. Delivery is
// at-least-once; the membership service deduplicates on its side.
func (g *Gateway) AwardPoints(ctx context.Context, visitorID uuid.UUID, points int32) error {
	body, err := json.Marshal(pointAwardMessage{
		VisitorID: visitorID.String(),
		Points:    points,
		AwardedAt: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("marshal point award: %w", err)
	}

	err = g.channel.PublishWithContext(ctx,
		ExchangeName,
		pointsRoutingKey,
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish point award: %w", err)
	}

	g.logger.Debug("point award published",
		ports.String("visitor_id", visitorID.String()),
		ports.Int("points", int(points)))
	return nil
}

// DiscountMultiplier returns the member tier's price multiplier; unknown or
// empty tiers pay full price
func (g *Gateway) DiscountMultiplier(ctx context.Context, visitorID uuid.UUID, memberLevel string) (decimal.Decimal, error) {
	if m, ok := tierMultipliers[memberLevel]; ok {
		return m, nil
	}
	return decimal.NewFromInt(1), nil
}

// Conn exposes the underlying connection for health checks
func (g *Gateway) Conn() *amqp.Connection {
	return g.conn
}

// Close releases the channel and connection
func (g *Gateway) Close() {
	if g.channel != nil {
		g.channel.Close()
	}
	if g.conn != nil {
		g.conn.Close()
	}
}

// OfflineGateway implements ports.MembershipGateway without a broker. Point
// awards are logged and dropped; discount multipliers still apply. Used when
// RabbitMQ is disabled.
type OfflineGateway struct {
	logger ports.Logger
}

// NewOfflineGateway creates a broker-less membership gateway
func NewOfflineGateway(logger ports.Logger) *OfflineGateway {
	return &OfflineGateway{logger: logger}
}

// AwardPoints logs and drops the award
func (g *OfflineGateway) AwardPoints(ctx context.Context, visitorID uuid.UUID, points int32) error {
	g.logger.Warn("membership broker disabled, point award dropped",
		ports.String("visitor_id", visitorID.String()),
		ports.Int("points", int(points)))
	return nil
}

// DiscountMultiplier returns the member tier's price multiplier
func (g *OfflineGateway) DiscountMultiplier(ctx context.Context, visitorID uuid.UUID, memberLevel string) (decimal.Decimal, error) {
	if m, ok := tierMultipliers[memberLevel]; ok {
		return m, nil
	}
	return decimal.NewFromInt(1), nil
}
