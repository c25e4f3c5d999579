package repository

import (
	"context"

	"schoolportal/internal/model"
)

func (s *Store) RecordWebhookEvent(ctx context.Context, event model.WebhookEvent) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO webhook_events (id, gateway_id, gateway, outcome, order_code, received_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, event.ID, event.GatewayID, event.Gateway, event.Outcome, event.OrderCode, event.ReceivedAt)
	return err
}
