package dto

import "time"

// Webhook event names accepted from the payment gateway
const (
	WebhookEventPaymentConfirmed = "payment.confirmed"
	WebhookEventPaymentFailed    = "payment.failed"
	WebhookEventPaymentExpired   = "payment.expired"
	WebhookEventPaymentRefunded  = "payment.refunded"
)

// AcceptedWebhookEvents lists the events the webhook endpoint processes,
// returned by the GET health check on the webhook path
func AcceptedWebhookEvents() []string {
	return []string{
		WebhookEventPaymentConfirmed,
		WebhookEventPaymentFailed,
		WebhookEventPaymentExpired,
		WebhookEventPaymentRefunded,
	}
}

// ArkamaWebhookPayment is the payment object inside a gateway event
type ArkamaWebhookPayment struct {
	ID          string     `json:"id" validate:"required"`        // Gateway's payment id
	ExternalID  string     `json:"externalId"`                    // Mirror of our reference, informational
	Status      string     `json:"status"`                        // Gateway-side status string
	AmountCents int64      `json:"amount" validate:"min=0"`       // Amount in cents
	PaidAt      *time.Time `json:"paidAt,omitempty"`              // Present on confirmation events
	Reason      *string    `json:"reason,omitempty"`              // Present on failure events
}

// ArkamaWebhookEvent is the inbound webhook body
type ArkamaWebhookEvent struct {
	Event   string               `json:"event" validate:"required"`
	Payment ArkamaWebhookPayment `json:"payment" validate:"required"`
}

// WebhookAckResponse is returned for processed and no-op webhook deliveries
type WebhookAckResponse struct {
	Message        string `json:"message"`
	PurchaseUUID   string `json:"purchase_uuid,omitempty"`
	PurchaseStatus string `json:"purchase_status,omitempty"`
	Duplicate      bool   `json:"duplicate,omitempty"` // true when the event had already been processed
}
