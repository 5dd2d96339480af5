package dto

import "encoding/json"

// RevenueCatWebhook is the v2 envelope. v1 deliveries put the event fields at
// the top level instead of under "event".
type RevenueCatWebhook struct {
	APIVersion string          `json:"api_version"`
	Event      json.RawMessage `json:"event"`
}

type RevenueCatEvent struct {
	Type              string   `json:"type"`
	ID                string   `json:"id"`
	AppUserID         string   `json:"app_user_id"`
	OriginalAppUserID string   `json:"original_app_user_id"`
	ProductID         string   `json:"product_id"`
	EntitlementIDs    []string `json:"entitlement_ids"`
	PeriodType        string   `json:"period_type"`
	PurchasedAtMs     *int64   `json:"purchased_at_ms"`
	ExpirationAtMs    *int64   `json:"expiration_at_ms"`
	Environment       string   `json:"environment"`
	Store             string   `json:"store"`
}

type WebhookAck struct {
	Success   bool `json:"success"`
	Duplicate bool `json:"duplicate,omitempty"`
}
