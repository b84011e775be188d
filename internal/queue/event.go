// Package queue defines message payloads exchanged over the message broker.
package queue

// StockAlertEvent is published when a reconciliation leaves an item at or
// below its alert threshold. It carries enough for downstream consumers
// (the notification bot, analytics) without querying the primary database.
type StockAlertEvent struct {
	ItemID    uint64 `json:"item_id"`
	Name      string `json:"name"`
	Size      string `json:"size"`
	Length    string `json:"length"`
	Quantity  string `json:"quantity"`
	Threshold string `json:"threshold"`
	Category  string `json:"category"`
	TriggerBy string `json:"triggered_by"`
	At        string `json:"at"`
}
