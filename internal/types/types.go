// Package types contains the core domain types shared across all mdbridge
// internal packages. It deliberately has zero imports of other mdbridge
// packages so that the store layer and the transport layer can both import
// from it without creating import cycles.
package types

import (
	"strings"
	"time"
)

// Action tells the downstream editor what to do with a delivered item.
// The queue itself never interprets it — it is stamped at acceptance and
// passed through unchanged. Unknown values are carried as-is so new actions
// can be added on the editor side without a server release.
type Action string

const (
	// ActionAppend appends the content to the daily page. This is the default
	// when a producer submits no action.
	ActionAppend Action = "append"
	// ActionLifelog adds a timestamped lifelog entry.
	ActionLifelog Action = "lifelog"
	// ActionCreate creates a new record, optionally in a target collection.
	ActionCreate Action = "create"
)

// Item is the unit of delivery: one piece of queued content awaiting pickup.
//
// Design rules:
//   - Items are immutable once inserted. There is no update path.
//   - ID is a ULID string: time-sortable and unique even for items created
//     within the same millisecond. ID order is the authoritative creation
//     order; CreatedAt is informational only.
//   - Content is never empty. The producer endpoint rejects whitespace-only
//     submissions before anything reaches the store.
type Item struct {
	// ID is a ULID uniquely identifying and ordering this item.
	ID string `json:"id"`

	// Content is the raw text payload. The queue delivers the exact bytes
	// submitted; turning markdown into editor blocks is the consumer's job.
	Content string `json:"content"`

	// Action is the delivery tag for the downstream editor.
	Action Action `json:"action"`

	// Collection optionally names the target collection for create actions.
	Collection string `json:"collection,omitempty"`

	// Title optionally names the record to create.
	Title string `json:"title,omitempty"`

	// CreatedAt is the acceptance timestamp in UTC. Informational — ordering
	// is decided by ID alone.
	CreatedAt time.Time `json:"createdAt"`
}

// Clone returns a copy of the item.
func (it *Item) Clone() *Item {
	c := *it
	return &c
}

// NormalizeAction maps an empty action to ActionAppend and returns every
// other value unchanged.
func NormalizeAction(a Action) Action {
	if strings.TrimSpace(string(a)) == "" {
		return ActionAppend
	}
	return a
}
