package models

import "time"

// InteractionAction is a behavioral event kind.
type InteractionAction string

const (
	ActionView     InteractionAction = "view"
	ActionUpvote   InteractionAction = "upvote"
	ActionDownvote InteractionAction = "downvote"
	ActionPost     InteractionAction = "post"
	ActionBookmark InteractionAction = "bookmark"
)

// AffinityActions are the actions that feed recommendations.
var AffinityActions = []InteractionAction{ActionView, ActionUpvote, ActionBookmark, ActionPost}

// Interaction is an append-only behavioral record. AuthorID is the owner of
// the content acted on.
type Interaction struct {
	ID         uint              `gorm:"primaryKey" json:"id"`
	ActorID    uint              `gorm:"not null;index:idx_interaction_actor_created" json:"actor_id"`
	Action     InteractionAction `gorm:"size:16;not null" json:"action"`
	TargetType TargetType        `gorm:"size:16;not null" json:"target_type"`
	TargetID   uint              `gorm:"not null" json:"target_id"`
	AuthorID   uint              `gorm:"not null" json:"author_id"`
	CreatedAt  time.Time         `gorm:"index:idx_interaction_actor_created" json:"created_at"`
}
