package models

import "time"

// TargetType names the kind of content a vote or interaction points at.
type TargetType string

const (
	TargetQuestion TargetType = "question"
	TargetAnswer   TargetType = "answer"
)

// Valid reports whether t is a known target kind.
func (t TargetType) Valid() bool {
	return t == TargetQuestion || t == TargetAnswer
}

// VoteType is the polarity of a vote.
type VoteType string

const (
	VoteUp   VoteType = "upvote"
	VoteDown VoteType = "downvote"
)

// Valid reports whether v is a known polarity.
func (v VoteType) Valid() bool {
	return v == VoteUp || v == VoteDown
}

// Vote records one author's vote on one target. At most one row exists per
// (author, target, kind).
type Vote struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	AuthorID   uint       `gorm:"not null;uniqueIndex:idx_vote_author_target" json:"author_id"`
	TargetID   uint       `gorm:"not null;uniqueIndex:idx_vote_author_target;index:idx_vote_target" json:"target_id"`
	TargetType TargetType `gorm:"size:16;not null;uniqueIndex:idx_vote_author_target;index:idx_vote_target" json:"target_type"`
	VoteType   VoteType   `gorm:"size:16;not null" json:"vote_type"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// VoteState is the caller's current vote on a target.
type VoteState string

const (
	VoteStateNone      VoteState = "none"
	VoteStateUpvoted   VoteState = "upvoted"
	VoteStateDownvoted VoteState = "downvoted"
)

// StateFor maps a polarity to the resulting vote state.
func StateFor(v VoteType) VoteState {
	if v == VoteDown {
		return VoteStateDownvoted
	}
	return VoteStateUpvoted
}
