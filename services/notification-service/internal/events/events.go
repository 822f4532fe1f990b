package events

import (
	"encoding/json"
	"errors"
	"fmt"
)

const (
	RKFeedCreated = "feed.created"
)

// ErrDecode marks payloads that will never decode, so redelivery is pointless.
var ErrDecode = errors.New("decode payload")

// FeedCreated is published once per new feed/{postId} document.
type FeedCreated struct {
	PostID   string `json:"postId"`
	AuthorID string `json:"authorId"`
	Content  string `json:"content"`
}

func Decode[T any](b []byte) (T, error) {
	var t T
	if err := json.Unmarshal(b, &t); err != nil {
		var zero T
		return zero, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return t, nil
}
