package domain

// User is read from users/{uid}. Only subscribed users are ever loaded.
type User struct {
	UID                  string `firestore:"-" gorm:"primaryKey;column:uid" json:"uid"`
	NotificationsEnabled bool   `firestore:"notificationsEnabled" gorm:"column:notifications_enabled;index" json:"notificationsEnabled"`
	PushToken            string `firestore:"fcmToken,omitempty" gorm:"column:fcm_token" json:"fcmToken,omitempty"`
}

// FeedPost is the created feed/{postId} document that triggers a dispatch.
type FeedPost struct {
	ID       string
	AuthorID string
	Content  string
}
