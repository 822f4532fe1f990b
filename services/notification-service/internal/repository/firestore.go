package repository

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"github.com/Doetheman/community-platform-template/services/notification-service/internal/domain"
)

const usersCollection = "users"

type FirestoreRepo struct{ fs *firestore.Client }

func NewFirestoreRepo(fs *firestore.Client) *FirestoreRepo {
	return &FirestoreRepo{fs: fs}
}

func (r *FirestoreRepo) SubscribedUsers(ctx context.Context) ([]domain.User, error) {
	it := r.fs.Collection(usersCollection).Where("notificationsEnabled", "==", true).Documents(ctx)
	defer it.Stop()

	var users []domain.User
	for {
		snap, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("query subscribed users: %w", err)
		}
		var u domain.User
		if err := snap.DataTo(&u); err != nil {
			return nil, fmt.Errorf("decode user %s: %w", snap.Ref.ID, err)
		}
		u.UID = snap.Ref.ID
		users = append(users, u)
	}
	return users, nil
}
