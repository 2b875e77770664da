package mongo

import (
	"context"
	"time"

	"github.com/dom/auth-backend/internal/domain"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type deliveryDocument struct {
	ID        string    `bson:"_id"`
	Kind      string    `bson:"kind"`
	Recipient string    `bson:"recipient"`
	Status    string    `bson:"status"`
	Attempts  int       `bson:"attempts"`
	LastError string    `bson:"lastError,omitempty"`
	Payload   string    `bson:"payload,omitempty"`
	CreatedAt time.Time `bson:"createdAt"`
}

type notificationDeliveryRepository struct {
	coll *mongo.Collection
}

func NewNotificationDeliveryRepository(db *mongo.Database) *notificationDeliveryRepository {
	return &notificationDeliveryRepository{coll: db.Collection(deliveriesCollection)}
}

func (r *notificationDeliveryRepository) Create(ctx context.Context, delivery *domain.NotificationDelivery) error {
	if delivery.ID == uuid.Nil {
		delivery.ID = uuid.New()
	}
	if delivery.CreatedAt.IsZero() {
		delivery.CreatedAt = time.Now()
	}
	_, err := r.coll.InsertOne(ctx, deliveryDocument{
		ID:        delivery.ID.String(),
		Kind:      string(delivery.Kind),
		Recipient: delivery.Recipient,
		Status:    string(delivery.Status),
		Attempts:  delivery.Attempts,
		LastError: delivery.LastError,
		Payload:   string(delivery.Payload),
		CreatedAt: delivery.CreatedAt,
	})
	return err
}

func (r *notificationDeliveryRepository) ListByRecipient(ctx context.Context, recipient string, limit int) ([]*domain.NotificationDelivery, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := r.coll.Find(ctx, bson.M{"recipient": recipient}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []deliveryDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	deliveries := make([]*domain.NotificationDelivery, 0, len(docs))
	for _, d := range docs {
		id, err := uuid.Parse(d.ID)
		if err != nil {
			return nil, err
		}
		deliveries = append(deliveries, &domain.NotificationDelivery{
			ID:        id,
			Kind:      domain.NotificationKind(d.Kind),
			Recipient: d.Recipient,
			Status:    domain.DeliveryStatus(d.Status),
			Attempts:  d.Attempts,
			LastError: d.LastError,
			Payload:   []byte(d.Payload),
			CreatedAt: d.CreatedAt,
		})
	}
	return deliveries, nil
}
