package mongo

import (
	"context"
	"errors"
	"time"

	"github.com/dom/auth-backend/internal/domain"
	"github.com/dom/auth-backend/internal/repository"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// userDocument is the stored shape of domain.User. IDs are kept as strings
// so documents stay readable from the mongo shell.
type userDocument struct {
	ID                          string     `bson:"_id"`
	Email                       string     `bson:"email"`
	Name                        string     `bson:"name"`
	PasswordHash                string     `bson:"password"`
	IsVerified                  bool       `bson:"isVerified"`
	VerificationToken           *string    `bson:"verificationToken,omitempty"`
	VerificationTokenExpiresAt  *time.Time `bson:"verificationTokenExpiresAt,omitempty"`
	ResetPasswordToken          *string    `bson:"resetPasswordToken,omitempty"`
	ResetPasswordTokenExpiresAt *time.Time `bson:"resetPasswordTokenExpiresAt,omitempty"`
	LastLogin                   time.Time  `bson:"lastLogin"`
	Version                     int64      `bson:"version"`
	CreatedAt                   time.Time  `bson:"createdAt"`
	UpdatedAt                   time.Time  `bson:"updatedAt"`
}

func toDocument(u *domain.User) *userDocument {
	return &userDocument{
		ID:                          u.ID.String(),
		Email:                       u.Email,
		Name:                        u.Name,
		PasswordHash:                u.PasswordHash,
		IsVerified:                  u.IsVerified,
		VerificationToken:           u.VerificationToken,
		VerificationTokenExpiresAt:  u.VerificationTokenExpiresAt,
		ResetPasswordToken:          u.ResetPasswordToken,
		ResetPasswordTokenExpiresAt: u.ResetPasswordTokenExpiresAt,
		LastLogin:                   u.LastLogin,
		Version:                     u.Version,
		CreatedAt:                   u.CreatedAt,
		UpdatedAt:                   u.UpdatedAt,
	}
}

func (d *userDocument) toDomain() (*domain.User, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, err
	}
	return &domain.User{
		ID:                          id,
		Email:                       d.Email,
		Name:                        d.Name,
		PasswordHash:                d.PasswordHash,
		IsVerified:                  d.IsVerified,
		VerificationToken:           d.VerificationToken,
		VerificationTokenExpiresAt:  utcPtr(d.VerificationTokenExpiresAt),
		ResetPasswordToken:          d.ResetPasswordToken,
		ResetPasswordTokenExpiresAt: utcPtr(d.ResetPasswordTokenExpiresAt),
		LastLogin:                   d.LastLogin,
		Version:                     d.Version,
		CreatedAt:                   d.CreatedAt,
		UpdatedAt:                   d.UpdatedAt,
	}, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}

type userRepository struct {
	coll *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *userRepository {
	return &userRepository{coll: db.Collection(usersCollection)}
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	_, err := r.coll.InsertOne(ctx, toDocument(user))
	if mongo.IsDuplicateKeyError(err) {
		return repository.ErrDuplicateEmail
	}
	return err
}

func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"_id": id.String()})
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *userRepository) FindByToken(ctx context.Context, kind domain.TokenKind, token string, now time.Time) (*domain.User, error) {
	var filter bson.M
	switch kind {
	case domain.TokenKindVerification:
		filter = bson.M{
			"verificationToken":          token,
			"verificationTokenExpiresAt": bson.M{"$gt": now},
		}
	case domain.TokenKindReset:
		filter = bson.M{
			"resetPasswordToken":          token,
			"resetPasswordTokenExpiresAt": bson.M{"$gt": now},
		}
	default:
		return nil, domain.ErrUnknownTokenKind
	}
	return r.findOne(ctx, filter)
}

func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	now := time.Now()
	doc := toDocument(user)
	doc.Version = user.Version + 1
	doc.UpdatedAt = now

	// ReplaceOne drops fields the document omits, which is how cleared
	// tokens disappear from storage.
	result, err := r.coll.ReplaceOne(ctx, bson.M{"_id": doc.ID, "version": user.Version}, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrDuplicateEmail
		}
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrStaleUser
	}

	user.Version++
	user.UpdatedAt = now
	return nil
}

func (r *userRepository) TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	result, err := r.coll.UpdateOne(ctx, bson.M{"_id": id.String()}, bson.M{"$set": bson.M{"lastLogin": at}})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *userRepository) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	var doc userDocument
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return doc.toDomain()
}
