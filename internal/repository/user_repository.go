package repository

import (
	"context"
	"errors"
	"time"

	"github.com/DevilsWillCry/marketplace-artesanal/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Errores comunes de la capa de datos.
var (
	ErrNotFound  = errors.New("documento no encontrado")
	ErrDuplicate = errors.New("documento duplicado")
)

// Mongo implementation
type MongoUserRepository struct {
	col *mongo.Collection
}

func NewMongoUserRepository(db *mongo.Database) *MongoUserRepository {
	return &MongoUserRepository{col: db.Collection("users")}
}

// EnsureIndexes crea el índice único por email.
func (m *MongoUserRepository) EnsureIndexes(ctx context.Context) error {
	_, err := m.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func (m *MongoUserRepository) Create(ctx context.Context, u *model.User) error {
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	if u.Sessions == nil {
		u.Sessions = []model.Session{}
	}

	res, err := m.col.InsertOne(ctx, u)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	if err != nil {
		return err
	}
	u.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (m *MongoUserRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*model.User, error) {
	var u model.User
	err := m.col.FindOne(ctx, bson.M{"_id": id}).Decode(&u)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	return &u, err
}

func (m *MongoUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var u model.User
	err := m.col.FindOne(ctx, bson.M{"email": email}).Decode(&u)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	return &u, err
}

// FindBySessionToken ubica al dueño de un refresh token vigente.
func (m *MongoUserRepository) FindBySessionToken(ctx context.Context, token string) (*model.User, error) {
	var u model.User
	err := m.col.FindOne(ctx, bson.M{"sessions.token": token}).Decode(&u)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	return &u, err
}

// AppendSession agrega la sesión y recorta el arreglo a las `cap` más recientes.
func (m *MongoUserRepository) AppendSession(ctx context.Context, id primitive.ObjectID, s model.Session, cap int) error {
	update := bson.M{
		"$push": bson.M{
			"sessions": bson.M{
				"$each":  bson.A{s},
				"$slice": -cap,
			},
		},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	}
	res, err := m.col.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ReplaceSession rota el token en una sola operación atómica:
// reemplaza el elemento cuyo token coincide con oldToken.
func (m *MongoUserRepository) ReplaceSession(ctx context.Context, id primitive.ObjectID, oldToken string, s model.Session) error {
	filter := bson.M{"_id": id, "sessions.token": oldToken}
	update := bson.M{
		"$set": bson.M{
			"sessions.$": s,
			"updated_at": time.Now().UTC(),
		},
	}
	res, err := m.col.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *MongoUserRepository) RemoveSession(ctx context.Context, id primitive.ObjectID, token string) error {
	update := bson.M{
		"$pull": bson.M{"sessions": bson.M{"token": token}},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	}
	res, err := m.col.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *MongoUserRepository) ClearSessions(ctx context.Context, id primitive.ObjectID) error {
	update := bson.M{
		"$set": bson.M{
			"sessions":   bson.A{},
			"updated_at": time.Now().UTC(),
		},
	}
	res, err := m.col.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
