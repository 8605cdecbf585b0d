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

// ErrInsufficientStock se devuelve cuando un decremento dejaría el stock negativo.
var ErrInsufficientStock = errors.New("stock insuficiente")

// Mongo implementation
type MongoProductRepository struct {
	col *mongo.Collection
}

func NewMongoProductRepository(db *mongo.Database) *MongoProductRepository {
	return &MongoProductRepository{col: db.Collection("products")}
}

// EnsureIndexes crea el índice compuesto único (name, artisan).
func (m *MongoProductRepository) EnsureIndexes(ctx context.Context) error {
	_, err := m.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}, {Key: "artisan", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func (m *MongoProductRepository) Create(ctx context.Context, p *model.Product) error {
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	if p.Images == nil {
		p.Images = []string{}
	}

	res, err := m.col.InsertOne(ctx, p)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	if err != nil {
		return err
	}
	p.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (m *MongoProductRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*model.Product, error) {
	var p model.Product
	err := m.col.FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	return &p, err
}

// FindActiveByID ignora los productos borrados lógicamente.
func (m *MongoProductRepository) FindActiveByID(ctx context.Context, id primitive.ObjectID) (*model.Product, error) {
	var p model.Product
	err := m.col.FindOne(ctx, bson.M{"_id": id, "is_active": true}).Decode(&p)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	return &p, err
}

func (m *MongoProductRepository) FindByNameAndArtisan(ctx context.Context, name string, artisan primitive.ObjectID) (*model.Product, error) {
	var p model.Product
	err := m.col.FindOne(ctx, bson.M{"name": name, "artisan": artisan}).Decode(&p)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	return &p, err
}

func (m *MongoProductRepository) Find(ctx context.Context, f ProductFilter, page Page) ([]*model.Product, int64, error) {
	filter := f.query()

	total, err := m.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(f.sort()).
		SetSkip(page.Skip()).
		SetLimit(int64(page.Limit))

	cur, err := m.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	var out []*model.Product
	for cur.Next(ctx) {
		var p model.Product
		if err := cur.Decode(&p); err != nil {
			return nil, 0, err
		}
		out = append(out, &p)
	}
	return out, total, cur.Err()
}

// ProductUpdate lleva solo los campos a modificar; nil significa "sin cambio".
type ProductUpdate struct {
	Name        *string
	Description *string
	Price       *float64
	Stock       *int
	Category    *string
	Images      []string
}

func (u ProductUpdate) set() bson.M {
	set := bson.M{}
	if u.Name != nil {
		set["name"] = *u.Name
	}
	if u.Description != nil {
		set["description"] = *u.Description
	}
	if u.Price != nil {
		set["price"] = *u.Price
	}
	if u.Stock != nil {
		set["stock"] = *u.Stock
	}
	if u.Category != nil {
		set["category"] = *u.Category
	}
	if u.Images != nil {
		set["images"] = u.Images
	}
	return set
}

// IsEmpty indica que no se envió ningún campo.
func (u ProductUpdate) IsEmpty() bool {
	return len(u.set()) == 0
}

// Update aplica solo los campos enviados y devuelve el documento actualizado.
func (m *MongoProductRepository) Update(ctx context.Context, id primitive.ObjectID, u ProductUpdate) (*model.Product, error) {
	set := u.set()
	set["updated_at"] = time.Now().UTC()
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var p model.Product
	err := m.col.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&p)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if mongo.IsDuplicateKeyError(err) {
		return nil, ErrDuplicate
	}
	return &p, err
}

// SoftDelete marca el producto como inactivo en vez de borrarlo.
func (m *MongoProductRepository) SoftDelete(ctx context.Context, id primitive.ObjectID) error {
	res, err := m.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"is_active": false, "updated_at": time.Now().UTC()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// AdjustStock aplica un $inc condicionado: si delta es negativo exige
// stock suficiente en el filtro, así el stock nunca queda negativo.
func (m *MongoProductRepository) AdjustStock(ctx context.Context, id primitive.ObjectID, delta int) error {
	filter := bson.M{"_id": id}
	if delta < 0 {
		filter["stock"] = bson.M{"$gte": -delta}
	}
	update := bson.M{
		"$inc": bson.M{"stock": delta},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	}
	res, err := m.col.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		if delta < 0 {
			// Distinguir "no existe" de "no alcanza el stock"
			if _, ferr := m.FindByID(ctx, id); ferr == nil {
				return ErrInsufficientStock
			}
		}
		return ErrNotFound
	}
	return nil
}

// SetStock fija el stock en un valor absoluto.
func (m *MongoProductRepository) SetStock(ctx context.Context, id primitive.ObjectID, value int) error {
	res, err := m.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"stock": value, "updated_at": time.Now().UTC()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Categories devuelve las categorías únicas de productos activos.
func (m *MongoProductRepository) Categories(ctx context.Context) ([]string, error) {
	values, err := m.col.Distinct(ctx, "category", bson.M{"is_active": true})
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out, nil
}
