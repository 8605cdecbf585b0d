package repository

import (
	"context"
	"time"

	"github.com/DevilsWillCry/marketplace-artesanal/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ReturnSummary es la proyección de una solicitud desanidada ($unwind)
// que devuelve el listado de devoluciones.
type ReturnSummary struct {
	ReturnID    primitive.ObjectID         `bson:"return_id" json:"returnId"`
	OrderID     primitive.ObjectID         `bson:"order_id" json:"orderId"`
	Status      model.ReturnStatus         `bson:"status" json:"status"`
	Reason      string                     `bson:"reason" json:"reason"`
	RequestedAt time.Time                  `bson:"requested_at" json:"requestedAt"`
	UpdatedAt   time.Time                  `bson:"updated_at" json:"updatedAt"`
	Total       float64                    `bson:"total" json:"total"`
	Items       []model.OrderItem          `bson:"items" json:"items"`
	History     []model.ReturnHistoryEntry `bson:"history" json:"history"`
}

// Mongo implementation
type MongoOrderRepository struct {
	col *mongo.Collection
}

func NewMongoOrderRepository(db *mongo.Database) *MongoOrderRepository {
	return &MongoOrderRepository{col: db.Collection("orders")}
}

// EnsureIndexes crea los índices de consulta más frecuentes.
func (m *MongoOrderRepository) EnsureIndexes(ctx context.Context) error {
	_, err := m.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "buyer", Value: 1}}},
		{Keys: bson.D{{Key: "items.artisan", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "return_requests.status", Value: 1}, {Key: "return_requests.updated_at", Value: -1}}},
	})
	return err
}

func (m *MongoOrderRepository) Insert(ctx context.Context, o *model.Order) error {
	now := time.Now().UTC()
	o.CreatedAt = now
	o.UpdatedAt = now
	if o.History == nil {
		o.History = []model.HistoryEntry{}
	}
	if o.ReturnRequests == nil {
		o.ReturnRequests = []model.ReturnRequest{}
	}

	res, err := m.col.InsertOne(ctx, o)
	if err != nil {
		return err
	}
	o.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (m *MongoOrderRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*model.Order, error) {
	var o model.Order
	err := m.col.FindOne(ctx, bson.M{"_id": id}).Decode(&o)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	return &o, err
}

// FindByReturnID localiza la orden que contiene la solicitud de devolución.
func (m *MongoOrderRepository) FindByReturnID(ctx context.Context, returnID primitive.ObjectID) (*model.Order, error) {
	var o model.Order
	err := m.col.FindOne(ctx, bson.M{"return_requests._id": returnID}).Decode(&o)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	return &o, err
}

func (m *MongoOrderRepository) Find(ctx context.Context, f OrderFilter, page Page) ([]*model.Order, int64, error) {
	filter := f.query()

	total, err := m.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}). // más recientes primero
		SetSkip(page.Skip()).
		SetLimit(int64(page.Limit))

	cur, err := m.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	var out []*model.Order
	for cur.Next(ctx) {
		var o model.Order
		if err := cur.Decode(&o); err != nil {
			return nil, 0, err
		}
		out = append(out, &o)
	}
	return out, total, cur.Err()
}

// UpdateStatus fija el nuevo estado y agrega la entrada de historial
// en una sola operación sobre el documento.
func (m *MongoOrderRepository) UpdateStatus(ctx context.Context, id primitive.ObjectID, status model.OrderStatus, trackingNumber string, entry model.HistoryEntry) error {
	set := bson.M{
		"status":     status,
		"updated_at": time.Now().UTC(),
	}
	if trackingNumber != "" {
		set["tracking_number"] = trackingNumber
	}
	update := bson.M{
		"$set":  set,
		"$push": bson.M{"history": entry},
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

func (m *MongoOrderRepository) PushReturnRequest(ctx context.Context, orderID primitive.ObjectID, rr model.ReturnRequest) error {
	update := bson.M{
		"$push": bson.M{"return_requests": rr},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	}
	res, err := m.col.UpdateOne(ctx, bson.M{"_id": orderID}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateReturnStatus cambia el estado de la solicitud embebida y agrega
// su entrada de sub-historial usando el operador posicional.
func (m *MongoOrderRepository) UpdateReturnStatus(ctx context.Context, orderID, returnID primitive.ObjectID, status model.ReturnStatus, entry model.ReturnHistoryEntry) error {
	filter := bson.M{"_id": orderID, "return_requests._id": returnID}
	update := bson.M{
		"$set": bson.M{
			"return_requests.$.status":     status,
			"return_requests.$.updated_at": time.Now().UTC(),
			"updated_at":                   time.Now().UTC(),
		},
		"$push": bson.M{"return_requests.$.history": entry},
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

// ListReturns desanida las solicitudes con una agregación y pagina el resultado.
func (m *MongoOrderRepository) ListReturns(ctx context.Context, f ReturnFilter, page Page) ([]ReturnSummary, int64, error) {
	base := mongo.Pipeline{
		bson.D{{Key: "$match", Value: f.query()}},
		bson.D{{Key: "$unwind", Value: "$return_requests"}},
		bson.D{{Key: "$match", Value: f.unwound()}},
	}

	countPipe := append(mongo.Pipeline{}, base...)
	countPipe = append(countPipe, bson.D{{Key: "$count", Value: "total"}})

	cur, err := m.col.Aggregate(ctx, countPipe)
	if err != nil {
		return nil, 0, err
	}
	var counts []struct {
		Total int64 `bson:"total"`
	}
	if err := cur.All(ctx, &counts); err != nil {
		return nil, 0, err
	}
	var total int64
	if len(counts) > 0 {
		total = counts[0].Total
	}

	pipe := append(mongo.Pipeline{}, base...)
	pipe = append(pipe,
		bson.D{{Key: "$sort", Value: bson.D{{Key: "return_requests.updated_at", Value: -1}}}},
		bson.D{{Key: "$skip", Value: page.Skip()}},
		bson.D{{Key: "$limit", Value: int64(page.Limit)}},
		bson.D{{Key: "$project", Value: bson.M{
			"return_id":    "$return_requests._id",
			"order_id":     "$_id",
			"status":       "$return_requests.status",
			"reason":       "$return_requests.metadata.reason",
			"requested_at": "$return_requests.created_at",
			"updated_at":   "$return_requests.updated_at",
			"total":        "$total",
			"items":        "$items",
			"history":      "$return_requests.history",
		}}},
	)

	cur, err = m.col.Aggregate(ctx, pipe)
	if err != nil {
		return nil, 0, err
	}
	var out []ReturnSummary
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// ArtisanRevenue suma priceAtPurchase*quantity de los items del artesano
// sobre las órdenes que cumplen el filtro ($unwind + $group).
func (m *MongoOrderRepository) ArtisanRevenue(ctx context.Context, artisanID primitive.ObjectID, f OrderFilter) (float64, error) {
	pipe := mongo.Pipeline{
		bson.D{{Key: "$match", Value: f.query()}},
		bson.D{{Key: "$unwind", Value: "$items"}},
		bson.D{{Key: "$match", Value: bson.M{"items.artisan": artisanID}}},
		bson.D{{Key: "$group", Value: bson.M{
			"_id": nil,
			"total": bson.M{
				"$sum": bson.M{"$multiply": bson.A{"$items.price_at_purchase", "$items.quantity"}},
			},
		}}},
	}

	cur, err := m.col.Aggregate(ctx, pipe)
	if err != nil {
		return 0, err
	}
	var res []struct {
		Total float64 `bson:"total"`
	}
	if err := cur.All(ctx, &res); err != nil {
		return 0, err
	}
	if len(res) == 0 {
		return 0, nil
	}
	return res[0].Total, nil
}
