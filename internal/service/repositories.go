// repositories.go
package service

import (
	"context"

	"github.com/DevilsWillCry/marketplace-artesanal/internal/model"
	"github.com/DevilsWillCry/marketplace-artesanal/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Interfaces que deben implementar los repositorios Mongo.

type UserRepository interface {
	Create(ctx context.Context, u *model.User) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindBySessionToken(ctx context.Context, token string) (*model.User, error)
	AppendSession(ctx context.Context, id primitive.ObjectID, s model.Session, cap int) error
	ReplaceSession(ctx context.Context, id primitive.ObjectID, oldToken string, s model.Session) error
	RemoveSession(ctx context.Context, id primitive.ObjectID, token string) error
	ClearSessions(ctx context.Context, id primitive.ObjectID) error
}

type ProductRepository interface {
	Create(ctx context.Context, p *model.Product) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*model.Product, error)
	FindActiveByID(ctx context.Context, id primitive.ObjectID) (*model.Product, error)
	FindByNameAndArtisan(ctx context.Context, name string, artisan primitive.ObjectID) (*model.Product, error)
	Find(ctx context.Context, f repository.ProductFilter, page repository.Page) ([]*model.Product, int64, error)
	Update(ctx context.Context, id primitive.ObjectID, u repository.ProductUpdate) (*model.Product, error)
	SoftDelete(ctx context.Context, id primitive.ObjectID) error
	AdjustStock(ctx context.Context, id primitive.ObjectID, delta int) error
	SetStock(ctx context.Context, id primitive.ObjectID, value int) error
	Categories(ctx context.Context) ([]string, error)
}

type OrderRepository interface {
	Insert(ctx context.Context, o *model.Order) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*model.Order, error)
	FindByReturnID(ctx context.Context, returnID primitive.ObjectID) (*model.Order, error)
	Find(ctx context.Context, f repository.OrderFilter, page repository.Page) ([]*model.Order, int64, error)
	UpdateStatus(ctx context.Context, id primitive.ObjectID, status model.OrderStatus, trackingNumber string, entry model.HistoryEntry) error
	PushReturnRequest(ctx context.Context, orderID primitive.ObjectID, rr model.ReturnRequest) error
	UpdateReturnStatus(ctx context.Context, orderID, returnID primitive.ObjectID, status model.ReturnStatus, entry model.ReturnHistoryEntry) error
	ListReturns(ctx context.Context, f repository.ReturnFilter, page repository.Page) ([]repository.ReturnSummary, int64, error)
	ArtisanRevenue(ctx context.Context, artisanID primitive.ObjectID, f repository.OrderFilter) (float64, error)
}

// TxRunner agrupa mutaciones multi-documento en una transacción.
type TxRunner interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// EventPublisher emite eventos de dominio hacia el broker (puede ser nil).
type EventPublisher interface {
	Publish(ctx context.Context, exchange string, payload interface{}) error
}
