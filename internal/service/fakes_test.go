package service

import (
	"context"
	"sort"
	"time"

	"github.com/DevilsWillCry/marketplace-artesanal/internal/model"
	"github.com/DevilsWillCry/marketplace-artesanal/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Fakes en memoria de los repositorios, con la misma semántica de errores
// que las implementaciones Mongo.

type fakeUserRepo struct {
	users map[primitive.ObjectID]*model.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[primitive.ObjectID]*model.User{}}
}

func (r *fakeUserRepo) Create(ctx context.Context, u *model.User) error {
	for _, existing := range r.users {
		if existing.Email == u.Email {
			return repository.ErrDuplicate
		}
	}
	u.ID = primitive.NewObjectID()
	u.CreatedAt = time.Now()
	r.users[u.ID] = u
	return nil
}

func (r *fakeUserRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*model.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (r *fakeUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepo) FindBySessionToken(ctx context.Context, token string) (*model.User, error) {
	for _, u := range r.users {
		for _, s := range u.Sessions {
			if s.Token == token {
				copied := *u
				return &copied, nil
			}
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepo) AppendSession(ctx context.Context, id primitive.ObjectID, s model.Session, cap int) error {
	u, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.Sessions = append(u.Sessions, s)
	if len(u.Sessions) > cap {
		u.Sessions = u.Sessions[len(u.Sessions)-cap:]
	}
	return nil
}

func (r *fakeUserRepo) ReplaceSession(ctx context.Context, id primitive.ObjectID, oldToken string, s model.Session) error {
	u, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	for i := range u.Sessions {
		if u.Sessions[i].Token == oldToken {
			u.Sessions[i] = s
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r *fakeUserRepo) RemoveSession(ctx context.Context, id primitive.ObjectID, token string) error {
	u, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	kept := u.Sessions[:0]
	for _, s := range u.Sessions {
		if s.Token != token {
			kept = append(kept, s)
		}
	}
	u.Sessions = kept
	return nil
}

func (r *fakeUserRepo) ClearSessions(ctx context.Context, id primitive.ObjectID) error {
	u, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.Sessions = nil
	return nil
}

type fakeProductRepo struct {
	products map[primitive.ObjectID]*model.Product
}

func newFakeProductRepo() *fakeProductRepo {
	return &fakeProductRepo{products: map[primitive.ObjectID]*model.Product{}}
}

func (r *fakeProductRepo) add(p *model.Product) *model.Product {
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	r.products[p.ID] = p
	return p
}

func (r *fakeProductRepo) Create(ctx context.Context, p *model.Product) error {
	for _, existing := range r.products {
		if existing.Name == p.Name && existing.Artisan == p.Artisan {
			return repository.ErrDuplicate
		}
	}
	r.add(p)
	p.CreatedAt = time.Now()
	return nil
}

func (r *fakeProductRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*model.Product, error) {
	p, ok := r.products[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *p
	return &copied, nil
}

func (r *fakeProductRepo) FindActiveByID(ctx context.Context, id primitive.ObjectID) (*model.Product, error) {
	p, ok := r.products[id]
	if !ok || !p.IsActive {
		return nil, repository.ErrNotFound
	}
	copied := *p
	return &copied, nil
}

func (r *fakeProductRepo) FindByNameAndArtisan(ctx context.Context, name string, artisan primitive.ObjectID) (*model.Product, error) {
	for _, p := range r.products {
		if p.Name == name && p.Artisan == artisan {
			copied := *p
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeProductRepo) matches(p *model.Product, f repository.ProductFilter) bool {
	if f.Active != nil && p.IsActive != *f.Active {
		return false
	}
	if f.Category != "" && p.Category != f.Category {
		return false
	}
	if f.Artisan != nil && p.Artisan != *f.Artisan {
		return false
	}
	if f.MinPrice != nil && p.Price < *f.MinPrice {
		return false
	}
	if f.MaxPrice != nil && p.Price > *f.MaxPrice {
		return false
	}
	return true
}

func (r *fakeProductRepo) Find(ctx context.Context, f repository.ProductFilter, page repository.Page) ([]*model.Product, int64, error) {
	var out []*model.Product
	for _, p := range r.products {
		if r.matches(p, f) {
			copied := *p
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return paginate(out, page)
}

func (r *fakeProductRepo) Update(ctx context.Context, id primitive.ObjectID, u repository.ProductUpdate) (*model.Product, error) {
	p, ok := r.products[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.Description != nil {
		p.Description = *u.Description
	}
	if u.Price != nil {
		p.Price = *u.Price
	}
	if u.Stock != nil {
		p.Stock = *u.Stock
	}
	if u.Category != nil {
		p.Category = *u.Category
	}
	if u.Images != nil {
		p.Images = u.Images
	}
	copied := *p
	return &copied, nil
}

func (r *fakeProductRepo) SoftDelete(ctx context.Context, id primitive.ObjectID) error {
	p, ok := r.products[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.IsActive = false
	return nil
}

func (r *fakeProductRepo) AdjustStock(ctx context.Context, id primitive.ObjectID, delta int) error {
	p, ok := r.products[id]
	if !ok {
		return repository.ErrNotFound
	}
	if p.Stock+delta < 0 {
		return repository.ErrInsufficientStock
	}
	p.Stock += delta
	return nil
}

func (r *fakeProductRepo) SetStock(ctx context.Context, id primitive.ObjectID, value int) error {
	p, ok := r.products[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.Stock = value
	return nil
}

func (r *fakeProductRepo) Categories(ctx context.Context) ([]string, error) {
	seen := map[string]bool{}
	var out []string
	for _, p := range r.products {
		if p.IsActive && !seen[p.Category] {
			seen[p.Category] = true
			out = append(out, p.Category)
		}
	}
	return out, nil
}

type fakeOrderRepo struct {
	orders map[primitive.ObjectID]*model.Order
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: map[primitive.ObjectID]*model.Order{}}
}

func (r *fakeOrderRepo) add(o *model.Order) *model.Order {
	if o.ID.IsZero() {
		o.ID = primitive.NewObjectID()
	}
	r.orders[o.ID] = o
	return o
}

func (r *fakeOrderRepo) Insert(ctx context.Context, o *model.Order) error {
	now := time.Now()
	o.CreatedAt = now
	o.UpdatedAt = now
	r.add(o)
	return nil
}

func (r *fakeOrderRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*model.Order, error) {
	o, ok := r.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *o
	copied.Items = append([]model.OrderItem(nil), o.Items...)
	return &copied, nil
}

func (r *fakeOrderRepo) FindByReturnID(ctx context.Context, returnID primitive.ObjectID) (*model.Order, error) {
	for _, o := range r.orders {
		if o.FindReturn(returnID) != nil {
			copied := *o
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeOrderRepo) Find(ctx context.Context, f repository.OrderFilter, page repository.Page) ([]*model.Order, int64, error) {
	var out []*model.Order
	for _, o := range r.orders {
		if f.Buyer != nil && o.Buyer != *f.Buyer {
			continue
		}
		if f.Artisan != nil && !o.HasArtisan(*f.Artisan) {
			continue
		}
		if f.Status != "" && string(o.Status) != f.Status {
			continue
		}
		if f.FromDate != nil && o.CreatedAt.Before(*f.FromDate) {
			continue
		}
		if f.ToDate != nil && o.CreatedAt.After(*f.ToDate) {
			continue
		}
		copied := *o
		copied.Items = append([]model.OrderItem(nil), o.Items...)
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return paginate(out, page)
}

func (r *fakeOrderRepo) UpdateStatus(ctx context.Context, id primitive.ObjectID, status model.OrderStatus, trackingNumber string, entry model.HistoryEntry) error {
	o, ok := r.orders[id]
	if !ok {
		return repository.ErrNotFound
	}
	o.Status = status
	if trackingNumber != "" {
		o.TrackingNumber = trackingNumber
	}
	o.History = append(o.History, entry)
	o.UpdatedAt = entry.Date
	return nil
}

func (r *fakeOrderRepo) PushReturnRequest(ctx context.Context, orderID primitive.ObjectID, rr model.ReturnRequest) error {
	o, ok := r.orders[orderID]
	if !ok {
		return repository.ErrNotFound
	}
	o.ReturnRequests = append(o.ReturnRequests, rr)
	return nil
}

func (r *fakeOrderRepo) UpdateReturnStatus(ctx context.Context, orderID, returnID primitive.ObjectID, status model.ReturnStatus, entry model.ReturnHistoryEntry) error {
	o, ok := r.orders[orderID]
	if !ok {
		return repository.ErrNotFound
	}
	rr := o.FindReturn(returnID)
	if rr == nil {
		return repository.ErrNotFound
	}
	rr.Status = status
	rr.History = append(rr.History, entry)
	rr.UpdatedAt = entry.Date
	return nil
}

func (r *fakeOrderRepo) ListReturns(ctx context.Context, f repository.ReturnFilter, page repository.Page) ([]repository.ReturnSummary, int64, error) {
	var out []repository.ReturnSummary
	for _, o := range r.orders {
		if f.Artisan != nil && !o.HasArtisan(*f.Artisan) {
			continue
		}
		for _, rr := range o.ReturnRequests {
			if f.Status != "" && string(rr.Status) != f.Status {
				continue
			}
			if f.RequestedBy != nil && rr.RequestedBy != *f.RequestedBy {
				continue
			}
			if f.FromDate != nil && rr.UpdatedAt.Before(*f.FromDate) {
				continue
			}
			if f.ToDate != nil && rr.UpdatedAt.After(*f.ToDate) {
				continue
			}
			out = append(out, repository.ReturnSummary{
				ReturnID:    rr.ID,
				OrderID:     o.ID,
				Status:      rr.Status,
				Reason:      rr.Metadata.Reason,
				RequestedAt: rr.CreatedAt,
				UpdatedAt:   rr.UpdatedAt,
				Total:       o.Total,
				History:     rr.History,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return paginate(out, page)
}

func (r *fakeOrderRepo) ArtisanRevenue(ctx context.Context, artisanID primitive.ObjectID, f repository.OrderFilter) (float64, error) {
	var revenue float64
	for _, o := range r.orders {
		if f.Status != "" && string(o.Status) != f.Status {
			continue
		}
		if f.FromDate != nil && o.CreatedAt.Before(*f.FromDate) {
			continue
		}
		if f.ToDate != nil && o.CreatedAt.After(*f.ToDate) {
			continue
		}
		for _, it := range o.Items {
			if it.Artisan == artisanID {
				revenue += it.PriceAtPurchase * float64(it.Quantity)
			}
		}
	}
	return revenue, nil
}

// paginate aplica la ventana sobre la colección ya ordenada.
func paginate[T any](items []T, page repository.Page) ([]T, int64, error) {
	total := int64(len(items))
	start := int(page.Skip())
	if start > len(items) {
		return nil, total, nil
	}
	end := start + page.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end], total, nil
}

// fakeTx ejecuta la función directamente, sin sesión Mongo.
type fakeTx struct{}

func (fakeTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// fakePublisher acumula los eventos emitidos.
type fakePublisher struct {
	events []string
}

func (p *fakePublisher) Publish(ctx context.Context, exchange string, payload interface{}) error {
	p.events = append(p.events, exchange)
	return nil
}
