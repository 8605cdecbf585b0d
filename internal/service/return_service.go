package service

import (
	"context"
	"errors"
	"time"

	"github.com/DevilsWillCry/marketplace-artesanal/internal/dto"
	"github.com/DevilsWillCry/marketplace-artesanal/internal/model"
	"github.com/DevilsWillCry/marketplace-artesanal/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	ExchangeReturnRequested = "return_requested"
	ExchangeReturnReviewed  = "return_reviewed"
)

// Máquina de estados de la devolución (independiente de la orden).
var returnTransitions = map[model.ReturnStatus][]model.ReturnStatus{
	model.ReturnPendingReview: {model.ReturnApproved, model.ReturnRejected},
	model.ReturnApproved:      {model.ReturnRefunded},
	model.ReturnRejected:      {},
	model.ReturnRefunded:      {},
}

// AllowedReturnTransitions devuelve el conjunto permitido desde un estado.
func AllowedReturnTransitions(from model.ReturnStatus) []string {
	allowed := returnTransitions[from]
	out := make([]string, len(allowed))
	for i, s := range allowed {
		out[i] = string(s)
	}
	return out
}

type ReturnService struct {
	orders   OrderRepository
	products ProductRepository
	tx       TxRunner
	events   EventPublisher
	window   time.Duration // plazo desde la entrega para solicitar devolución
	now      func() time.Time
}

func NewReturnService(orders OrderRepository, products ProductRepository, tx TxRunner, events EventPublisher, window time.Duration) *ReturnService {
	return &ReturnService{
		orders:   orders,
		products: products,
		tx:       tx,
		events:   events,
		window:   window,
		now:      time.Now,
	}
}

func (s *ReturnService) publish(ctx context.Context, exchange string, payload interface{}) {
	if s.events == nil {
		return
	}
	_ = s.events.Publish(ctx, exchange, payload)
}

// Submit crea la solicitud de devolución del comprador.
// Reglas: orden entregada, dentro del plazo, items válidos y sin otra
// solicitud abierta (una pendiente o aprobada bloquea).
func (s *ReturnService) Submit(ctx context.Context, orderHex string, actor *model.User, req dto.ReturnOrderRequest) (*model.ReturnRequest, time.Time, error) {
	orderID, err := parseObjectID(orderHex, "pedido")
	if err != nil {
		return nil, time.Time{}, err
	}
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, time.Time{}, &NotFoundError{Resource: "pedido", ID: orderHex}
		}
		return nil, time.Time{}, err
	}

	if order.Buyer != actor.ID && !actor.IsAdmin() {
		return nil, time.Time{}, &ForbiddenError{Message: "no tienes permiso para devolver este pedido"}
	}
	if order.Status != model.OrderDelivered {
		return nil, time.Time{}, &ValidationError{Message: "solo pedidos entregados pueden ser devueltos"}
	}

	deadline := order.DeliveredAt().Add(s.window)
	if s.now().After(deadline) {
		return nil, time.Time{}, &WindowExpiredError{
			Message:  "el plazo de devolución ha caducado",
			Deadline: deadline,
			Now:      s.now(),
		}
	}

	items, invalid, err := s.validateItems(order, req.Items)
	if err != nil {
		return nil, time.Time{}, err
	}
	if len(invalid) > 0 {
		return nil, time.Time{}, &ValidationError{
			Message: "algunos productos no pertenecen al pedido o exceden la cantidad comprada",
			Details: invalid,
		}
	}

	// Una solicitud no terminal bloquea la nueva.
	for _, rr := range order.ReturnRequests {
		if !rr.Status.IsFinal() {
			return nil, time.Time{}, &ValidationError{Message: "ya existe una solicitud de devolución pendiente"}
		}
	}

	now := s.now().UTC()
	rr := model.ReturnRequest{
		ID:          primitive.NewObjectID(),
		RequestedBy: actor.ID,
		Status:      model.ReturnPendingReview,
		Metadata: model.ReturnMetadata{
			Reason:       req.Reason,
			Items:        items,
			Evidence:     req.Evidence,
			RefundMethod: req.RefundMethod,
		},
		History: []model.ReturnHistoryEntry{
			{Status: model.ReturnPendingReview, ChangedBy: actor.ID, Date: now},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.orders.PushReturnRequest(ctx, orderID, rr); err != nil {
		return nil, time.Time{}, err
	}

	s.publish(ctx, ExchangeReturnRequested, map[string]interface{}{
		"orderId":  order.ID.Hex(),
		"returnId": rr.ID.Hex(),
	})
	return &rr, deadline, nil
}

// validateItems cruza los items solicitados contra las líneas de la orden.
func (s *ReturnService) validateItems(order *model.Order, inputs []dto.ReturnItemInput) ([]model.ReturnItem, []string, error) {
	items := make([]model.ReturnItem, 0, len(inputs))
	var invalid []string

	for _, in := range inputs {
		productID, err := primitive.ObjectIDFromHex(in.ProductID)
		if err != nil {
			invalid = append(invalid, in.ProductID)
			continue
		}
		found := false
		for _, oi := range order.Items {
			if oi.Product == productID && oi.Quantity >= in.Quantity {
				found = true
				break
			}
		}
		if !found {
			invalid = append(invalid, in.ProductID)
			continue
		}
		items = append(items, model.ReturnItem{ProductID: productID, Quantity: in.Quantity})
	}
	return items, invalid, nil
}

// Review procesa la decisión del admin sobre una solicitud.
//   - pending_review -> approved: repone el stock de los items devueltos
//   - approved -> refunded: exige refundAmount y calcula el total
//     reembolsable con precios de catálogo al momento del reembolso
//   - pending_review -> rejected: terminal
func (s *ReturnService) Review(ctx context.Context, orderHex, returnHex string, actor *model.User, req dto.UpdateReturnStatusRequest) (*model.ReturnRequest, error) {
	orderID, err := parseObjectID(orderHex, "pedido")
	if err != nil {
		return nil, err
	}
	returnID, err := parseObjectID(returnHex, "solicitud de devolución")
	if err != nil {
		return nil, err
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &NotFoundError{Resource: "pedido", ID: orderHex}
		}
		return nil, err
	}
	rr := order.FindReturn(returnID)
	if rr == nil {
		return nil, &NotFoundError{Resource: "solicitud de devolución", ID: returnHex}
	}

	target := model.ReturnStatus(req.Status)
	allowed := false
	for _, t := range returnTransitions[rr.Status] {
		if t == target {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, &InvalidTransitionError{
			From:    string(rr.Status),
			To:      string(target),
			Allowed: AllowedReturnTransitions(rr.Status),
		}
	}

	entry := model.ReturnHistoryEntry{
		Status:    target,
		ChangedBy: actor.ID,
		Date:      s.now().UTC(),
		Comment:   req.AdminComment,
	}

	switch target {
	case model.ReturnApproved:
		// Reposición de stock exactamente una vez, junto con el cambio de estado.
		err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
			for _, it := range rr.Metadata.Items {
				if err := s.products.AdjustStock(ctx, it.ProductID, it.Quantity); err != nil {
					return err
				}
			}
			return s.orders.UpdateReturnStatus(ctx, orderID, returnID, target, entry)
		})

	case model.ReturnRefunded:
		if req.RefundAmount <= 0 {
			return nil, &ValidationError{Message: "refundAmount es requerido para reembolsar"}
		}
		var refund float64
		for _, it := range rr.Metadata.Items {
			product, perr := s.products.FindByID(ctx, it.ProductID)
			if perr != nil {
				if errors.Is(perr, repository.ErrNotFound) {
					return nil, &NotFoundError{Resource: "producto", ID: it.ProductID.Hex()}
				}
				return nil, perr
			}
			refund += product.Price * float64(it.Quantity)
		}
		entry.RefundAmount = refund
		err = s.orders.UpdateReturnStatus(ctx, orderID, returnID, target, entry)

	case model.ReturnRejected:
		err = s.orders.UpdateReturnStatus(ctx, orderID, returnID, target, entry)
	}
	if err != nil {
		return nil, err
	}

	rr.Status = target
	rr.History = append(rr.History, entry)
	rr.UpdatedAt = entry.Date

	s.publish(ctx, ExchangeReturnReviewed, map[string]interface{}{
		"orderId":      order.ID.Hex(),
		"returnId":     rr.ID.Hex(),
		"status":       string(target),
		"refundAmount": entry.RefundAmount,
	})
	return rr, nil
}

// Details devuelve la solicitud junto con su orden contenedora.
func (s *ReturnService) Details(ctx context.Context, returnHex string, actor *model.User) (*model.ReturnRequest, *model.Order, error) {
	returnID, err := parseObjectID(returnHex, "solicitud de devolución")
	if err != nil {
		return nil, nil, err
	}
	order, err := s.orders.FindByReturnID(ctx, returnID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, &NotFoundError{Resource: "solicitud de devolución", ID: returnHex}
		}
		return nil, nil, err
	}
	if !canViewOrder(order, actor) {
		return nil, nil, &ForbiddenError{Message: "no tienes permiso para ver esta devolución"}
	}
	rr := order.FindReturn(returnID)
	if rr == nil {
		return nil, nil, &NotFoundError{Resource: "solicitud de devolución", ID: returnHex}
	}
	return rr, order, nil
}

// List pagina las solicitudes desanidadas; quien no es admin solo ve las suyas.
func (s *ReturnService) List(ctx context.Context, actor *model.User, q dto.ListReturnsQuery) ([]repository.ReturnSummary, dto.Meta, error) {
	q.Normalize()

	from, err := parseDate(q.FromDate, false)
	if err != nil {
		return nil, dto.Meta{}, err
	}
	to, err := parseDate(q.ToDate, true)
	if err != nil {
		return nil, dto.Meta{}, err
	}

	filter := repository.ReturnFilter{
		Status:   q.Status,
		FromDate: from,
		ToDate:   to,
	}
	if !actor.IsAdmin() {
		filter.RequestedBy = &actor.ID
	} else if q.ArtisanID != "" {
		artisanID, err := parseObjectID(q.ArtisanID, "artesano")
		if err != nil {
			return nil, dto.Meta{}, err
		}
		filter.Artisan = &artisanID
	}

	summaries, total, err := s.orders.ListReturns(ctx, filter, repository.Page{Page: q.Page, Limit: q.Limit})
	if err != nil {
		return nil, dto.Meta{}, err
	}
	return summaries, dto.NewMeta(total, q.Page, q.Limit), nil
}
