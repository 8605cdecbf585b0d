package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/DevilsWillCry/marketplace-artesanal/internal/dto"
	"github.com/DevilsWillCry/marketplace-artesanal/internal/logger"
	"github.com/DevilsWillCry/marketplace-artesanal/internal/model"
	"github.com/DevilsWillCry/marketplace-artesanal/internal/repository"
	"github.com/DevilsWillCry/marketplace-artesanal/internal/tracking"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Exchanges de eventos de dominio.
const (
	ExchangeOrderPlaced    = "order_placed"
	ExchangeOrderShipped   = "order_shipped"
	ExchangeOrderCancelled = "order_cancelled"
)

// Transiciones permitidas del estado de la orden.
var orderTransitions = map[model.OrderStatus][]model.OrderStatus{
	model.OrderPending:    {model.OrderProcessing, model.OrderCancelled},
	model.OrderProcessing: {model.OrderShipped, model.OrderCancelled},
	model.OrderShipped:    {model.OrderDelivered},
	model.OrderDelivered:  {},
	model.OrderCancelled:  {},
}

// AllowedTransitions devuelve el conjunto permitido desde un estado.
func AllowedTransitions(from model.OrderStatus) []string {
	allowed := orderTransitions[from]
	out := make([]string, len(allowed))
	for i, s := range allowed {
		out[i] = string(s)
	}
	return out
}

func containsStatus(arr []model.OrderStatus, s model.OrderStatus) bool {
	for _, v := range arr {
		if v == s {
			return true
		}
	}
	return false
}

type OrderService struct {
	orders       OrderRepository
	products     ProductRepository
	tx           TxRunner
	events       EventPublisher
	cancelWindow time.Duration
	now          func() time.Time
}

func NewOrderService(orders OrderRepository, products ProductRepository, tx TxRunner, events EventPublisher, cancelWindow time.Duration) *OrderService {
	return &OrderService{
		orders:       orders,
		products:     products,
		tx:           tx,
		events:       events,
		cancelWindow: cancelWindow,
		now:          time.Now,
	}
}

// publish emite el evento si hay broker configurado; un fallo solo se loguea.
func (s *OrderService) publish(ctx context.Context, exchange string, payload interface{}) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, exchange, payload); err != nil {
		logger.L().Warn("no se pudo publicar el evento",
			zap.String("exchange", exchange), zap.Error(err))
	}
}

// Create valida existencia, actividad y stock de cada producto, congela
// precio y artesano, y persiste orden + decrementos en una sola transacción.
func (s *OrderService) Create(ctx context.Context, buyer *model.User, req dto.CreateOrderRequest) (*model.Order, error) {
	items := make([]model.OrderItem, 0, len(req.Items))
	var total float64

	for _, in := range req.Items {
		productID, err := parseObjectID(in.ProductID, "producto")
		if err != nil {
			return nil, err
		}
		product, err := s.products.FindByID(ctx, productID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, &NotFoundError{Resource: "producto", ID: in.ProductID}
			}
			return nil, err
		}
		if !product.IsActive {
			return nil, &ValidationError{Message: fmt.Sprintf("el producto con ID %s no está activo", in.ProductID)}
		}
		if product.Stock < in.Quantity {
			return nil, &ValidationError{Message: fmt.Sprintf("stock insuficiente para el producto con ID %s", in.ProductID)}
		}

		items = append(items, model.OrderItem{
			Product:         product.ID,
			Quantity:        in.Quantity,
			PriceAtPurchase: product.Price, // precio al momento de la compra
			Artisan:         product.Artisan,
		})
		total += product.Price * float64(in.Quantity)
	}

	order := &model.Order{
		Buyer: buyer.ID,
		Items: items,
		Total: total,
		ShippingAddress: model.ShippingAddress{
			Street:     req.ShippingAddress.Street,
			City:       req.ShippingAddress.City,
			PostalCode: req.ShippingAddress.PostalCode,
			Country:    req.ShippingAddress.Country,
		},
		PaymentMethod: model.PaymentMethod(req.PaymentMethod),
		PaymentStatus: model.PaymentPending,
		Status:        model.OrderPending,
		History: []model.HistoryEntry{
			{Status: model.OrderPending, ChangedBy: buyer.ID, Date: s.now().UTC()},
		},
	}

	// Insert + decrementos en una unidad atómica: nada de órdenes a medias.
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.orders.Insert(ctx, order); err != nil {
			return err
		}
		for _, it := range order.Items {
			if err := s.products.AdjustStock(ctx, it.Product, -it.Quantity); err != nil {
				if errors.Is(err, repository.ErrInsufficientStock) {
					return &ValidationError{Message: fmt.Sprintf("stock insuficiente para el producto con ID %s", it.Product.Hex())}
				}
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, ExchangeOrderPlaced, map[string]interface{}{
		"orderId": order.ID.Hex(),
		"buyerId": buyer.ID.Hex(),
		"total":   order.Total,
	})
	return order, nil
}

// canView: comprador, artesano con items en la orden, o admin.
func canViewOrder(o *model.Order, actor *model.User) bool {
	return o.Buyer == actor.ID || o.HasArtisan(actor.ID) || actor.IsAdmin()
}

// Get devuelve la orden; un artesano que no es el comprador solo ve sus items.
func (s *OrderService) Get(ctx context.Context, idHex string, actor *model.User) (*model.Order, error) {
	id, err := parseObjectID(idHex, "pedido")
	if err != nil {
		return nil, err
	}
	order, err := s.orders.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &NotFoundError{Resource: "pedido", ID: idHex}
		}
		return nil, err
	}
	if !canViewOrder(order, actor) {
		return nil, &ForbiddenError{Message: "no tienes permiso para ver este pedido"}
	}

	if order.Buyer != actor.ID && !actor.IsAdmin() {
		filtered := make([]model.OrderItem, 0, len(order.Items))
		for _, it := range order.Items {
			if it.Artisan == actor.ID {
				filtered = append(filtered, it)
			}
		}
		order.Items = filtered
	}
	return order, nil
}

// ListByBuyer devuelve los pedidos del comprador, más recientes primero.
func (s *OrderService) ListByBuyer(ctx context.Context, buyerID primitive.ObjectID, q dto.OrderQuery) ([]*model.Order, dto.Meta, error) {
	q.Normalize()
	filter := repository.OrderFilter{Buyer: &buyerID, Status: q.Status}
	orders, total, err := s.orders.Find(ctx, filter, repository.Page{Page: q.Page, Limit: q.Limit})
	if err != nil {
		return nil, dto.Meta{}, err
	}
	return orders, dto.NewMeta(total, q.Page, q.Limit), nil
}

// UpdateStatus valida y realiza la transición según la tabla.
// shipped exige trackingNumber; cancelled exige motivo y repone stock.
func (s *OrderService) UpdateStatus(ctx context.Context, idHex string, actor *model.User, req dto.UpdateOrderStatusRequest) (*model.Order, error) {
	id, err := parseObjectID(idHex, "pedido")
	if err != nil {
		return nil, err
	}
	order, err := s.orders.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &NotFoundError{Resource: "pedido", ID: idHex}
		}
		return nil, err
	}

	if !order.HasArtisan(actor.ID) && !actor.IsAdmin() {
		return nil, &ForbiddenError{Message: "no tienes permiso para actualizar el estado del pedido"}
	}

	newStatus := model.OrderStatus(req.Status)
	if !containsStatus(orderTransitions[order.Status], newStatus) {
		return nil, &InvalidTransitionError{
			From:    string(order.Status),
			To:      string(newStatus),
			Allowed: AllowedTransitions(order.Status),
		}
	}

	if newStatus == model.OrderShipped && req.TrackingNumber == "" {
		return nil, &ValidationError{Message: "trackingNumber es requerido para marcar el pedido como enviado"}
	}
	if newStatus == model.OrderCancelled && req.CancellationReason == "" {
		return nil, &ValidationError{Message: "cancellationReason es requerido para cancelar el pedido"}
	}

	entry := model.HistoryEntry{
		Status:    newStatus,
		ChangedBy: actor.ID,
		Date:      s.now().UTC(),
	}
	if req.CancellationReason != "" {
		entry.Metadata = map[string]string{"cancellationReason": req.CancellationReason}
	}

	if newStatus == model.OrderCancelled {
		err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
			for _, it := range order.Items {
				if err := s.products.AdjustStock(ctx, it.Product, it.Quantity); err != nil {
					return err
				}
			}
			return s.orders.UpdateStatus(ctx, id, newStatus, "", entry)
		})
	} else {
		err = s.orders.UpdateStatus(ctx, id, newStatus, req.TrackingNumber, entry)
	}
	if err != nil {
		return nil, err
	}

	switch newStatus {
	case model.OrderShipped:
		s.publish(ctx, ExchangeOrderShipped, map[string]interface{}{
			"orderId":        order.ID.Hex(),
			"trackingNumber": req.TrackingNumber,
		})
	case model.OrderCancelled:
		s.publish(ctx, ExchangeOrderCancelled, map[string]interface{}{
			"orderId": order.ID.Hex(),
			"reason":  req.CancellationReason,
		})
	}

	return s.orders.FindByID(ctx, id)
}

// Cancel es la vía de cancelación del comprador: solo desde pending/processing
// y dentro de la ventana de 24 horas; el admin no tiene límite de tiempo.
func (s *OrderService) Cancel(ctx context.Context, idHex string, actor *model.User, req dto.CancelOrderRequest) (*model.Order, bool, error) {
	id, err := parseObjectID(idHex, "pedido")
	if err != nil {
		return nil, false, err
	}
	order, err := s.orders.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, false, &NotFoundError{Resource: "pedido", ID: idHex}
		}
		return nil, false, err
	}

	if order.Buyer != actor.ID && !actor.IsAdmin() {
		return nil, false, &ForbiddenError{Message: "no tienes permiso para cancelar este pedido"}
	}

	if order.Status != model.OrderPending && order.Status != model.OrderProcessing {
		return nil, false, &InvalidTransitionError{
			From:    string(order.Status),
			To:      string(model.OrderCancelled),
			Allowed: AllowedTransitions(order.Status),
		}
	}

	if !actor.IsAdmin() {
		deadline := order.CreatedAt.Add(s.cancelWindow)
		if s.now().After(deadline) {
			return nil, false, &WindowExpiredError{
				Message:  "solo puedes cancelar pedidos dentro de las 24 horas",
				Deadline: deadline,
				Now:      s.now(),
			}
		}
	}

	entry := model.HistoryEntry{
		Status:    model.OrderCancelled,
		ChangedBy: actor.ID,
		Date:      s.now().UTC(),
		Metadata:  map[string]string{"cancellationReason": req.Reason},
	}

	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		for _, it := range order.Items {
			if err := s.products.AdjustStock(ctx, it.Product, it.Quantity); err != nil {
				return err
			}
		}
		return s.orders.UpdateStatus(ctx, id, model.OrderCancelled, "", entry)
	})
	if err != nil {
		return nil, false, err
	}

	s.publish(ctx, ExchangeOrderCancelled, map[string]interface{}{
		"orderId": order.ID.Hex(),
		"reason":  req.Reason,
	})

	// El reembolso real es un colaborador externo; aquí solo la intención.
	refundInitiated := req.RefundRequest && order.PaymentMethod != model.PaymentCashOnDelivery

	updated, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return updated, refundInitiated, nil
}

// Tracking arma el seguimiento simulado del envío.
func (s *OrderService) Tracking(ctx context.Context, idHex string, actor *model.User) (*tracking.Info, error) {
	id, err := parseObjectID(idHex, "pedido")
	if err != nil {
		return nil, err
	}
	order, err := s.orders.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &NotFoundError{Resource: "pedido", ID: idHex}
		}
		return nil, err
	}
	if !canViewOrder(order, actor) {
		return nil, &ForbiddenError{Message: "no tienes permiso para ver este pedido"}
	}
	if order.Status != model.OrderShipped && order.Status != model.OrderDelivered {
		return nil, &ValidationError{Message: "el pedido aún no ha sido enviado ni entregado"}
	}
	if order.TrackingNumber == "" {
		return nil, &ValidationError{Message: "el pedido no tiene número de seguimiento asignado"}
	}

	info := tracking.Generate(order, s.now())
	return &info, nil
}

// parseDate interpreta YYYY-MM-DD; endOfDay extiende al final del día (UTC).
func parseDate(value string, endOfDay bool) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, &ValidationError{Message: "fecha inválida, formato esperado YYYY-MM-DD"}
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Second)
	}
	return &t, nil
}

// ArtisanOrders lista los pedidos que incluyen productos del artesano,
// con sus items filtrados y el ingreso agregado del período.
func (s *OrderService) ArtisanOrders(ctx context.Context, artisan *model.User, q dto.ArtisanOrdersQuery) ([]*model.Order, dto.Meta, float64, error) {
	q.Normalize()

	from, err := parseDate(q.FromDate, false)
	if err != nil {
		return nil, dto.Meta{}, 0, err
	}
	to, err := parseDate(q.ToDate, true)
	if err != nil {
		return nil, dto.Meta{}, 0, err
	}

	filter := repository.OrderFilter{
		Artisan:  &artisan.ID,
		Status:   q.Status,
		FromDate: from,
		ToDate:   to,
	}
	orders, total, err := s.orders.Find(ctx, filter, repository.Page{Page: q.Page, Limit: q.Limit})
	if err != nil {
		return nil, dto.Meta{}, 0, err
	}

	for _, o := range orders {
		filtered := make([]model.OrderItem, 0, len(o.Items))
		for _, it := range o.Items {
			if it.Artisan == artisan.ID {
				filtered = append(filtered, it)
			}
		}
		o.Items = filtered
	}

	revenue, err := s.orders.ArtisanRevenue(ctx, artisan.ID, filter)
	if err != nil {
		return nil, dto.Meta{}, 0, err
	}
	return orders, dto.NewMeta(total, q.Page, q.Limit), revenue, nil
}
