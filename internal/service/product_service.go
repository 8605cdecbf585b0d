package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/DevilsWillCry/marketplace-artesanal/internal/dto"
	"github.com/DevilsWillCry/marketplace-artesanal/internal/model"
	"github.com/DevilsWillCry/marketplace-artesanal/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ProductService struct {
	products ProductRepository
}

func NewProductService(products ProductRepository) *ProductService {
	return &ProductService{products: products}
}

func parseObjectID(hex, resource string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, &ValidationError{Message: fmt.Sprintf("ID de %s inválido", resource)}
	}
	return id, nil
}

// canManage: solo el artesano dueño o un admin pueden mutar el producto.
func canManage(p *model.Product, actor *model.User) bool {
	return p.Artisan == actor.ID || actor.IsAdmin()
}

// Create valida la unicidad (name, artisan) antes de insertar.
func (s *ProductService) Create(ctx context.Context, artisan *model.User, req dto.CreateProductRequest) (*model.Product, error) {
	if _, err := s.products.FindByNameAndArtisan(ctx, req.Name, artisan.ID); err == nil {
		return nil, &ValidationError{Message: "ya existe un producto con el mismo nombre para este artesano"}
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	product := &model.Product{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Images:      req.Images,
		Category:    req.Category,
		Artisan:     artisan.ID,
		Stock:       req.Stock,
		IsActive:    true,
	}
	if err := s.products.Create(ctx, product); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, &ValidationError{Message: "ya existe un producto con el mismo nombre para este artesano"}
		}
		return nil, err
	}
	return product, nil
}

func optFloat(v float64) *float64 {
	if v == 0 {
		return nil
	}
	return &v
}

// List devuelve productos activos con filtros y paginación.
func (s *ProductService) List(ctx context.Context, q dto.ProductQuery) ([]*model.Product, dto.Meta, error) {
	q.Normalize()

	active := true
	filter := repository.ProductFilter{
		Category: q.Category,
		MinPrice: optFloat(q.MinPrice),
		MaxPrice: optFloat(q.MaxPrice),
		Active:   &active,
		Sort:     q.Sort,
	}
	products, total, err := s.products.Find(ctx, filter, repository.Page{Page: q.Page, Limit: q.Limit})
	if err != nil {
		return nil, dto.Meta{}, err
	}
	return products, dto.NewMeta(total, q.Page, q.Limit), nil
}

// Search agrega la búsqueda case-insensitive sobre nombre y descripción.
func (s *ProductService) Search(ctx context.Context, q dto.ProductSearchQuery) ([]*model.Product, dto.Meta, error) {
	q.Normalize()

	active := true
	filter := repository.ProductFilter{
		Category: q.Category,
		MinPrice: optFloat(q.MinPrice),
		MaxPrice: optFloat(q.MaxPrice),
		Search:   q.Query,
		Active:   &active,
		Sort:     q.Sort,
	}
	products, total, err := s.products.Find(ctx, filter, repository.Page{Page: q.Page, Limit: q.Limit})
	if err != nil {
		return nil, dto.Meta{}, err
	}
	return products, dto.NewMeta(total, q.Page, q.Limit), nil
}

func (s *ProductService) GetByID(ctx context.Context, idHex string) (*model.Product, error) {
	id, err := parseObjectID(idHex, "producto")
	if err != nil {
		return nil, err
	}
	product, err := s.products.FindActiveByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, &NotFoundError{Resource: "producto", ID: idHex}
	}
	return product, err
}

// ByArtisan lista los productos de un artesano, activos o inactivos.
func (s *ProductService) ByArtisan(ctx context.Context, artisanHex string, q dto.ArtisanProductsQuery) ([]*model.Product, dto.Meta, error) {
	artisanID, err := parseObjectID(artisanHex, "artesano")
	if err != nil {
		return nil, dto.Meta{}, err
	}
	q.Normalize()

	active := q.Status != "inactive"
	filter := repository.ProductFilter{
		Category: q.Category,
		Artisan:  &artisanID,
		Active:   &active,
	}
	products, total, err := s.products.Find(ctx, filter, repository.Page{Page: q.Page, Limit: q.Limit})
	if err != nil {
		return nil, dto.Meta{}, err
	}
	return products, dto.NewMeta(total, q.Page, q.Limit), nil
}

func (s *ProductService) Update(ctx context.Context, idHex string, actor *model.User, req dto.UpdateProductRequest) (*model.Product, error) {
	id, err := parseObjectID(idHex, "producto")
	if err != nil {
		return nil, err
	}
	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &NotFoundError{Resource: "producto", ID: idHex}
		}
		return nil, err
	}
	if !canManage(product, actor) {
		return nil, &ForbiddenError{Message: "no tienes permisos para editar este producto"}
	}

	update := repository.ProductUpdate{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		Category:    req.Category,
		Images:      req.Images,
	}
	if update.IsEmpty() {
		return nil, &ValidationError{Message: "no hay campos para actualizar"}
	}

	updated, err := s.products.Update(ctx, id, update)
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, &ValidationError{Message: "ya existe un producto con el mismo nombre para este artesano"}
	}
	return updated, err
}

// Delete hace borrado lógico.
func (s *ProductService) Delete(ctx context.Context, idHex string, actor *model.User) error {
	id, err := parseObjectID(idHex, "producto")
	if err != nil {
		return err
	}
	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return &NotFoundError{Resource: "producto", ID: idHex}
		}
		return err
	}
	if !canManage(product, actor) {
		return &ForbiddenError{Message: "no tienes permisos para eliminar este producto"}
	}
	return s.products.SoftDelete(ctx, id)
}

// AdjustStock aplica la operación increment | decrement | set.
func (s *ProductService) AdjustStock(ctx context.Context, idHex string, actor *model.User, req dto.AdjustStockRequest) (*model.Product, error) {
	id, err := parseObjectID(idHex, "producto")
	if err != nil {
		return nil, err
	}
	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &NotFoundError{Resource: "producto", ID: idHex}
		}
		return nil, err
	}
	if !canManage(product, actor) {
		return nil, &ForbiddenError{Message: "no tienes permisos para ajustar el stock de este producto"}
	}

	switch req.Operation {
	case "increment":
		err = s.products.AdjustStock(ctx, id, req.Value)
	case "decrement":
		err = s.products.AdjustStock(ctx, id, -req.Value)
	case "set":
		err = s.products.SetStock(ctx, id, req.Value)
	}
	if err != nil {
		if errors.Is(err, repository.ErrInsufficientStock) {
			return nil, &ValidationError{Message: "stock insuficiente para el decremento solicitado"}
		}
		return nil, err
	}

	return s.products.FindByID(ctx, id)
}

// Categories devuelve las categorías activas ordenadas alfabéticamente.
func (s *ProductService) Categories(ctx context.Context) ([]string, error) {
	categories, err := s.products.Categories(ctx)
	if err != nil {
		return nil, err
	}
	sort.Strings(categories)
	return categories, nil
}
