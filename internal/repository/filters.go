// filters.go
package repository

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Page es la ventana de paginación (page 1-based).
type Page struct {
	Page  int
	Limit int
}

func (p Page) Skip() int64 {
	return int64((p.Page - 1) * p.Limit)
}

// ProductFilter se construye una sola vez y no se muta después;
// los campos opcionales usan punteros para distinguir "sin filtro".
type ProductFilter struct {
	Category string
	MinPrice *float64
	MaxPrice *float64
	Search   string
	Artisan  *primitive.ObjectID
	Active   *bool
	Sort     string
}

func (f ProductFilter) query() bson.M {
	q := bson.M{}
	if f.Active != nil {
		q["is_active"] = *f.Active
	}
	if f.Category != "" {
		q["category"] = f.Category
	}
	if f.Artisan != nil {
		q["artisan"] = *f.Artisan
	}
	if f.MinPrice != nil || f.MaxPrice != nil {
		price := bson.M{}
		if f.MinPrice != nil {
			price["$gte"] = *f.MinPrice
		}
		if f.MaxPrice != nil {
			price["$lte"] = *f.MaxPrice
		}
		q["price"] = price
	}
	if f.Search != "" {
		rx := primitive.Regex{Pattern: regexQuoteMeta(f.Search), Options: "i"}
		q["$or"] = bson.A{
			bson.M{"name": rx},
			bson.M{"description": rx},
		}
	}
	return q
}

// sort devuelve el documento de orden; por defecto más recientes primero.
func (f ProductFilter) sort() bson.D {
	key := f.Sort
	if key == "" {
		key = "-created_at"
	}
	dir := 1
	if key[0] == '-' {
		dir = -1
		key = key[1:]
	}
	return bson.D{{Key: key, Value: dir}}
}

// regexQuoteMeta escapa los metacaracteres para que el término de búsqueda
// se trate como texto literal dentro del $regex.
func regexQuoteMeta(s string) string {
	const special = `\.+*?()|[]{}^$`
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		for j := 0; j < len(special); j++ {
			if s[i] == special[j] {
				out = append(out, '\\')
				break
			}
		}
		out = append(out, s[i])
	}
	return string(out)
}

type OrderFilter struct {
	Buyer    *primitive.ObjectID
	Artisan  *primitive.ObjectID
	Status   string
	FromDate *time.Time
	ToDate   *time.Time
}

func (f OrderFilter) query() bson.M {
	q := bson.M{}
	if f.Buyer != nil {
		q["buyer"] = *f.Buyer
	}
	if f.Artisan != nil {
		q["items.artisan"] = *f.Artisan
	}
	if f.Status != "" {
		q["status"] = f.Status
	}
	if f.FromDate != nil || f.ToDate != nil {
		created := bson.M{}
		if f.FromDate != nil {
			created["$gte"] = *f.FromDate
		}
		if f.ToDate != nil {
			created["$lte"] = *f.ToDate
		}
		q["created_at"] = created
	}
	return q
}

type ReturnFilter struct {
	Status      string
	RequestedBy *primitive.ObjectID
	Artisan     *primitive.ObjectID
	FromDate    *time.Time
	ToDate      *time.Time
}

// query filtra órdenes que tengan al menos una solicitud de devolución
// compatible; el refinado por solicitud ocurre después del $unwind.
func (f ReturnFilter) query() bson.M {
	q := bson.M{"return_requests": bson.M{"$exists": true, "$ne": bson.A{}}}
	if f.Status != "" {
		q["return_requests.status"] = f.Status
	}
	if f.RequestedBy != nil {
		q["return_requests.requested_by"] = *f.RequestedBy
	}
	if f.Artisan != nil {
		q["items.artisan"] = *f.Artisan
	}
	return q
}

// unwound aplica los mismos criterios sobre la solicitud ya desanidada.
func (f ReturnFilter) unwound() bson.M {
	q := bson.M{}
	if f.Status != "" {
		q["return_requests.status"] = f.Status
	}
	if f.RequestedBy != nil {
		q["return_requests.requested_by"] = *f.RequestedBy
	}
	if f.FromDate != nil || f.ToDate != nil {
		updated := bson.M{}
		if f.FromDate != nil {
			updated["$gte"] = *f.FromDate
		}
		if f.ToDate != nil {
			updated["$lte"] = *f.ToDate
		}
		q["return_requests.updated_at"] = updated
	}
	return q
}
