// tx.go
package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
)

// MongoTxRunner envuelve mutaciones multi-documento (crear orden + descontar
// stock, cancelar + reponer) en una sesión transaccional. Requiere replica set.
type MongoTxRunner struct {
	client *mongo.Client
}

func NewMongoTxRunner(client *mongo.Client) *MongoTxRunner {
	return &MongoTxRunner{client: client}
}

func (t *MongoTxRunner) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	session, err := t.client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}
