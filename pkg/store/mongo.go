package store

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/matzehuels/flowgraph/pkg/errors"
	pkgio "github.com/matzehuels/flowgraph/pkg/io"
)

// DefaultCollection is the collection MongoStore uses unless told otherwise.
const DefaultCollection = "models"

// MongoStore keeps documents in a MongoDB collection, keyed by name. The
// document is stored as JSON so that attribute values round-trip exactly.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

type mongoRecord struct {
	Name      string    `bson:"_id"`
	Document  []byte    `bson:"document"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// DialMongo connects to uri and uses the given database. It pings the
// primary before returning.
func DialMongo(ctx context.Context, uri, database string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return NewMongoStore(client, client.Database(database).Collection(DefaultCollection)), nil
}

// NewMongoStore wraps an existing collection. Close disconnects client.
func NewMongoStore(client *mongo.Client, coll *mongo.Collection) *MongoStore {
	return &MongoStore{client: client, coll: coll}
}

func (s *MongoStore) Get(ctx context.Context, name string) (*pkgio.Document, error) {
	if err := errors.ValidateName(name); err != nil {
		return nil, err
	}
	var rec mongoRecord
	err := s.coll.FindOne(ctx, bson.M{"_id": name}).Decode(&rec)
	if stderrors.Is(err, mongo.ErrNoDocuments) {
		return nil, notFound(name)
	}
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", name, err)
	}
	return decode(rec.Document)
}

func (s *MongoStore) Put(ctx context.Context, name string, doc *pkgio.Document) error {
	data, err := prepare(name, doc)
	if err != nil {
		return err
	}
	rec := mongoRecord{Name: name, Document: data, UpdatedAt: time.Now().UTC()}
	_, err = s.coll.ReplaceOne(ctx, bson.M{"_id": name}, rec, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("store %s: %w", name, err)
	}
	return nil
}

func (s *MongoStore) List(ctx context.Context) ([]string, error) {
	opts := options.Find().SetProjection(bson.M{"_id": 1}).SetSort(bson.M{"_id": 1})
	cur, err := s.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	defer cur.Close(ctx)
	var names []string
	for cur.Next(ctx) {
		var rec struct {
			Name string `bson:"_id"`
		}
		if err := cur.Decode(&rec); err != nil {
			return nil, err
		}
		names = append(names, rec.Name)
	}
	return names, cur.Err()
}

func (s *MongoStore) Delete(ctx context.Context, name string) error {
	if err := errors.ValidateName(name); err != nil {
		return err
	}
	if _, err := s.coll.DeleteOne(ctx, bson.M{"_id": name}); err != nil {
		return fmt.Errorf("delete %s: %w", name, err)
	}
	return nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

var _ Store = (*MongoStore)(nil)
