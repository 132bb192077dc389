package docstore

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// MongoStore implements Store on top of a MongoDB database.
// Document IDs map to the _id field; Increment maps to $inc, which is the
// atomicity primitive the usage counters rely on.
type MongoStore struct {
	db *mongo.Database
}

// NewMongoStore creates a MongoDB-backed document store.
// Panics on nil database to fail fast during initialization.
func NewMongoStore(db *mongo.Database) *MongoStore {
	if db == nil {
		panic("docstore: mongo database is required")
	}
	return &MongoStore{db: db}
}

func (s *MongoStore) Get(ctx context.Context, collection, id string, out any) error {
	err := s.db.Collection(collection).FindOne(ctx, bson.M{"_id": id}).Decode(out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("docstore: get %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *MongoStore) Query(ctx context.Context, collection string, filters []Filter, out any, opts ...QueryOption) error {
	var qo queryOptions
	for _, opt := range opts {
		opt(&qo)
	}

	filter, err := buildMongoFilter(filters)
	if err != nil {
		return err
	}

	findOpts := options.Find()
	if qo.limit > 0 {
		findOpts.SetLimit(qo.limit)
	}
	if qo.sortField != "" {
		dir := 1
		if qo.sortDesc {
			dir = -1
		}
		findOpts.SetSort(bson.D{{Key: qo.sortField, Value: dir}})
	}

	cursor, err := s.db.Collection(collection).Find(ctx, filter, findOpts)
	if err != nil {
		return fmt.Errorf("docstore: query %s: %w", collection, err)
	}
	if err := cursor.All(ctx, out); err != nil {
		return fmt.Errorf("docstore: decode %s: %w", collection, err)
	}
	return nil
}

func (s *MongoStore) Set(ctx context.Context, collection, id string, doc any) error {
	_, err := s.db.Collection(collection).ReplaceOne(
		ctx,
		bson.M{"_id": id},
		doc,
		options.Replace().SetUpsert(true),
	)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicateKey
	}
	if err != nil {
		return fmt.Errorf("docstore: set %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *MongoStore) Update(ctx context.Context, collection, id string, patch map[string]any) error {
	res, err := s.db.Collection(collection).UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M(patch)},
	)
	if err != nil {
		return fmt.Errorf("docstore: update %s/%s: %w", collection, id, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) Delete(ctx context.Context, collection, id string) error {
	if _, err := s.db.Collection(collection).DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("docstore: delete %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *MongoStore) Increment(ctx context.Context, collection, id string, fields map[string]int64) error {
	inc := bson.M{}
	for field, amount := range fields {
		inc[field] = amount
	}

	_, err := s.db.Collection(collection).UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{"$inc": inc},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("docstore: increment %s/%s: %w", collection, id, err)
	}
	return nil
}

// Batch executes the writes as ordered bulk operations per collection.
// MongoDB guarantees per-document atomicity and ordered execution; a failed
// op aborts the rest of the batch for that collection.
func (s *MongoStore) Batch(ctx context.Context, ops []BatchOp) error {
	byCollection := make(map[string][]mongo.WriteModel)
	order := make([]string, 0, len(ops))

	for _, op := range ops {
		var model mongo.WriteModel
		switch op.kind {
		case batchSet:
			model = mongo.NewReplaceOneModel().
				SetFilter(bson.M{"_id": op.ID}).
				SetReplacement(op.Doc).
				SetUpsert(true)
		case batchUpdate:
			model = mongo.NewUpdateOneModel().
				SetFilter(bson.M{"_id": op.ID}).
				SetUpdate(bson.M{"$set": bson.M(op.Patch)})
		case batchDelete:
			model = mongo.NewDeleteOneModel().SetFilter(bson.M{"_id": op.ID})
		}
		if _, seen := byCollection[op.Collection]; !seen {
			order = append(order, op.Collection)
		}
		byCollection[op.Collection] = append(byCollection[op.Collection], model)
	}

	for _, collection := range order {
		_, err := s.db.Collection(collection).BulkWrite(
			ctx,
			byCollection[collection],
			options.BulkWrite().SetOrdered(true),
		)
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		if err != nil {
			return fmt.Errorf("docstore: batch write %s: %w", collection, err)
		}
	}
	return nil
}

// EnsureUniqueIndex creates a unique index over the given fields, optionally
// restricted by a partial filter (e.g. only documents with status=active).
// Safe to call repeatedly at startup.
func (s *MongoStore) EnsureUniqueIndex(ctx context.Context, collection string, fields []string, partial map[string]any) error {
	keys := bson.D{}
	for _, f := range fields {
		keys = append(keys, bson.E{Key: f, Value: 1})
	}

	idxOpts := options.Index().SetUnique(true)
	if len(partial) > 0 {
		idxOpts.SetPartialFilterExpression(bson.M(partial))
	}

	_, err := s.db.Collection(collection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    keys,
		Options: idxOpts,
	})
	if err != nil {
		return fmt.Errorf("docstore: ensure index on %s: %w", collection, err)
	}
	return nil
}

func buildMongoFilter(filters []Filter) (bson.M, error) {
	filter := bson.M{}
	for _, f := range filters {
		switch f.Op {
		case OpEqual:
			filter[f.Field] = f.Value
		case OpNotEqual:
			filter[f.Field] = bson.M{"$ne": f.Value}
		case OpLess:
			filter[f.Field] = bson.M{"$lt": f.Value}
		case OpLessOrEqual:
			filter[f.Field] = bson.M{"$lte": f.Value}
		case OpGreater:
			filter[f.Field] = bson.M{"$gt": f.Value}
		case OpGreaterOrEqual:
			filter[f.Field] = bson.M{"$gte": f.Value}
		default:
			return nil, fmt.Errorf("%w: unknown operator %q", ErrInvalidFilter, f.Op)
		}
	}
	return filter, nil
}
