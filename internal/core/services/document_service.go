package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/mongodesk/backend/internal/core/ports"
	"github.com/mongodesk/backend/internal/infrastructure/logger"
	"github.com/mongodesk/backend/internal/infrastructure/mongodb"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// documentService is a thin CRUD pass-through over the shared MongoDB client.
// Documents cross the boundary as generic maps; ids travel as ObjectID hex
// strings so the frontend never deals with BSON types.
type documentService struct {
	client *mongodb.Client
	logger *logger.Logger
}

func NewDocumentService(client *mongodb.Client, log *logger.Logger) ports.DocumentService {
	return &documentService{client: client, logger: log}
}

func (s *documentService) Connect(ctx context.Context, uri string) error {
	return s.client.Connect(ctx, uri)
}

func (s *documentService) Disconnect(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *documentService) Insert(ctx context.Context, collection string, document map[string]any) (string, error) {
	coll, err := s.collection(collection)
	if err != nil {
		return "", err
	}

	res, err := coll.InsertOne(ctx, bson.M(document))
	if err != nil {
		return "", fmt.Errorf("failed to insert document: %w", err)
	}
	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return fmt.Sprintf("%v", res.InsertedID), nil
	}
	return oid.Hex(), nil
}

func (s *documentService) Find(ctx context.Context, collection string, filter map[string]any) ([]map[string]any, error) {
	coll, err := s.collection(collection)
	if err != nil {
		return nil, err
	}

	query := bson.M{}
	for k, v := range filter {
		query[k] = v
	}
	cursor, err := coll.Find(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer cursor.Close(ctx)

	docs := []map[string]any{}
	for cursor.Next(ctx) {
		var raw bson.M
		if err := cursor.Decode(&raw); err != nil {
			return nil, fmt.Errorf("failed to decode document: %w", err)
		}
		docs = append(docs, normalizeDocument(raw))
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor iteration failed: %w", err)
	}
	return docs, nil
}

func (s *documentService) Update(ctx context.Context, collection, id string, fields map[string]any) (bool, error) {
	coll, err := s.collection(collection)
	if err != nil {
		return false, err
	}
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}

	res, err := coll.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M(fields)})
	if err != nil {
		return false, fmt.Errorf("failed to update document: %w", err)
	}
	return res.MatchedCount > 0, nil
}

func (s *documentService) Delete(ctx context.Context, collection, id string) (bool, error) {
	coll, err := s.collection(collection)
	if err != nil {
		return false, err
	}
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}

	res, err := coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return false, fmt.Errorf("failed to delete document: %w", err)
	}
	return res.DeletedCount > 0, nil
}

func (s *documentService) ListCollections(ctx context.Context) ([]string, error) {
	db, err := s.client.Database()
	if err != nil {
		return nil, ErrNotConnected
	}
	names, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	return names, nil
}

func (s *documentService) collection(name string) (*mongo.Collection, error) {
	db, err := s.client.Database()
	if err != nil {
		if errors.Is(err, mongodb.ErrNotConnected) {
			return nil, ErrNotConnected
		}
		return nil, err
	}
	return db.Collection(name), nil
}

// normalizeDocument rewrites the _id to its hex form so the JSON payload
// carries a plain string id.
func normalizeDocument(raw bson.M) map[string]any {
	doc := map[string]any(raw)
	if oid, ok := doc["_id"].(primitive.ObjectID); ok {
		doc["_id"] = oid.Hex()
	}
	return doc
}
