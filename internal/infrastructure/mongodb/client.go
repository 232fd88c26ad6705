package mongodb

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mongodesk/backend/internal/infrastructure/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrNotConnected = errors.New("mongodb: client not connected")

// Client guards a lazily established MongoDB connection. The application
// starts before MongoDB exists on the machine, so connection is an explicit
// step rather than part of construction.
type Client struct {
	logger   *logger.Logger
	database string

	mu     sync.RWMutex
	client *mongo.Client
}

func NewClient(log *logger.Logger, database string) *Client {
	return &Client{logger: log, database: database}
}

// Connect dials uri and verifies the server with a ping. An existing
// connection is replaced; the old client is closed best-effort.
func (c *Client) Connect(ctx context.Context, uri string) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	var result bson.M
	if err := client.Database("admin").RunCommand(ctx, bson.D{{Key: "ping", Value: 1}}).Decode(&result); err != nil {
		_ = client.Disconnect(context.Background())
		return fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	c.mu.Lock()
	old := c.client
	c.client = client
	c.mu.Unlock()

	if old != nil {
		_ = old.Disconnect(context.Background())
	}
	c.logger.Infow("mongodb_connected", "uri", uri, "database", c.database)
	return nil
}

func (c *Client) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	client := c.client
	c.client = nil
	c.mu.Unlock()

	if client == nil {
		return nil
	}
	if err := client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect from MongoDB: %w", err)
	}
	c.logger.Infow("mongodb_disconnected")
	return nil
}

func (c *Client) Connected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.client != nil
}

// Database returns the application database handle, or ErrNotConnected when
// Connect has not succeeded yet.
func (c *Client) Database() (*mongo.Database, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.client == nil {
		return nil, ErrNotConnected
	}
	return c.client.Database(c.database), nil
}
