package config

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	db     *mongo.Database
	client *mongo.Client
	once   sync.Once
)

// ConnectDB initializes and returns a MongoDB database connection
func ConnectDB() *mongo.Database {
	once.Do(func() {
		mongoURI := os.Getenv("MONGODB_URI")
		if mongoURI == "" {
			log.Fatal().Msg("Please define the MONGODB_URI environment variable")
		}

		dbName := os.Getenv("MONGODB_DB")
		if dbName == "" {
			dbName = "cityvoice"
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		c, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to MongoDB")
		}

		if err := c.Ping(ctx, nil); err != nil {
			log.Fatal().Err(err).Msg("Failed to ping MongoDB")
		}

		log.Info().Str("database", dbName).Msg("Connected to MongoDB")

		client = c
		db = client.Database(dbName)
	})

	return db
}

// GetCollection returns a MongoDB collection by name
func GetCollection(name string) *mongo.Collection {
	return ConnectDB().Collection(name)
}
