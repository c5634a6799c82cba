package handlers

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func insertedObjectID(res *mongo.InsertOneResult) primitive.ObjectID {
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		return id
	}
	return primitive.NilObjectID
}

func findOneAndUpdateReturnAfter() *options.FindOneAndUpdateOptions {
	return options.FindOneAndUpdate().SetReturnDocument(options.After)
}
