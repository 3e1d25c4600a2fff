package database

import (
	"github.com/Madhav-Gupta-28/islamic-library-backend-go/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// recomputeRatingStage derives numReviews and rating from the reviews array.
// $avg of an empty array is null, which becomes 0.
var recomputeRatingStage = bson.D{{Key: "$set", Value: bson.D{
	{Key: "numReviews", Value: bson.D{{Key: "$size", Value: "$reviews"}}},
	{Key: "rating", Value: bson.D{{Key: "$ifNull", Value: bson.A{
		bson.D{{Key: "$avg", Value: "$reviews.rating"}},
		0,
	}}}},
	{Key: "updatedAt", Value: "$$NOW"},
}}}

func addReviewPipeline(review models.Review) mongo.Pipeline {
	// $literal keeps user text such as "$x" from being read as a field path.
	appendReview := bson.D{{Key: "$set", Value: bson.D{
		{Key: "reviews", Value: bson.D{{Key: "$concatArrays", Value: bson.A{
			bson.D{{Key: "$ifNull", Value: bson.A{"$reviews", bson.A{}}}},
			bson.D{{Key: "$literal", Value: bson.A{review}}},
		}}}},
	}}}

	return mongo.Pipeline{appendReview, recomputeRatingStage}
}

func removeReviewPipeline(reviewID primitive.ObjectID) mongo.Pipeline {
	dropReview := bson.D{{Key: "$set", Value: bson.D{
		{Key: "reviews", Value: bson.D{{Key: "$filter", Value: bson.D{
			{Key: "input", Value: bson.D{{Key: "$ifNull", Value: bson.A{"$reviews", bson.A{}}}}},
			{Key: "cond", Value: bson.D{{Key: "$ne", Value: bson.A{"$$this._id", reviewID}}}},
		}}}},
	}}}

	return mongo.Pipeline{dropReview, recomputeRatingStage}
}
