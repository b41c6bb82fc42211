package validators

import "go.mongodb.org/mongo-driver/bson"

var SlotClaimValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"_id",
			"lease_id",
			"court_id",
			"slot_start",
			"holder_id",
			"expires_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "string",
			},

			"lease_id": bson.M{
				"bsonType": "string",
			},

			"court_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"slot_start": bson.M{
				"bsonType": "date",
			},

			"holder_id": bson.M{
				"bsonType": "string",
			},

			"expires_at": bson.M{
				"bsonType": "date",
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
