package validators

import "go.mongodb.org/mongo-driver/bson"

var PricingRuleValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"court_id",
			"kind",
			"multiplier",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"court_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"kind": bson.M{
				"bsonType": "string",
				"enum": []string{
					"peak_hours",
					"weekend",
					"custom_days",
				},
			},

			"multiplier": bson.M{
				"bsonType": "double",
				"minimum":  1,
			},

			"start": bson.M{
				"bsonType": "string",
				"pattern":  "^([01][0-9]|2[0-3]):[0-5][0-9]$",
			},

			"end": bson.M{
				"bsonType": "string",
				"pattern":  "^([01][0-9]|2[0-3]):[0-5][0-9]$",
			},

			"days_of_week": bson.M{
				"bsonType": "array",
				"items": bson.M{
					"bsonType": "int",
					"minimum":  0,
					"maximum":  6,
				},
			},

			"active": bson.M{
				"bsonType": "bool",
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
