package validators

import "go.mongodb.org/mongo-driver/bson"

var BookingValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"court_id",
			"customer_id",
			"date",
			"start",
			"end",
			"start_at",
			"end_at",
			"hours",
			"base_price_cents",
			"multiplier",
			"total_cents",
			"currency",
			"status",
			"payment_status",
			"payment_method",
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

			"customer_id": bson.M{
				"bsonType": "string",
			},

			"date": bson.M{
				"bsonType": "string",
				"pattern":  "^\\d{4}-\\d{2}-\\d{2}$",
			},

			"start": bson.M{
				"bsonType": "string",
				"pattern":  "^([01][0-9]|2[0-3]):[0-5][0-9]$",
			},

			"end": bson.M{
				"bsonType": "string",
				"pattern":  "^([01][0-9]|2[0-3]):[0-5][0-9]$",
			},

			"start_at": bson.M{
				"bsonType": "date",
			},

			"end_at": bson.M{
				"bsonType": "date",
			},

			"hours": bson.M{
				"bsonType": "int",
				"minimum":  1,
				"maximum":  24,
			},

			"base_price_cents": bson.M{
				"bsonType": "long",
				"minimum":  1,
			},

			"multiplier": bson.M{
				"bsonType": "double",
				"minimum":  1,
			},

			"total_cents": bson.M{
				"bsonType": "long",
				"minimum":  1,
			},

			"currency": bson.M{
				"bsonType":  "string",
				"minLength": 3,
				"maxLength": 3,
			},

			"applied_rules": bson.M{
				"bsonType": "array",
				"items": bson.M{
					"bsonType": "string",
				},
			},

			"status": bson.M{
				"bsonType": "string",
				"enum": []string{
					"pending",
					"confirmed",
					"cancelled",
					"completed",
				},
			},

			"payment_status": bson.M{
				"bsonType": "string",
				"enum": []string{
					"pending",
					"succeeded",
					"failed",
				},
			},

			"payment_method": bson.M{
				"bsonType": "string",
				"enum": []string{
					"card",
					"bank_transfer",
				},
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
