package validators

import "go.mongodb.org/mongo-driver/bson"

var HospitalValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"name",
			"code",
			"city",
			"is_active",
			"is_verified",
			"counters",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"name": bson.M{
				"bsonType":  "string",
				"minLength": 2,
				"maxLength": 200,
			},

			"code": bson.M{
				"bsonType":  "string",
				"minLength": 2,
				"maxLength": 20,
			},

			"city": bson.M{
				"bsonType":  "string",
				"minLength": 2,
				"maxLength": 100,
			},

			"is_active": bson.M{
				"bsonType": "bool",
			},

			"is_verified": bson.M{
				"bsonType": "bool",
			},

			"bed_capacity": bson.M{
				"bsonType": "object",
				"properties": bson.M{
					"total":     bson.M{"bsonType": "int", "minimum": 0},
					"available": bson.M{"bsonType": "int", "minimum": 0},
					"icu":       bson.M{"bsonType": "int", "minimum": 0},
					"general":   bson.M{"bsonType": "int", "minimum": 0},
				},
			},

			"counters": bson.M{
				"bsonType": "array",
				"items": bson.M{
					"bsonType": "object",
					"required": []string{"_id", "name", "type", "working_hours"},
					"properties": bson.M{
						"_id": bson.M{
							"bsonType": "string",
						},
						"name": bson.M{
							"bsonType":  "string",
							"minLength": 2,
							"maxLength": 100,
						},
						"type": bson.M{
							"bsonType": "string",
							"enum": []string{
								"general",
								"cardiology",
								"neurology",
								"orthopedics",
								"pediatrics",
								"dermatology",
								"emergency",
							},
						},
						"current_queue_length": bson.M{
							"bsonType": "int",
							"minimum":  0,
						},
						"average_service_time": bson.M{
							"bsonType": "int",
							"minimum":  1,
							"maximum":  240,
						},
						"working_hours": bson.M{
							"bsonType": "object",
							"required": []string{"start", "end"},
							"properties": bson.M{
								"start": bson.M{"bsonType": "string"},
								"end":   bson.M{"bsonType": "string"},
							},
						},
						"is_active": bson.M{
							"bsonType": "bool",
						},
					},
				},
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
