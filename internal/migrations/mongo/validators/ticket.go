package validators

import "go.mongodb.org/mongo-driver/bson"

var TicketValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"ticket_number",
			"user_id",
			"hospital_id",
			"counter_id",
			"appointment_date_time",
			"booking_date_time",
			"status",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"ticket_number": bson.M{
				"bsonType": "string",
				"pattern":  "^TK[0-9]{10}$",
			},

			"user_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"hospital_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"counter_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"appointment_date_time": bson.M{
				"bsonType": "date",
			},

			"booking_date_time": bson.M{
				"bsonType": "date",
			},

			"status": bson.M{
				"bsonType": "string",
				"enum": []string{
					"booked",
					"confirmed",
					"in_progress",
					"completed",
					"cancelled",
					"no_show",
				},
			},

			"queue_position": bson.M{
				"bsonType": "int",
				"minimum":  1,
			},

			"estimated_wait_time": bson.M{
				"bsonType": "int",
				"minimum":  0,
			},

			"is_checked_in": bson.M{
				"bsonType": "bool",
			},

			"patient_type": bson.M{
				"bsonType": "string",
				"enum":     []string{"new", "follow_up"},
			},

			"priority": bson.M{
				"bsonType": "string",
				"enum":     []string{"normal", "urgent", "emergency"},
			},

			"consultation_fee": bson.M{
				"bsonType": "int",
				"minimum":  0,
			},

			"rating": bson.M{
				"bsonType": "object",
				"required": []string{"score"},
				"properties": bson.M{
					"score": bson.M{
						"bsonType": "int",
						"minimum":  1,
						"maximum":  5,
					},
					"comment": bson.M{
						"bsonType":  "string",
						"maxLength": 500,
					},
				},
			},
		},
	},
}
