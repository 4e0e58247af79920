package outbox

import platformevents "example.com/fitness/internal/platform/events"

const activityLoggedSchema = `{
  "type": "object",
  "title": "ActivityLogged",
  "properties": {
    "activity_id": {"type": "string"},
    "user_id": {"type": "string"},
    "activity_type": {"type": "string"},
    "duration": {"type": "number", "minimum": 0},
    "calories_burned": {"type": "number", "minimum": 0},
    "custom_field": {"type": "number", "minimum": 0},
    "performed_at": {"type": "string", "format": "date-time"},
    "version": {"type": "string"}
  },
  "required": ["activity_id", "user_id", "activity_type", "duration", "performed_at", "version"],
  "additionalProperties": false
}`

const goalCompletedSchema = `{
  "type": "object",
  "title": "GoalCompleted",
  "properties": {
    "goal_id": {"type": "string"},
    "user_id": {"type": "string"},
    "fitness_goal": {"type": "string"},
    "target_value": {"type": "number"},
    "unit": {"type": "string"},
    "completed_at": {"type": "string", "format": "date-time"}
  },
  "required": ["goal_id", "user_id", "fitness_goal", "target_value", "completed_at"],
  "additionalProperties": false
}`

// schemaCatalog is the JSON schema registered for each event type.
var schemaCatalog = map[string]string{
	platformevents.TypeActivityLogged: activityLoggedSchema,
	platformevents.TypeGoalCompleted:  goalCompletedSchema,
}
