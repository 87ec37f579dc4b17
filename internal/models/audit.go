package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AuthEventType names what happened in an audit record.
type AuthEventType string

const (
	EventRegister     AuthEventType = "register"
	EventLoginSuccess AuthEventType = "login_success"
	EventLoginFailure AuthEventType = "login_failure"
	EventLogout       AuthEventType = "logout"
)

// AuthEvent is a single audit entry stored in MongoDB.
type AuthEvent struct {
	ID        primitive.ObjectID `json:"id"         bson:"_id,omitempty"`
	Type      AuthEventType      `json:"type"       bson:"type"`
	UserID    int64              `json:"user_id"    bson:"user_id,omitempty"`
	Username  string             `json:"username"   bson:"username,omitempty"`
	IP        string             `json:"ip"         bson:"ip,omitempty"`
	UserAgent string             `json:"user_agent" bson:"user_agent,omitempty"`
	CreatedAt time.Time          `json:"created_at" bson:"created_at"`
}
