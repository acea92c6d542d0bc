package model

import (
	"time"
)

// SessionStatus is the state of a tracking session
type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionPaused    SessionStatus = "paused"
	SessionCompleted SessionStatus = "completed"
)

// GPSPoint is one location sample
type GPSPoint struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Timestamp time.Time `json:"timestamp"`
	Accuracy  *float64  `json:"accuracy,omitempty"` // meters
	Speed     *float64  `json:"speed,omitempty"`    // m/s
}

// KMTrackerSession is a GPS-measured driving session.
// At most one session is active or paused at any time.
type KMTrackerSession struct {
	ID              string        `json:"id" gorm:"primaryKey;type:varchar(36)"`
	VehicleID       *string       `json:"vehicle_id,omitempty" gorm:"column:vehicle_id;type:varchar(36)"`
	StartTime       time.Time     `json:"start_time" gorm:"column:start_time;not null"`
	EndTime         *time.Time    `json:"end_time,omitempty" gorm:"column:end_time"`
	Status          SessionStatus `json:"status" gorm:"type:varchar(20);not null"`
	Points          []GPSPoint    `json:"points" gorm:"type:jsonb;serializer:json"`
	PointCount      int           `json:"point_count" gorm:"column:point_count;not null;default:0"`
	TotalDistanceKm float64       `json:"total_distance_km" gorm:"column:total_distance_km;not null;default:0"`
	Duration        int64         `json:"duration" gorm:"not null;default:0"` // seconds
	MaxSpeed        *float64      `json:"max_speed,omitempty" gorm:"column:max_speed"` // km/h
	AvgSpeed        *float64      `json:"avg_speed,omitempty" gorm:"column:avg_speed"` // km/h
	AutoSaved       bool          `json:"auto_saved" gorm:"column:auto_saved;not null;default:false"`
}

func (KMTrackerSession) TableName() string {
	return "tracker_sessions"
}

func (s KMTrackerSession) GetID() string { return s.ID }

// Open reports whether the session is active or paused
func (s KMTrackerSession) Open() bool {
	return s.Status == SessionActive || s.Status == SessionPaused
}

// LastPoint returns the most recent accepted sample
func (s KMTrackerSession) LastPoint() (GPSPoint, bool) {
	if len(s.Points) == 0 {
		return GPSPoint{}, false
	}
	return s.Points[len(s.Points)-1], true
}

// StartSessionRequest 开始里程追踪请求
type StartSessionRequest struct {
	VehicleID *string `json:"vehicle_id"`
}

// StopSessionRequest 结束里程追踪请求
type StopSessionRequest struct {
	AutoSave bool `json:"auto_save"`
}

// PointRequest is a sample pushed by a client; timestamp is Unix milliseconds
type PointRequest struct {
	Lat       float64  `json:"lat"`
	Lon       float64  `json:"lon"`
	Accuracy  *float64 `json:"accuracy"`
	Speed     *float64 `json:"speed"`
	Timestamp int64    `json:"timestamp"`
}

// LiveSnapshot is the display-only view of the running session refreshed every second
type LiveSnapshot struct {
	SessionID      string        `json:"session_id"`
	VehicleID      *string       `json:"vehicle_id,omitempty"`
	Status         SessionStatus `json:"status"`
	ElapsedSeconds int64         `json:"elapsed_seconds"`
	DistanceKm     float64       `json:"distance_km"`
	MaxSpeed       *float64      `json:"max_speed,omitempty"`
	PointCount     int           `json:"point_count"`
	Timestamp      int64         `json:"timestamp"`
}
