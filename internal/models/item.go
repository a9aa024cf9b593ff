package models

import "time"

type Item struct {
	ID           string    `json:"id" yaml:"id"`
	Name         string    `json:"name" yaml:"name"`
	Description  string    `json:"description" yaml:"description"`
	Status       string    `json:"status" yaml:"status"` // available, reserved, delivered
	RequestCount int64     `json:"request_count" yaml:"request_count"`
	CreatedAt    time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" yaml:"updated_at"`
}
