// Package model defines shared data structures.
package model

import "time"

// Config defines roll settings.
type Config struct {
	MaxDice     int
	MaxBatch    int
	MaxRollsLen int
	Seed        *int64
	Format      string
	History     bool
}

// StatsConfig defines filters and options for stats output.
type StatsConfig struct {
	Expression string
	Since      *time.Time
	Last       int
	Window     int
}

// SavedRoll is a named roll command.
type SavedRoll struct {
	Name      string    `json:"name" yaml:"name"`
	Command   string    `json:"command" yaml:"command"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// RollEntry captures an evaluated roll in history.
type RollEntry struct {
	ID         int64      `json:"id" yaml:"id"`
	BatchID    string     `json:"batch_id,omitempty" yaml:"batch_id,omitempty"`
	RolledAt   time.Time  `json:"rolled_at" yaml:"rolled_at"`
	Expression string     `json:"expression" yaml:"expression"`
	Annotation string     `json:"annotation,omitempty" yaml:"annotation,omitempty"`
	Total      float64    `json:"total" yaml:"total"`
	DiceCount  int64      `json:"dice_count" yaml:"dice_count"`
	Rolls      []DiceRoll `json:"rolls,omitempty" yaml:"rolls,omitempty"`
}

// DiceRoll stores the faces of one dice term of a roll.
type DiceRoll struct {
	Spec  string `json:"spec" yaml:"spec"`
	Sides int    `json:"sides" yaml:"sides"`
	Faces []int  `json:"faces" yaml:"faces,flow"`
	Kept  []bool `json:"kept" yaml:"kept,flow"`
	Total int64  `json:"total" yaml:"total"`
}

// Aggregated history for reporting.

// ExpressionAggregate summarizes every roll of one expression.
type ExpressionAggregate struct {
	Expression string  `json:"expression" yaml:"expression"`
	Count      int     `json:"count" yaml:"count"`
	Sum        float64 `json:"sum" yaml:"sum"`
	Min        float64 `json:"min" yaml:"min"`
	Max        float64 `json:"max" yaml:"max"`
}

// FaceAggregate counts how often a face came up on dice of one size.
type FaceAggregate struct {
	Sides int `json:"sides" yaml:"sides"`
	Face  int `json:"face" yaml:"face"`
	Count int `json:"count" yaml:"count"`
	Kept  int `json:"kept" yaml:"kept"`
}
