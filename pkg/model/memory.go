package model

import (
	"time"

	"github.com/google/uuid"
)

type MemoryID string

// NewMemoryID generates a new unique MemoryID
func NewMemoryID() MemoryID {
	return MemoryID(uuid.New().String())
}

// Memory is a payload returned by a memory store query
type Memory struct {
	ID      MemoryID
	Content string
	// Score is the similarity to the query, higher is closer. Zero when the
	// store does not report one.
	Score     float64
	CreatedAt time.Time
}

type RecordID string

// NewRecordID generates a new unique RecordID
func NewRecordID() RecordID {
	return RecordID(uuid.New().String())
}

// Record is a journal entry for an artifact written from this host. Records
// are append-only; two records with the same session, phase and version are
// both kept.
type Record struct {
	ID        RecordID  `json:"id" firestore:"ID"`
	SessionID SessionID `json:"session_id" firestore:"SessionID"`
	Phase     Phase     `json:"phase" firestore:"Phase"`
	Version   int       `json:"version" firestore:"Version"`
	MemoryID  MemoryID  `json:"memory_id" firestore:"MemoryID"`
	Store     string    `json:"store" firestore:"Store"`
	Digest    string    `json:"digest" firestore:"Digest"`
	Payload   string    `json:"payload" firestore:"Payload"`
	CreatedAt time.Time `json:"created_at" firestore:"CreatedAt"`
}
