// Package store is the typed gateway to the three persisted collections:
// sessions, participants and leaderboard entries. It owns upsert and
// query-with-sort access; all lifecycle rules live in the services layer.
package store

import (
	"errors"

	"gorm.io/gorm"
)

var ErrRecordNotFound = errors.New("record not found")

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrRecordNotFound
	}
	return err
}
