// Package apikey mints API keys for users. The raw key is returned once;
// only its bcrypt hash and a short lookup prefix are persisted.
package apikey

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/mediaqueue/pkg/models"
	"golang.org/x/crypto/bcrypt"
)

const (
	// KeyPrefix marks every raw key issued by this service.
	KeyPrefix = "mq_"
	// LookupLen is how many leading characters of a raw key are stored in
	// clear for lookup.
	LookupLen = 8

	secretBytes = 24
)

// New creates an API key for userID and returns it with the raw key.
func New(userID int64, name string) (*models.APIKey, string, error) {
	secret := make([]byte, secretBytes)
	if _, err := rand.Read(secret); err != nil {
		return nil, "", fmt.Errorf("generate key: %w", err)
	}
	raw := KeyPrefix + hex.EncodeToString(secret)

	hash, err := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("hash key: %w", err)
	}

	now := time.Now().UTC()
	return &models.APIKey{
		ID:        uuid.New(),
		UserID:    userID,
		Name:      name,
		KeyHash:   string(hash),
		KeyPrefix: raw[:LookupLen],
		CreatedAt: now,
		UpdatedAt: now,
	}, raw, nil
}

// Verify reports whether raw matches key's stored hash.
func Verify(key *models.APIKey, raw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(key.KeyHash), []byte(raw)) == nil
}
