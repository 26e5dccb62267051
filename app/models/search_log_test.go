package models

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestSearchLogBeforeCreateAssignsQueryID(t *testing.T) {
	log := &SearchLog{UserID: 1, Query: "hello"}

	assert.NoError(t, log.BeforeCreate(nil))
	_, err := uuid.Parse(log.QueryID)
	assert.NoError(t, err)
}

func TestSearchLogBeforeCreateKeepsExistingQueryID(t *testing.T) {
	id := uuid.NewString()
	log := &SearchLog{QueryID: id}

	assert.NoError(t, log.BeforeCreate(nil))
	assert.Equal(t, id, log.QueryID)
}
