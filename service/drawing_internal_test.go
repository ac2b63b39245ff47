package service

import (
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/assert"
)

func TestGetTimeFromUUIDv7(t *testing.T) {
	at := time.UnixMilli(1756700000000)
	id, err := uuid.NewV7AtTime(at)
	assert.NoError(t, err)

	ts, err := getTimeFromUUIDv7(id.String())
	assert.NoError(t, err)
	assert.Equal(t, at.UnixMilli(), ts.UnixMilli())
}

func TestGetTimeFromUUIDv7_RejectsOtherVersions(t *testing.T) {
	id, err := uuid.NewV4()
	assert.NoError(t, err)

	_, err = getTimeFromUUIDv7(id.String())
	assert.Error(t, err)
}

func TestGetTimeFromUUIDv7_RejectsGarbage(t *testing.T) {
	_, err := getTimeFromUUIDv7("not-a-uuid")
	assert.Error(t, err)
}
