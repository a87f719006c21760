package repository

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/lti-bridge-api/internal/models"
)

func setupTestDB(t *testing.T, tables ...interface{}) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(tables...))
	return db
}

func activityTables() []interface{} {
	return []interface{}{
		&models.Activity{},
		&models.ActivityAssistantLink{},
		&models.ActivityMember{},
	}
}

func TestActivityRepositoryCreateWithLinks(t *testing.T) {
	db := setupTestDB(t, activityTables()...)
	repo := NewActivityRepository(db)

	activity := models.Activity{
		PlacementID:   "placement-1",
		Name:          "Algebra Helpers",
		OwnerIdentity: "prof@platform",
		Status:        models.ActivityStatusActive,
	}
	require.NoError(t, repo.Create(context.Background(), &activity, []uint{3, 7}))
	require.NotZero(t, activity.ID)

	stored, err := repo.GetByPlacementID(context.Background(), "placement-1")
	require.NoError(t, err)
	require.Equal(t, "Algebra Helpers", stored.Name)
	require.True(t, stored.IsActive())

	ids, err := repo.AssistantIDs(context.Background(), activity.ID)
	require.NoError(t, err)
	require.Equal(t, []uint{3, 7}, ids)
}

func TestActivityRepositoryGetByPlacementIDNotFound(t *testing.T) {
	db := setupTestDB(t, activityTables()...)
	repo := NewActivityRepository(db)

	_, err := repo.GetByPlacementID(context.Background(), "missing")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestActivityRepositoryUpdateConfigurationReplacesLinks(t *testing.T) {
	db := setupTestDB(t, activityTables()...)
	repo := NewActivityRepository(db)

	activity := models.Activity{
		PlacementID:   "placement-1",
		Name:          "Before",
		OwnerIdentity: "prof@platform",
		Status:        models.ActivityStatusActive,
	}
	require.NoError(t, repo.Create(context.Background(), &activity, []uint{1, 2}))

	require.NoError(t, repo.UpdateConfiguration(context.Background(), activity.ID, "After", true, []uint{2, 5}))

	updated, err := repo.GetByID(context.Background(), activity.ID)
	require.NoError(t, err)
	require.Equal(t, "After", updated.Name)
	require.True(t, updated.ChatVisibility)
	// Ownership is untouched by reconfiguration.
	require.Equal(t, "prof@platform", updated.OwnerIdentity)

	ids, err := repo.AssistantIDs(context.Background(), activity.ID)
	require.NoError(t, err)
	require.Equal(t, []uint{2, 5}, ids)
}

func TestActivityRepositoryTransferOwner(t *testing.T) {
	db := setupTestDB(t, activityTables()...)
	repo := NewActivityRepository(db)

	activity := models.Activity{
		PlacementID:   "placement-1",
		Name:          "Algebra",
		OwnerIdentity: "old@platform",
		Status:        models.ActivityStatusActive,
	}
	require.NoError(t, repo.Create(context.Background(), &activity, nil))

	require.NoError(t, repo.TransferOwner(context.Background(), activity.ID, "new@platform"))

	updated, err := repo.GetByID(context.Background(), activity.ID)
	require.NoError(t, err)
	require.Equal(t, "new@platform", updated.OwnerIdentity)

	require.ErrorIs(t, repo.TransferOwner(context.Background(), 9999, "ghost@platform"), gorm.ErrRecordNotFound)
}
