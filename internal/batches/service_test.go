package batches

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicgrid/resident-portal/internal/inventory"
	"github.com/civicgrid/resident-portal/internal/residents"
	"github.com/civicgrid/resident-portal/pkg/db"
	"github.com/civicgrid/resident-portal/pkg/db/dbtest"
	"github.com/civicgrid/resident-portal/pkg/db/models"
	"github.com/civicgrid/resident-portal/pkg/enums"
	pkgerrors "github.com/civicgrid/resident-portal/pkg/errors"
	"github.com/civicgrid/resident-portal/pkg/outbox"
	"github.com/civicgrid/resident-portal/pkg/outbox/payloads"
)

func newTestService(t *testing.T) (Service, *db.Client) {
	t.Helper()
	client := dbtest.Open(t)
	svc, err := NewService(
		NewRepository(client.DB()),
		inventory.NewRepository(client.DB()),
		residents.NewRepository(client.DB()),
		client,
		outbox.NewService(outbox.NewRepository(client.DB()), nil),
		nil,
	)
	require.NoError(t, err)
	return svc, client
}

func TestCreateBatchWritesItemsAndSummary(t *testing.T) {
	svc, client := newTestService(t)
	rice := dbtest.SeedItem(t, client, "Rice", 100, 0)
	sardines := dbtest.SeedItem(t, client, "Sardines", 50, 0)
	actor := &outbox.ActorRef{UserID: uuid.New(), Role: string(enums.UserRoleAdmin)}

	batch, err := svc.CreateBatch(context.Background(), CreateBatchInput{
		Name:        " Relief A ",
		TargetClass: "both",
		Items: []ItemRequest{
			{InventoryItemID: sardines.ID, Qty: 2},
			{InventoryItemID: rice.ID, Qty: 5},
		},
	}, actor)
	require.NoError(t, err)

	assert.Equal(t, "Relief A", batch.Name)
	assert.Equal(t, enums.ClassificationBoth, batch.TargetClass)
	assert.Equal(t, "2 Sardines, 5 Rice", batch.ItemsSummary)
	require.Len(t, batch.Items, 2)

	assert.Equal(t, int64(2), dbtest.Count(t, client, &models.BatchItem{}, "batch_id = ?", batch.ID))

	var events []models.OutboxEvent
	require.NoError(t, client.DB().Find(&events).Error)
	require.Len(t, events, 1)
	assert.Equal(t, enums.EventBatchCreated, events[0].EventType)

	var envelope outbox.PayloadEnvelope
	require.NoError(t, json.Unmarshal(events[0].Payload, &envelope))
	var data payloads.BatchCreatedEvent
	require.NoError(t, json.Unmarshal(envelope.Data, &data))
	assert.Equal(t, batch.ID, data.BatchID)
	assert.Len(t, data.Items, 2)
	assert.Equal(t, actor.UserID, envelope.Actor.UserID)
}

func TestCreateBatchSummaryIsSnapshot(t *testing.T) {
	svc, client := newTestService(t)
	rice := dbtest.SeedItem(t, client, "Rice", 100, 0)

	batch, err := svc.CreateBatch(context.Background(), CreateBatchInput{
		Name:        "Relief A",
		TargetClass: enums.ClassificationSC,
		Items:       []ItemRequest{{InventoryItemID: rice.ID, Qty: 5}},
	}, nil)
	require.NoError(t, err)

	require.NoError(t, client.DB().Model(&models.InventoryItem{}).Where("id = ?", rice.ID).Update("name", "Jasmine Rice").Error)

	reloaded, err := svc.GetBatch(context.Background(), batch.ID)
	require.NoError(t, err)
	assert.Equal(t, "5 Rice", reloaded.ItemsSummary)
	require.Len(t, reloaded.Items, 1)
	assert.Equal(t, "Jasmine Rice", reloaded.Items[0].Name)
}

func TestCreateBatchValidation(t *testing.T) {
	svc, client := newTestService(t)
	rice := dbtest.SeedItem(t, client, "Rice", 100, 0)

	tests := []struct {
		name  string
		input CreateBatchInput
		code  pkgerrors.Code
	}{
		{"empty items", CreateBatchInput{Name: "A", TargetClass: "SC"}, pkgerrors.CodeValidation},
		{"missing name", CreateBatchInput{TargetClass: "SC", Items: []ItemRequest{{InventoryItemID: rice.ID, Qty: 1}}}, pkgerrors.CodeValidation},
		{"name too long", CreateBatchInput{Name: strings.Repeat("ñ", maxNameLength+1), TargetClass: "SC", Items: []ItemRequest{{InventoryItemID: rice.ID, Qty: 1}}}, pkgerrors.CodeValidation},
		{"missing target", CreateBatchInput{Name: "A", Items: []ItemRequest{{InventoryItemID: rice.ID, Qty: 1}}}, pkgerrors.CodeValidation},
		{"zero qty", CreateBatchInput{Name: "A", TargetClass: "SC", Items: []ItemRequest{{InventoryItemID: rice.ID, Qty: 0}}}, pkgerrors.CodeValidation},
		{"duplicate item", CreateBatchInput{Name: "A", TargetClass: "SC", Items: []ItemRequest{{InventoryItemID: rice.ID, Qty: 1}, {InventoryItemID: rice.ID, Qty: 2}}}, pkgerrors.CodeValidation},
		{"unknown item", CreateBatchInput{Name: "A", TargetClass: "SC", Items: []ItemRequest{{InventoryItemID: rice.ID, Qty: 1}, {InventoryItemID: uuid.New(), Qty: 1}}}, pkgerrors.CodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateBatch(context.Background(), tt.input, nil)
			require.Error(t, err)
			assert.True(t, pkgerrors.IsCode(err, tt.code), err.Error())
		})
	}

	assert.Equal(t, int64(0), dbtest.Count(t, client, &models.DistributionBatch{}, ""))
	assert.Equal(t, int64(0), dbtest.Count(t, client, &models.BatchItem{}, ""))
	assert.Equal(t, int64(0), dbtest.Count(t, client, &models.OutboxEvent{}, ""))
}

func TestCreateBatchNameLengthCountsCharacters(t *testing.T) {
	svc, client := newTestService(t)
	rice := dbtest.SeedItem(t, client, "Rice", 100, 0)
	name := strings.Repeat("ñ", maxNameLength)

	batch, err := svc.CreateBatch(context.Background(), CreateBatchInput{
		Name:        name,
		TargetClass: enums.ClassificationSC,
		Items:       []ItemRequest{{InventoryItemID: rice.ID, Qty: 1}},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, name, batch.Name)
}

func TestCreateBatchKeepsCustomTargetLabel(t *testing.T) {
	svc, client := newTestService(t)
	rice := dbtest.SeedItem(t, client, "Rice", 100, 0)

	batch, err := svc.CreateBatch(context.Background(), CreateBatchInput{
		Name:        "Solo parents",
		TargetClass: " Solo Parent ",
		Items:       []ItemRequest{{InventoryItemID: rice.ID, Qty: 1}},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, enums.Classification("Solo Parent"), batch.TargetClass)
}

func TestListBatchesComputesCounters(t *testing.T) {
	svc, client := newTestService(t)
	rice := dbtest.SeedItem(t, client, "Rice", 100, 10)
	ana := dbtest.SeedResident(t, client, "Ana", enums.ClassificationSC)
	ben := dbtest.SeedResident(t, client, "Ben", enums.ClassificationBoth)
	dbtest.SeedResident(t, client, "Carla", enums.ClassificationPWD)
	gone := dbtest.SeedResident(t, client, "Eve", enums.ClassificationSC)
	dbtest.DeactivateResident(t, client, gone.ID)

	line := dbtest.Line{Item: rice, Qty: 5}
	both := dbtest.SeedBatch(t, client, "Everyone", enums.ClassificationBoth, line)
	scOnly := dbtest.SeedBatch(t, client, "Seniors", enums.ClassificationSC, line)
	custom := dbtest.SeedBatch(t, client, "Solo", "Solo Parent", line)
	dbtest.SeedClaim(t, client, both.ID, ana.ID, time.Now(), line)
	dbtest.SeedClaim(t, client, both.ID, ben.ID, time.Now(), line)

	list, err := svc.ListBatches(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 3)

	byID := map[uuid.UUID]BatchSummary{}
	for _, row := range list {
		byID[row.ID] = row
	}
	assert.Equal(t, int64(2), byID[both.ID].ClaimedCount)
	assert.Equal(t, int64(3), byID[both.ID].TotalEligible)
	assert.Equal(t, int64(0), byID[scOnly.ID].ClaimedCount)
	assert.Equal(t, int64(2), byID[scOnly.ID].TotalEligible)
	assert.Equal(t, int64(0), byID[custom.ID].TotalEligible)
	assert.Equal(t, "5 Rice", byID[both.ID].ItemsSummary)
}

func TestGetBatchNotFound(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.GetBatch(context.Background(), uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestDescribeItems(t *testing.T) {
	assert.Equal(t, "", DescribeItems(nil))
	assert.Equal(t, "5 Rice, 2 Sardines", DescribeItems([]ItemLine{
		{Name: "Rice", QtyPerClaim: 5},
		{Name: "Sardines", QtyPerClaim: 2},
	}))
}
