package services

import (
	"testing"

	"roadrescue-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

// EquipmentTestSuite defines a test suite for equipment gating
type EquipmentTestSuite struct {
	suite.Suite
}

// TestVisibleServiceTypesNoEquipment tests that ungated types are always visible
func (suite *EquipmentTestSuite) TestVisibleServiceTypesNoEquipment() {
	visible := VisibleServiceTypes(models.Equipment{})

	assert.True(suite.T(), visible[models.ServiceAirInflation])
	assert.True(suite.T(), visible[models.ServiceSpareReplacement])
	assert.True(suite.T(), visible[models.ServiceShopPickup])
	assert.False(suite.T(), visible[models.ServiceLockout])
	assert.False(suite.T(), visible[models.ServiceJumpstart])
	assert.False(suite.T(), visible[models.ServiceFuelDelivery])
}

// TestVisibleServiceTypesFullKit tests that all types open up with full equipment
func (suite *EquipmentTestSuite) TestVisibleServiceTypesFullKit() {
	visible := VisibleServiceTypes(models.Equipment{
		LockoutKit:  true,
		JumpStarter: true,
		FuelCan:     true,
	})

	for _, t := range models.AllServiceTypes {
		assert.True(suite.T(), visible[t], "expected %s to be visible", t)
	}
}

// TestVisibleServiceTypesPartialKit tests each gate independently
func (suite *EquipmentTestSuite) TestVisibleServiceTypesPartialKit() {
	visible := VisibleServiceTypes(models.Equipment{JumpStarter: true})

	assert.True(suite.T(), visible[models.ServiceJumpstart])
	assert.False(suite.T(), visible[models.ServiceLockout])
	assert.False(suite.T(), visible[models.ServiceFuelDelivery])
}

// TestFilterRequests tests dropping requests the technician cannot serve
func (suite *EquipmentTestSuite) TestFilterRequests() {
	requests := []*models.ServiceRequest{
		{RequestID: "r1", ServiceType: models.ServiceLockout},
		{RequestID: "r2", ServiceType: models.ServiceAirInflation},
		{RequestID: "r3", ServiceType: models.ServiceFuelDelivery},
		{RequestID: "r4", ServiceType: models.ServiceJumpstart},
	}

	filtered := FilterRequests(requests, models.Equipment{FuelCan: true})

	ids := make([]string, 0, len(filtered))
	for _, r := range filtered {
		ids = append(ids, r.RequestID)
	}
	assert.Equal(suite.T(), []string{"r2", "r3"}, ids)
}

// TestFilterRequestsEmpty tests the empty-input edge
func (suite *EquipmentTestSuite) TestFilterRequestsEmpty() {
	filtered := FilterRequests(nil, models.Equipment{})
	assert.Empty(suite.T(), filtered)
}

func TestEquipmentTestSuite(t *testing.T) {
	suite.Run(t, new(EquipmentTestSuite))
}
