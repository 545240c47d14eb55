package services

import "roadrescue-backend/models"

// gatedServices maps each equipment-gated service type to the predicate that
// must hold on the technician's declared equipment for the type to be visible.
var gatedServices = map[models.ServiceType]func(models.Equipment) bool{
	models.ServiceLockout:      func(e models.Equipment) bool { return e.LockoutKit },
	models.ServiceJumpstart:    func(e models.Equipment) bool { return e.JumpStarter },
	models.ServiceFuelDelivery: func(e models.Equipment) bool { return e.FuelCan },
}

// VisibleServiceTypes returns the set of service types a technician with the
// given equipment may see and claim. Ungated types are always included.
func VisibleServiceTypes(equipment models.Equipment) map[models.ServiceType]bool {
	visible := make(map[models.ServiceType]bool, len(models.AllServiceTypes))
	for _, t := range models.AllServiceTypes {
		gate, gated := gatedServices[t]
		visible[t] = !gated || gate(equipment)
	}
	return visible
}

// FilterRequests drops requests whose service type the technician is not
// equipped for. Pure set difference, no side effects.
func FilterRequests(requests []*models.ServiceRequest, equipment models.Equipment) []*models.ServiceRequest {
	visible := VisibleServiceTypes(equipment)
	filtered := make([]*models.ServiceRequest, 0, len(requests))
	for _, req := range requests {
		if visible[req.ServiceType] {
			filtered = append(filtered, req)
		}
	}
	return filtered
}
